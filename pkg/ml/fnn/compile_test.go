// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digantamisra98/simplynn/pkg/ml/synthetic"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestApply(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, tc := range []struct {
		name       string
		numClasses int
		custom     bool
		batchNorm  bool
	}{
		{"softmax", 4, false, false},
		{"sigmoid", 2, false, false},
		{"mish", 3, true, false},
		{"softmax with batch norm", 4, false, true},
		{"sigmoid with batch norm", 2, false, true},
		{"mish with batch norm", 3, true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.New()
			c := New(ctx, []int{3, 2}, tc.numClasses, 2).Output(io.Discard).BatchNorm(tc.batchNorm).Dropout(true)
			if tc.custom {
				c.Activation("mish").CustomActivation(true)
			}
			model, err := c.Build()
			require.NoError(t, err)

			x := tensors.FromValue([][][]float32{
				{{1, 2}, {3, 4}, {5, 6}},
				{{-1, 0}, {0.5, 0}, {2, -3}},
				{{0, 0}, {0, 0}, {0, 0}},
			})
			var output *tensors.Tensor
			err = exceptions.TryCatch[error](func() {
				output = context.MustExecOnce(backend, ctx, func(ctx *context.Context, x *Node) *Node {
					return model.Apply(ctx, x)
				}, x)
			})
			if tc.batchNorm && err != nil && strings.Contains(err.Error(), "not implemented") {
				t.Skipf("backend %q doesn't support batch normalization: %v", backend.Name(), err)
			}
			require.NoError(t, err)
			require.Equal(t, []int{3, tc.numClasses}, output.Shape().Dimensions)
			probs := output.Value().([][]float32)
			for _, row := range probs {
				var sum float32
				for _, p := range row {
					assert.True(t, p >= 0 && p <= 1, "probability out of range: %v", row)
					sum += p
				}
				if model.OutputActivation() == FinalSoftmax {
					assert.InDelta(t, 1.0, sum, 1e-4)
				}
			}

			// The variables created match the summary counts.
			var trainable, nonTrainable int
			for v := range ctx.IterVariables() {
				if v.Trainable {
					trainable += v.Shape().Size()
				} else {
					nonTrainable += v.Shape().Size()
				}
			}
			wantTrainable, wantNonTrainable := model.NumParameters()
			assert.Equal(t, wantTrainable, trainable)
			assert.Equal(t, wantNonTrainable, nonTrainable)
		})
	}
}

func TestMish(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	output := context.MustExecOnce(backend, context.New(), func(ctx *context.Context, x *Node) *Node {
		return Mish{}.Apply(ctx, x)
	}, []float64{-20, -1, 0, 1, 20})
	got := output.Value().([]float64)
	// mish(x) = x * tanh(ln(1 + e^x))
	want := []float64{-4.122307e-8, -0.3034014, 0, 0.8650984, 20}
	for ii := range want {
		assert.InDelta(t, want[ii], got[ii], 1e-6)
	}
}

func TestCompile(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	t.Run("optimizer instance is kept", func(t *testing.T) {
		optimizer := optimizers.Adam().LearningRate(0.01).Done()
		compiled, err := New(context.New(), []int{4}, 3, 1, "accuracy").
			Output(io.Discard).Optimizer(optimizer).Compile(backend)
		require.NoError(t, err)
		assert.Same(t, optimizer, compiled.Optimizer())
		assert.Equal(t, 2, compiled.Model().NumDenseLayers())
		assert.Len(t, compiled.Metrics(), 1)
		assert.NotNil(t, compiled.Trainer())
		assert.Equal(t, "/"+ModelScope, compiled.Context().Scope())
	})

	t.Run("end to end description", func(t *testing.T) {
		compiled, err := New(context.New(), []int{28, 28}, 10, 3).Output(io.Discard).Compile(backend)
		require.NoError(t, err)
		model := compiled.Model()
		assert.Equal(t, []int{64, 64, 64}, model.Widths())
		assert.Equal(t, FinalSoftmax, model.OutputActivation())
		assert.Equal(t, 4, model.NumDenseLayers())
	})

	t.Run("failures", func(t *testing.T) {
		_, err := New(context.New(), []int{4}, 3, 1).Output(io.Discard).Optimizer("not_an_optimizer").Compile(backend)
		require.Error(t, err)
		_, err = New(context.New(), []int{4}, 3, 1).Output(io.Discard).Loss("not_a_loss").Compile(backend)
		require.Error(t, err)
		_, err = New(context.New(), []int{4}, 3, 1, "not_a_metric").Output(io.Discard).Compile(backend)
		require.Error(t, err)
	})
}

// TestCrossEntropyTraining checks that the first training steps work with the probability based losses,
// on any backend.
func TestCrossEntropyTraining(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, tc := range []struct {
		loss       string
		numClasses int
		oneHot     bool
	}{
		{LossCategoricalCrossEntropy, 3, true},
		{LossSparseCategoricalCrossEntropy, 3, false},
		{LossBinaryCrossEntropy, 2, true},
	} {
		t.Run(tc.loss, func(t *testing.T) {
			ds := must.M1(synthetic.Blobs(backend, synthetic.Config{
				NumExamples: 16, NumClasses: tc.numClasses, InputShape: []int{4}, Spread: 0.1, OneHot: tc.oneHot, Seed: 3,
			}))
			ds.BatchSize(8, true).Infinite(true)
			compiled, err := New(context.New(), []int{4}, tc.numClasses, 1).
				Output(io.Discard).BaseUnits(8).Loss(tc.loss).Compile(backend)
			require.NoError(t, err)
			_, err = compiled.Fit(ds, 2)
			require.NoError(t, err)
		})
	}
}

func TestCrossEntropyValues(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	labels := tensors.FromValue([][]float32{{0, 1, 0}, {1, 0, 0}})
	predictions := tensors.FromValue([][]float32{{0.2, 0.5, 0.3}, {0, 0, 1}})
	output := must.M1(ExecOnce(backend, func(labels, predictions *Node) *Node {
		return CategoricalCrossEntropy([]*Node{labels}, []*Node{predictions})
	}, labels, predictions))
	values := output.Value().([]float32)
	require.Len(t, values, 2)
	assert.InDelta(t, -math.Log(0.5), values[0], 1e-4)
	// A zero probability for the true class is clipped to ε instead of generating an infinity.
	assert.InDelta(t, -math.Log(1e-7), values[1], 0.5)

	binaryLabels := tensors.FromValue([][]float32{{1}, {0}})
	binaryPredictions := tensors.FromValue([][]float32{{0.8}, {1}})
	output = must.M1(ExecOnce(backend, func(labels, predictions *Node) *Node {
		return BinaryCrossEntropy([]*Node{labels}, []*Node{predictions})
	}, binaryLabels, binaryPredictions))
	binaryValues := output.Value().([][]float32)
	assert.InDelta(t, -math.Log(0.8), binaryValues[0][0], 1e-4)
	assert.InDelta(t, -math.Log(1e-7), binaryValues[1][0], 0.5)
}

func TestFit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training test in short mode")
	}
	backend := graphtest.BuildTestBackend()
	for _, tc := range []struct {
		optimizer  string
		numClasses int
		loss       string
		oneHot     bool
	}{
		{"Adam", 4, LossSparseCategoricalCrossEntropy, false},
		{"Nadam", 3, LossCategoricalCrossEntropy, true},
		{"RMSprop", 2, LossBinaryCrossEntropy, true},
	} {
		t.Run(tc.optimizer, func(t *testing.T) {
			config := synthetic.Config{
				NumExamples: 256, NumClasses: tc.numClasses, InputShape: []int{2, 3}, Spread: 0.05, OneHot: tc.oneHot, Seed: 7,
			}
			trainDS := must.M1(synthetic.Blobs(backend, config))
			trainDS.BatchSize(32, true).Shuffle().Infinite(true)
			config.Name = "eval"
			evalDS := must.M1(synthetic.Blobs(backend, config))
			evalDS.BatchSize(64, false)

			ctx := context.New()
			ctx.SetParam(optimizers.ParamLearningRate, 0.01)
			compiled, err := New(ctx, config.InputShape, tc.numClasses, 2, "accuracy").
				Output(io.Discard).BaseUnits(16).Optimizer(tc.optimizer).Loss(tc.loss).Compile(backend)
			require.NoError(t, err)
			_, err = compiled.Fit(trainDS, 300)
			require.NoError(t, err)

			values, err := compiled.Evaluate(evalDS)
			require.NoError(t, err)
			require.Len(t, values, 2) // Loss and accuracy.
			accuracy := tensors.ToScalar[float32](values[1])
			assert.Greater(t, accuracy, float32(0.95))

			evalDS.Reset()
			_, inputs, _, err := evalDS.Yield()
			require.NoError(t, err)
			predictions, err := compiled.Predict(inputs[0])
			require.NoError(t, err)
			assert.Equal(t, []int{64, tc.numClasses}, predictions.Shape().Dimensions)
		})
	}
}
