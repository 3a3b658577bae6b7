// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputActivation(t *testing.T) {
	assert.Equal(t, FinalSigmoid, OutputActivation(2))
	for _, numClasses := range []int{0, 1, 3, 10, 1000} {
		assert.Equalf(t, FinalSoftmax, OutputActivation(numClasses), "numClasses=%d", numClasses)
	}
}

func TestWidths(t *testing.T) {
	assert.Equal(t, []int{64, 64, 64}, Widths(64, 3, WidthConstant))
	assert.Equal(t, []int{64, 128, 256, 512}, Widths(64, 4, WidthDoubling))
	assert.Equal(t, []int{10}, Widths(10, 1, WidthDoubling))
	assert.Empty(t, Widths(64, 0, WidthConstant))
	for numLayers := range 6 {
		for _, policy := range []WidthPolicy{WidthConstant, WidthDoubling} {
			widths := Widths(3, numLayers, policy)
			require.Len(t, widths, numLayers)
			for ii, w := range widths {
				if policy == WidthConstant {
					assert.Equal(t, 3, w)
				} else {
					assert.Equal(t, 3<<ii, w)
				}
			}
		}
	}
}

func TestWidthPolicyFromName(t *testing.T) {
	for name, want := range map[string]WidthPolicy{"": WidthConstant, "constant": WidthConstant, "doubling": WidthDoubling} {
		got, err := WidthPolicyFromName(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := WidthPolicyFromName("tripling")
	require.Error(t, err)
}

func TestHiddenBlock(t *testing.T) {
	relu := BuiltinActivation(activations.TypeRelu)
	testCases := []struct {
		batchNorm, dropout bool
		want               []LayerKind
		inlineActivation   bool
	}{
		{true, true, []LayerKind{KindDense, KindNormalization, KindActivation, KindDropout}, false},
		{true, false, []LayerKind{KindDense, KindNormalization, KindActivation}, false},
		{false, true, []LayerKind{KindDense, KindDropout}, true},
		{false, false, []LayerKind{KindDense}, true},
	}
	for _, tc := range testCases {
		block := HiddenBlock(32, relu, tc.batchNorm, tc.dropout, 0.5)
		kinds := make([]LayerKind, len(block))
		for ii, layer := range block {
			kinds[ii] = layer.Kind
		}
		if diff := cmp.Diff(tc.want, kinds); diff != "" {
			t.Errorf("HiddenBlock(batchNorm=%v, dropout=%v) kinds mismatch (-want +got):\n%s",
				tc.batchNorm, tc.dropout, diff)
		}
		dense := block[0]
		assert.Equal(t, 32, dense.Units)
		assert.Equal(t, tc.inlineActivation, dense.HasActivation)
		if tc.dropout {
			assert.Equal(t, 0.5, block[len(block)-1].Rate)
		}
	}
}

func newTestConfig(numClasses, numLayers int) (*Config, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(context.New(), []int{8}, numClasses, numLayers).Output(buf), buf
}

func TestBuild(t *testing.T) {
	t.Run("three constant layers", func(t *testing.T) {
		c, buf := newTestConfig(10, 3)
		model, err := c.BaseUnits(64).Build()
		require.NoError(t, err)
		assert.Equal(t, []int{64, 64, 64}, model.Widths())
		assert.Equal(t, FinalSoftmax, model.OutputActivation())
		assert.Equal(t, 4, model.NumDenseLayers())
		assert.Equal(t, 10, model.NumClasses())
		want := []LayerKind{KindFlatten, KindDense, KindDense, KindDense, KindDense}
		if diff := cmp.Diff(want, model.Kinds()); diff != "" {
			t.Errorf("layer kinds mismatch (-want +got):\n%s", diff)
		}
		output := buf.String()
		assert.Contains(t, output, "Defining a 3 layered network initialized with relu and SGD Optimization.\n")
		assert.Contains(t, output, `Model: "sequential"`)
	})

	t.Run("binary with normalization and dropout", func(t *testing.T) {
		c, _ := newTestConfig(2, 2)
		model, err := c.BaseUnits(16).DoubleUnits(true).BatchNorm(true).Dropout(true).DropoutRate(0.1).
			Activation("tanh").Summary(false).Build()
		require.NoError(t, err)
		assert.Equal(t, []int{16, 32}, model.Widths())
		assert.Equal(t, FinalSigmoid, model.OutputActivation())
		var names []string
		for _, layer := range model.Layers() {
			names = append(names, layer.Name)
		}
		want := []string{
			"flatten",
			"dense", "batch_normalization", "activation", "dropout",
			"dense_1", "batch_normalization_1", "activation_1", "dropout_1",
			"dense_2",
		}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("layer names mismatch (-want +got):\n%s", diff)
		}
		last := model.Layers()[len(names)-1]
		assert.True(t, last.IsOutput)
		assert.Equal(t, 2, last.Units)
	})

	t.Run("summary disabled", func(t *testing.T) {
		c, buf := newTestConfig(3, 1)
		_, err := c.Summary(false).Build()
		require.NoError(t, err)
		assert.NotContains(t, buf.String(), "Model:")
	})

	t.Run("invalid activation", func(t *testing.T) {
		c, _ := newTestConfig(3, 1)
		_, err := c.Activation("not_an_activation").Build()
		require.Error(t, err)
	})

	t.Run("unregistered custom activation", func(t *testing.T) {
		c, _ := newTestConfig(3, 1)
		_, err := c.Activation("relu").CustomActivation(true).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mish")
	})
}

func TestBuildFromContext(t *testing.T) {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		ParamBaseUnits:              8,
		ParamWidthPolicy:            "doubling",
		activations.ParamActivation: "swish",
		ParamBatchNorm:              true,
		ParamSummary:                false,
	})
	var buf bytes.Buffer
	model, err := New(ctx, []int{4, 4}, 5, 3).Output(&buf).Build()
	require.NoError(t, err)
	assert.Equal(t, []int{8, 16, 32}, model.Widths())
	assert.Equal(t, []int{4, 4}, model.InputShape())
	assert.Contains(t, buf.String(), "initialized with swish and")
	for _, layer := range model.Layers() {
		if layer.Kind == KindActivation {
			assert.Equal(t, "swish", layer.Activation.Name())
		}
	}

	ctx.SetParam(ParamWidthPolicy, "zigzag")
	_, err = New(ctx, []int{4}, 5, 3).Output(io.Discard).Build()
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	c, _ := newTestConfig(3, 2)
	model, err := c.BaseUnits(4).BatchNorm(true).Summary(false).Build()
	require.NoError(t, err)
	// dense: 8*4+4=36, batch_normalization: 5*4=20 (8 trainable), dense_1: 4*4+4=20,
	// batch_normalization_1: 20 (8 trainable), dense_2: 4*3+3=15.
	trainable, nonTrainable := model.NumParameters()
	assert.Equal(t, 36+8+20+8+15, trainable)
	assert.Equal(t, 24, nonTrainable)

	var buf bytes.Buffer
	require.NoError(t, model.Summary(&buf))
	summary := buf.String()
	for _, want := range []string{
		"dense (Dense)", "batch_normalization (BatchNormalization)", "activation_1 (Activation)",
		"(None, 4)", "(None, 3)", "Total params: 111", "Trainable params: 87", "Non-trainable params: 24",
	} {
		assert.Truef(t, strings.Contains(summary, want), "summary missing %q:\n%s", want, summary)
	}
}
