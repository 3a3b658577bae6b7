// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package optimizers

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gopjrt/dtypes"
)

const (
	// AdagradDefaultScope is the default scope name for the accumulators used by Adagrad.
	AdagradDefaultScope = "AdagradOptimizer"

	// ParamAdagradInitialAccumulator is the starting value of the accumulators. It must be a float64.
	// The default is 0.1.
	ParamAdagradInitialAccumulator = "adagrad_initial_accumulator"

	// ParamAdagradEpsilon configures Adagrad's epsilon. It must be a float64.
	ParamAdagradEpsilon = "adagrad_epsilon"

	// ParamAdagradDType sets the dtype of Adagrad's accumulators and computations.
	// Valid values: "" (empty, the default, uses the loss dtype), "float32", "float64".
	ParamAdagradDType = "adagrad_dtype"
)

// Adagrad optimizer adapts the learning rate of each parameter by the inverse of the square root of the
// sum of its squared gradients, so parameters that receive frequent updates take smaller steps.
//
// See [Duchi et al., 2011](http://jmlr.org/papers/v12/duchi11a.html).
//
// It returns a configuration object, call AdagradConfig.Done to create the optimizer.
func Adagrad() *AdagradConfig {
	return &AdagradConfig{
		scopeName:          AdagradDefaultScope,
		learningRate:       -1,
		initialAccumulator: 0.1,
		epsilon:            DefaultEpsilon,
		dtype:              dtypes.InvalidDType,
	}
}

// AdagradConfig holds the configuration of an Adagrad optimizer.
type AdagradConfig struct {
	scopeName          string
	dtype              dtypes.DType
	learningRate       float64
	initialAccumulator float64
	epsilon            float64
}

// FromContext configures Adagrad from the context hyperparameters: see ParamAdagradInitialAccumulator,
// ParamAdagradEpsilon and ParamAdagradDType.
func (c *AdagradConfig) FromContext(ctx *context.Context) *AdagradConfig {
	c.initialAccumulator = context.GetParamOr(ctx, ParamAdagradInitialAccumulator, c.initialAccumulator)
	c.epsilon = context.GetParamOr(ctx, ParamAdagradEpsilon, c.epsilon)
	if dtype := parseDTypeParam(ctx, ParamAdagradDType); dtype != dtypes.InvalidDType {
		c.dtype = dtype
	}
	return c
}

// Scope sets the scope where the accumulators are stored. It defaults to AdagradDefaultScope.
func (c *AdagradConfig) Scope(name string) *AdagradConfig {
	c.scopeName = name
	return c
}

// DType sets the dtype used by the accumulators. If dtypes.InvalidDType, the dtype of the loss is used.
func (c *AdagradConfig) DType(dtype dtypes.DType) *AdagradConfig {
	c.dtype = dtype
	return c
}

// LearningRate sets the learning rate.
// Default is the ParamLearningRate ("learning_rate") hyperparameter if set, or 0.001.
func (c *AdagradConfig) LearningRate(value float64) *AdagradConfig {
	c.learningRate = value
	return c
}

// InitialAccumulator sets the starting value of the accumulators. It must be non-negative.
func (c *AdagradConfig) InitialAccumulator(value float64) *AdagradConfig {
	c.initialAccumulator = value
	return c
}

// Epsilon sets the small constant added to the denominator.
func (c *AdagradConfig) Epsilon(epsilon float64) *AdagradConfig {
	c.epsilon = epsilon
	return c
}

// Done returns the configured Adagrad optimizer.
func (c *AdagradConfig) Done() optimizers.Interface {
	return &adagrad{config: c}
}

type adagrad struct {
	config *AdagradConfig
}

// UpdateGraph implements optimizers.Interface.
func (o *adagrad) UpdateGraph(ctx *context.Context, g *Graph, loss *Node) {
	grads := buildGradients(ctx, loss)
	dtype := optimizerDType(o.config.dtype, loss.DType())
	learningRate := learningRateGraph(ctx, g, dtype, o.config.learningRate)
	_ = optimizers.IncrementGlobalStepGraph(ctx, g, dtype)
	epsilon := Const(g, shapes.CastAsDType(o.config.epsilon, dtype))

	initialValue := o.config.initialAccumulator
	initializer := func(g *Graph, shape shapes.Shape) *Node {
		return AddScalar(Zeros(g, shape), initialValue)
	}
	trainableGradients(ctx, g, grads, func(v *context.Variable, grad *Node) {
		grad = prepareGradient(ctx, v, grad, dtype)
		accVar := slotVariable(ctx, o.config.scopeName, v, "accumulator", dtype, initializer)
		accumulator := Add(accVar.ValueGraph(g), Square(grad))
		accVar.SetValueGraph(accumulator)
		step := Div(Mul(learningRate, grad), Add(Sqrt(accumulator), epsilon))
		applyStep(ctx, g, v, step, dtype)
	})
}

// Clear implements optimizers.Interface.
func (o *adagrad) Clear(ctx *context.Context) error {
	return optimizerScope(ctx, o.config.scopeName).DeleteVariablesInScope()
}
