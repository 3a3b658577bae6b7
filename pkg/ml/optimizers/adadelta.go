// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package optimizers

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/initializers"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gopjrt/dtypes"
)

const (
	// AdadeltaDefaultScope is the default scope name for the running averages used by Adadelta.
	AdadeltaDefaultScope = "AdadeltaOptimizer"

	// ParamAdadeltaRho is the decay rate of the running averages. It must be a float64, default is 0.95.
	ParamAdadeltaRho = "adadelta_rho"

	// ParamAdadeltaEpsilon configures Adadelta's epsilon. It must be a float64.
	ParamAdadeltaEpsilon = "adadelta_epsilon"

	// ParamAdadeltaDType sets the dtype of Adadelta's running averages and computations.
	// Valid values: "" (empty, the default, uses the loss dtype), "float32", "float64".
	ParamAdadeltaDType = "adadelta_dtype"
)

// Adadelta optimizer scales each update by the ratio of the running root mean square of the past updates
// and of the gradients, so the step sizes are in the units of the parameters.
//
// See [Zeiler, 2012](https://arxiv.org/abs/1212.5701). Like Keras, it still multiplies the update by a
// learning rate, so use a learning rate of 1.0 to match the paper.
//
// It returns a configuration object, call AdadeltaConfig.Done to create the optimizer.
func Adadelta() *AdadeltaConfig {
	return &AdadeltaConfig{
		scopeName:    AdadeltaDefaultScope,
		learningRate: -1,
		rho:          0.95,
		epsilon:      DefaultEpsilon,
		dtype:        dtypes.InvalidDType,
	}
}

// AdadeltaConfig holds the configuration of an Adadelta optimizer.
type AdadeltaConfig struct {
	scopeName    string
	dtype        dtypes.DType
	learningRate float64
	rho          float64
	epsilon      float64
}

// FromContext configures Adadelta from the context hyperparameters: see ParamAdadeltaRho,
// ParamAdadeltaEpsilon and ParamAdadeltaDType.
func (c *AdadeltaConfig) FromContext(ctx *context.Context) *AdadeltaConfig {
	c.rho = context.GetParamOr(ctx, ParamAdadeltaRho, c.rho)
	c.epsilon = context.GetParamOr(ctx, ParamAdadeltaEpsilon, c.epsilon)
	if dtype := parseDTypeParam(ctx, ParamAdadeltaDType); dtype != dtypes.InvalidDType {
		c.dtype = dtype
	}
	return c
}

// Scope sets the scope where the running averages are stored. It defaults to AdadeltaDefaultScope.
func (c *AdadeltaConfig) Scope(name string) *AdadeltaConfig {
	c.scopeName = name
	return c
}

// DType sets the dtype used by the running averages. If dtypes.InvalidDType, the dtype of the loss is used.
func (c *AdadeltaConfig) DType(dtype dtypes.DType) *AdadeltaConfig {
	c.dtype = dtype
	return c
}

// LearningRate sets the learning rate.
// Default is the ParamLearningRate ("learning_rate") hyperparameter if set, or 0.001.
func (c *AdadeltaConfig) LearningRate(value float64) *AdadeltaConfig {
	c.learningRate = value
	return c
}

// Rho sets the decay rate of the running averages.
func (c *AdadeltaConfig) Rho(rho float64) *AdadeltaConfig {
	c.rho = rho
	return c
}

// Epsilon sets the small constant added inside the square roots.
func (c *AdadeltaConfig) Epsilon(epsilon float64) *AdadeltaConfig {
	c.epsilon = epsilon
	return c
}

// Done returns the configured Adadelta optimizer.
func (c *AdadeltaConfig) Done() optimizers.Interface {
	return &adadelta{config: c}
}

type adadelta struct {
	config *AdadeltaConfig
}

// UpdateGraph implements optimizers.Interface.
func (o *adadelta) UpdateGraph(ctx *context.Context, g *Graph, loss *Node) {
	grads := buildGradients(ctx, loss)
	dtype := optimizerDType(o.config.dtype, loss.DType())
	learningRate := learningRateGraph(ctx, g, dtype, o.config.learningRate)
	_ = optimizers.IncrementGlobalStepGraph(ctx, g, dtype)
	rho := Const(g, shapes.CastAsDType(o.config.rho, dtype))
	epsilon := Const(g, shapes.CastAsDType(o.config.epsilon, dtype))

	trainableGradients(ctx, g, grads, func(v *context.Variable, grad *Node) {
		grad = prepareGradient(ctx, v, grad, dtype)
		gradVar := slotVariable(ctx, o.config.scopeName, v, "accumulated_grad", dtype, initializers.Zero)
		deltaVar := slotVariable(ctx, o.config.scopeName, v, "accumulated_delta", dtype, initializers.Zero)

		accumulatedGrad := Add(Mul(rho, gradVar.ValueGraph(g)), Mul(OneMinus(rho), Square(grad)))
		gradVar.SetValueGraph(accumulatedGrad)
		accumulatedDelta := deltaVar.ValueGraph(g)
		delta := Mul(
			Div(Sqrt(Add(accumulatedDelta, epsilon)), Sqrt(Add(accumulatedGrad, epsilon))),
			grad)
		deltaVar.SetValueGraph(Add(Mul(rho, accumulatedDelta), Mul(OneMinus(rho), Square(delta))))
		applyStep(ctx, g, v, Mul(learningRate, delta), dtype)
	})
}

// Clear implements optimizers.Interface.
func (o *adadelta) Clear(ctx *context.Context) error {
	return optimizerScope(ctx, o.config.scopeName).DeleteVariablesInScope()
}
