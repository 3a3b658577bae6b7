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
	// NadamDefaultScope is the default scope name for the moments and step used by Nadam.
	NadamDefaultScope = "NadamOptimizer"

	// ParamNadamBeta1 is the decay of the gradient moving average (momentum). Default is 0.9.
	ParamNadamBeta1 = "nadam_beta1"

	// ParamNadamBeta2 is the decay of the squared gradient moving average. Default is 0.999.
	ParamNadamBeta2 = "nadam_beta2"

	// ParamNadamEpsilon configures Nadam's epsilon. It must be a float64.
	ParamNadamEpsilon = "nadam_epsilon"

	// ParamNadamDType sets the dtype of Nadam's moments and computations.
	// Valid values: "" (empty, the default, uses the loss dtype), "float32", "float64".
	ParamNadamDType = "nadam_dtype"
)

// Nadam is Adam with Nesterov momentum: the step uses the momentum looked ahead by one step, combining
// the debiased moving average of the gradients with the current gradient.
//
// See [Dozat, 2016](https://openreview.net/pdf/OM0jvwB8jIp57ZJjtNEZ.pdf). The momentum decay schedule
// of the paper is not used: beta1 is constant.
//
// It returns a configuration object, call NadamConfig.Done to create the optimizer.
func Nadam() *NadamConfig {
	return &NadamConfig{
		scopeName:    NadamDefaultScope,
		learningRate: -1,
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      DefaultEpsilon,
		dtype:        dtypes.InvalidDType,
	}
}

// NadamConfig holds the configuration of a Nadam optimizer.
type NadamConfig struct {
	scopeName    string
	dtype        dtypes.DType
	learningRate float64
	beta1, beta2 float64
	epsilon      float64
}

// FromContext configures Nadam from the context hyperparameters: see ParamNadamBeta1, ParamNadamBeta2,
// ParamNadamEpsilon and ParamNadamDType.
func (c *NadamConfig) FromContext(ctx *context.Context) *NadamConfig {
	c.beta1 = context.GetParamOr(ctx, ParamNadamBeta1, c.beta1)
	c.beta2 = context.GetParamOr(ctx, ParamNadamBeta2, c.beta2)
	c.epsilon = context.GetParamOr(ctx, ParamNadamEpsilon, c.epsilon)
	if dtype := parseDTypeParam(ctx, ParamNadamDType); dtype != dtypes.InvalidDType {
		c.dtype = dtype
	}
	return c
}

// Scope sets the scope where the moments and step counter are stored. It defaults to NadamDefaultScope.
func (c *NadamConfig) Scope(name string) *NadamConfig {
	c.scopeName = name
	return c
}

// DType sets the dtype used by the moments. If dtypes.InvalidDType, the dtype of the loss is used.
func (c *NadamConfig) DType(dtype dtypes.DType) *NadamConfig {
	c.dtype = dtype
	return c
}

// LearningRate sets the learning rate.
// Default is the ParamLearningRate ("learning_rate") hyperparameter if set, or 0.001.
func (c *NadamConfig) LearningRate(value float64) *NadamConfig {
	c.learningRate = value
	return c
}

// Betas sets the decays of the moving averages of the gradients and of the squared gradients.
func (c *NadamConfig) Betas(beta1, beta2 float64) *NadamConfig {
	c.beta1, c.beta2 = beta1, beta2
	return c
}

// Epsilon sets the small constant added to the denominator.
func (c *NadamConfig) Epsilon(epsilon float64) *NadamConfig {
	c.epsilon = epsilon
	return c
}

// Done returns the configured Nadam optimizer.
func (c *NadamConfig) Done() optimizers.Interface {
	return &nadam{config: c}
}

type nadam struct {
	config *NadamConfig
}

// UpdateGraph implements optimizers.Interface.
func (o *nadam) UpdateGraph(ctx *context.Context, g *Graph, loss *Node) {
	grads := buildGradients(ctx, loss)
	dtype := optimizerDType(o.config.dtype, loss.DType())
	learningRate := learningRateGraph(ctx, g, dtype, o.config.learningRate)
	_ = optimizers.IncrementGlobalStepGraph(ctx, g, dtype)

	// Separate step count, so it can be reset with Clear.
	step := optimizers.IncrementGlobalStepGraph(optimizerScope(ctx, o.config.scopeName), g, dtype)
	beta1 := Const(g, shapes.CastAsDType(o.config.beta1, dtype))
	beta2 := Const(g, shapes.CastAsDType(o.config.beta2, dtype))
	epsilon := Const(g, shapes.CastAsDType(o.config.epsilon, dtype))
	debiasMomentum := Reciprocal(OneMinus(Pow(beta1, step)))
	debiasNextMomentum := Reciprocal(OneMinus(Pow(beta1, AddScalar(step, 1))))
	debiasVariance := Reciprocal(OneMinus(Pow(beta2, step)))

	trainableGradients(ctx, g, grads, func(v *context.Variable, grad *Node) {
		grad = prepareGradient(ctx, v, grad, dtype)
		m1Var := slotVariable(ctx, o.config.scopeName, v, "1st_moment", dtype, initializers.Zero)
		m2Var := slotVariable(ctx, o.config.scopeName, v, "2nd_moment", dtype, initializers.Zero)

		moment1 := Add(Mul(beta1, m1Var.ValueGraph(g)), Mul(OneMinus(beta1), grad))
		m1Var.SetValueGraph(moment1)
		moment2 := Add(Mul(beta2, m2Var.ValueGraph(g)), Mul(OneMinus(beta2), Square(grad)))
		m2Var.SetValueGraph(moment2)

		// Nesterov: look-ahead momentum plus the current gradient contribution.
		nesterov := Add(
			Mul(Mul(beta1, moment1), debiasNextMomentum),
			Mul(Mul(OneMinus(beta1), grad), debiasMomentum))
		denominator := Add(Sqrt(Mul(moment2, debiasVariance)), epsilon)
		applyStep(ctx, g, v, Div(Mul(learningRate, nesterov), denominator), dtype)
	})
}

// Clear implements optimizers.Interface.
func (o *nadam) Clear(ctx *context.Context) error {
	return optimizerScope(ctx, o.config.scopeName).DeleteVariablesInScope()
}
