// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

// Package optimizers implements the adaptive optimizers the framework doesn't provide: Adagrad, Adadelta
// and Nadam. They implement the framework's optimizers.Interface, so they can be used with train.Trainer.
//
// They follow the framework's Adam: a configuration object built with Adagrad(), Adadelta() or Nadam(),
// optionally configured from context hyperparameters with FromContext, and finalized with Done.
// The optimizer state ("slots") is stored in non-trainable variables under the optimizer's own scope,
// mirroring the scope of each trainable variable, and it is removed by Clear.
//
// The hyperparameters ParamClipStepByValue ("clip_step_by_value"), ParamClipNaN ("clip_nan") and
// ParamNanLogger ("nanlogger") of the framework's optimizers package are honored.
package optimizers

import (
	"fmt"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gopjrt/dtypes"
)

// DefaultLearningRate is used by all optimizers in this package if no learning rate is configured
// and ParamLearningRate ("learning_rate") is not set in the context.
const DefaultLearningRate = 0.001

// DefaultEpsilon is the default small constant added for numeric stability.
const DefaultEpsilon = 1e-7

// learningRateGraph returns the learning rate: the configured value if >= 0, otherwise taken from
// the context, with the given default.
func learningRateGraph(ctx *context.Context, g *Graph, dtype dtypes.DType, configured float64) *Node {
	value := configured
	if value < 0 {
		value = context.GetParamOr(ctx, optimizers.ParamLearningRate, DefaultLearningRate)
	}
	return optimizers.LearningRateVar(ctx, dtype, value).ValueGraph(g)
}

// trainableGradients calls fn for each trainable variable used in g, paired with its gradient.
// grads is the output of Context.BuildTrainableVariablesGradientsGraph.
func trainableGradients(ctx *context.Context, g *Graph, grads []*Node, fn func(v *context.Variable, grad *Node)) {
	numTrainable := len(grads)
	varIdx := 0
	for v := range ctx.IterVariables() {
		if !v.Trainable || !v.InUseByGraph(g) {
			continue
		}
		if varIdx < numTrainable {
			fn(v, grads[varIdx])
		}
		varIdx++
	}
	if varIdx != numTrainable {
		exceptions.Panicf("Context.BuildTrainableVariablesGradientsGraph returned gradients for %d variables, but "+
			"the optimizer sees %d trainable variables -- were new variables created in between ?",
			numTrainable, varIdx)
	}
}

// buildGradients returns the gradients of the trainable variables with respect to the loss, which must be
// a scalar.
func buildGradients(ctx *context.Context, loss *Node) []*Node {
	if !loss.Shape().IsScalar() {
		exceptions.Panicf("optimizer requires a scalar loss to optimize, got loss.shape=%s instead", loss.Shape())
	}
	grads := ctx.BuildTrainableVariablesGradientsGraph(loss)
	if len(grads) == 0 {
		exceptions.Panicf(
			"Context.BuildTrainableVariablesGradientsGraph returned 0 gradients, are there any trainable variables ?")
	}
	return grads
}

// prepareGradient converts the gradient to the dtype used by the optimizer, reports NaNs to the
// configured tracer and clips them if requested.
func prepareGradient(ctx *context.Context, v *context.Variable, grad *Node, dtype dtypes.DType) *Node {
	if grad.DType() != dtype {
		grad = ConvertDType(grad, dtype)
	}
	optimizers.TraceNaNInGradients(ctx, v, grad)
	return optimizers.ClipNaNsInGradients(ctx, grad)
}

// applyStep subtracts step from the variable value, after clipping it if requested.
func applyStep(ctx *context.Context, g *Graph, v *context.Variable, step *Node, dtype dtypes.DType) {
	value := v.ValueGraph(g)
	if value.DType() != dtype {
		value = ConvertDType(value, dtype)
	}
	step = optimizers.ClipStepByValue(ctx, step)
	updated := Sub(value, step)
	updated = optimizers.ClipNaNsInUpdates(ctx, value, updated)
	if v.Shape().DType != dtype {
		updated = ConvertDType(updated, v.Shape().DType)
	}
	v.SetValueGraph(updated)
}

// optimizerScope returns ctx in the absolute scope "/<scopeName>", where an optimizer keeps its state,
// regardless of the scope of ctx.
func optimizerScope(ctx *context.Context, scopeName string) *context.Context {
	return ctx.InAbsPath(context.ScopeSeparator + scopeName)
}

// slotVariable returns the optimizer state variable named "<variable name>_<slot>" for the trainable
// variable v, stored under "/<scopeName><scope of v>". It is created with initializer if it doesn't exist.
func slotVariable(ctx *context.Context, scopeName string, v *context.Variable, slot string,
	dtype dtypes.DType, initializer context.VariableInitializer) *context.Variable {
	scopePath := fmt.Sprintf("%s%s%s", context.ScopeSeparator, scopeName, v.Scope())
	shape := v.Shape().Clone()
	shape.DType = dtype
	return ctx.Checked(false).
		InAbsPath(scopePath).
		WithInitializer(initializer).
		VariableWithShape(fmt.Sprintf("%s_%s", v.Name(), slot), shape).
		SetTrainable(false)
}

// optimizerDType returns the dtype used for the optimizer computations: the configured one, or the
// loss dtype if not configured.
func optimizerDType(configured, lossDType dtypes.DType) dtypes.DType {
	if configured == dtypes.InvalidDType {
		return lossDType
	}
	return configured
}

// parseDTypeParam reads an optional dtype hyperparameter, which must be a float dtype if set.
func parseDTypeParam(ctx *context.Context, param string) dtypes.DType {
	dtypeStr := context.GetParamOr(ctx, param, "")
	if dtypeStr == "" {
		return dtypes.InvalidDType
	}
	dtype, err := dtypes.DTypeString(dtypeStr)
	if err != nil || !dtype.IsFloat() {
		exceptions.Panicf("Invalid hyperparameter value %s=%q", param, dtypeStr)
	}
	return dtype
}
