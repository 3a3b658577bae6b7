// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

// Package fnn assembles and compiles fully-connected feed-forward classifiers with a handful of knobs:
// the number of hidden layers, how their widths grow, the activation, the optimizer and the use of
// batch normalization and dropout.
//
// The defaults of every option can be given by hyperparameters set in the context, see the Param* constants.
//
// E.g.: a 3 hidden layers classifier of 28x28 images into 10 classes, trained with Adam:
//
//	compiled, err := fnn.New(ctx, []int{28, 28}, 10, 3, "accuracy").
//		Optimizer("Adam").
//		BatchNorm(true).
//		Dropout(true).
//		Compile(backend)
//	if err != nil { ... }
//	_, err = compiled.Fit(trainDS, 1000)
//
// The framework owns everything built: variables live in the context, training is done by train.Trainer.
package fnn

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// ParamBaseUnits is the number of units of the first hidden layer. Default is 64 (int).
	ParamBaseUnits = "simplynn_base_units"

	// ParamWidthPolicy is how the widths of the hidden layers grow: "constant" (default) or "doubling".
	ParamWidthPolicy = "simplynn_width_policy"

	// ParamOptimizer is the name of the optimizer. Default is "SGD". See NamedOptimizers.
	ParamOptimizer = "simplynn_optimizer"

	// ParamLoss is the name of the loss. Default is "categorical_crossentropy". See KnownLosses.
	ParamLoss = "simplynn_loss"

	// ParamDropout enables a dropout layer after each hidden layer. Default is false.
	ParamDropout = "simplynn_dropout"

	// ParamDropoutRate is the rate of the dropout layers, when enabled. Default is 0.25.
	ParamDropoutRate = "simplynn_dropout_rate"

	// ParamBatchNorm enables batch normalization after each hidden dense layer. Default is false.
	ParamBatchNorm = "simplynn_batch_norm"

	// ParamCustomActivation makes the activation name refer to a registered CustomLayer. Default is false.
	ParamCustomActivation = "simplynn_custom_activation"

	// ParamSummary enables printing the model summary when it is built. Default is true.
	ParamSummary = "simplynn_summary"
)

// Config for a feed-forward classifier, created with New. Configure it with its methods, then call Build
// to get the Model, or Compile to get a model ready to train.
type Config struct {
	ctx        *context.Context
	inputShape []int
	numClasses int
	numLayers  int
	metrics    []any

	baseUnits        int
	widthPolicy      WidthPolicy
	widthPolicyErr   error
	activation       string
	customActivation bool
	optimizer        any
	loss             any
	dropout          bool
	dropoutRate      float64
	batchNorm        bool
	summary          bool
	output           io.Writer
}

// New creates the configuration of a classifier of examples shaped inputShape (without the batch
// dimension) into numClasses classes, with numLayers hidden layers.
//
// metrics are names (see KnownMetrics) or metrics.Interface values, reported during training and evaluation.
//
// Defaults are read from the context hyperparameters, see the Param* constants and activations.ParamActivation.
func New(ctx *context.Context, inputShape []int, numClasses, numLayers int, metrics ...any) *Config {
	c := &Config{
		ctx:              ctx,
		inputShape:       slices.Clone(inputShape),
		numClasses:       numClasses,
		numLayers:        numLayers,
		metrics:          metrics,
		baseUnits:        context.GetParamOr(ctx, ParamBaseUnits, 64),
		activation:       context.GetParamOr(ctx, activations.ParamActivation, "relu"),
		customActivation: context.GetParamOr(ctx, ParamCustomActivation, false),
		optimizer:        context.GetParamOr(ctx, ParamOptimizer, "SGD"),
		loss:             context.GetParamOr(ctx, ParamLoss, LossCategoricalCrossEntropy),
		dropout:          context.GetParamOr(ctx, ParamDropout, false),
		dropoutRate:      context.GetParamOr(ctx, ParamDropoutRate, 0.25),
		batchNorm:        context.GetParamOr(ctx, ParamBatchNorm, false),
		summary:          context.GetParamOr(ctx, ParamSummary, true),
		output:           os.Stdout,
	}
	c.widthPolicy, c.widthPolicyErr = WidthPolicyFromName(context.GetParamOr(ctx, ParamWidthPolicy, ""))
	return c
}

// BaseUnits sets the number of units of the first hidden layer. Default is 64.
func (c *Config) BaseUnits(units int) *Config {
	c.baseUnits = units
	return c
}

// WidthPolicy sets how the widths of the hidden layers grow. Default is WidthConstant.
func (c *Config) WidthPolicy(policy WidthPolicy) *Config {
	c.widthPolicy, c.widthPolicyErr = policy, nil
	return c
}

// DoubleUnits is a shortcut to WidthPolicy(WidthDoubling) if true, or WidthPolicy(WidthConstant) otherwise.
func (c *Config) DoubleUnits(double bool) *Config {
	if double {
		return c.WidthPolicy(WidthDoubling)
	}
	return c.WidthPolicy(WidthConstant)
}

// Activation sets the activation of the hidden layers: a framework activation name (e.g.: "relu", "swish"),
// or the name of a registered CustomLayer if CustomActivation is set. Default is "relu".
func (c *Config) Activation(name string) *Config {
	c.activation = name
	return c
}

// CustomActivation sets whether the activation name refers to a CustomLayer registered with
// RegisterCustomLayer. Default is false.
func (c *Config) CustomActivation(custom bool) *Config {
	c.customActivation = custom
	return c
}

// Optimizer sets the optimizer: a name in NamedOptimizers, another name known by the framework, or an
// optimizers.Interface, which is used as is. Default is "SGD".
func (c *Config) Optimizer(optimizer any) *Config {
	c.optimizer = optimizer
	return c
}

// Loss sets the loss: a name in KnownLosses or a losses.LossFn. Default is "categorical_crossentropy".
func (c *Config) Loss(loss any) *Config {
	c.loss = loss
	return c
}

// Dropout enables a dropout layer after each hidden layer. Default is false.
func (c *Config) Dropout(enabled bool) *Config {
	c.dropout = enabled
	return c
}

// DropoutRate sets the rate of the dropout layers. Only used if Dropout is enabled. Default is 0.25.
func (c *Config) DropoutRate(rate float64) *Config {
	c.dropoutRate = rate
	return c
}

// BatchNorm enables batch normalization after each hidden dense layer, in which case the activation
// becomes a separate layer following the normalization. Default is false.
func (c *Config) BatchNorm(enabled bool) *Config {
	c.batchNorm = enabled
	return c
}

// Summary sets whether to print the model summary when it is built. Default is true.
func (c *Config) Summary(enabled bool) *Config {
	c.summary = enabled
	return c
}

// Output sets where the network description and summary are printed. Default is os.Stdout.
func (c *Config) Output(w io.Writer) *Config {
	c.output = w
	return c
}

// Build assembles the Model: a flatten layer, numLayers hidden blocks and the output layer.
//
// It prints a one-line description of the network, and the summary if enabled.
// No variables are created until the model graph is built.
func (c *Config) Build() (*Model, error) {
	if c.widthPolicyErr != nil {
		return nil, c.widthPolicyErr
	}
	final := OutputActivation(c.numClasses)
	widths := Widths(c.baseUnits, c.numLayers, c.widthPolicy)
	activation, err := ResolveActivation(c.activation, c.customActivation)
	if err != nil {
		return nil, err
	}
	_, err = fmt.Fprintf(c.output, "Defining a %d layered network initialized with %s and %s Optimization.\n",
		c.numLayers, c.activation, optimizerName(c.optimizer))
	if err != nil {
		return nil, errors.Wrap(err, "printing network description")
	}

	blocks := make([][]Layer, 0, len(widths))
	for _, units := range widths {
		blocks = append(blocks, HiddenBlock(units, activation, c.batchNorm, c.dropout, c.dropoutRate))
	}
	model := newModel(c.inputShape, c.numClasses, widths, blocks, final)
	klog.V(1).Infof("fnn: built model with widths %v, %s output and %d layers", widths, final, len(model.layers))
	if klog.V(2).Enabled() {
		for _, layer := range model.layers {
			klog.Infof("fnn:   %s: %s", layer.Name, layer.Describe())
		}
	}

	if c.summary {
		if err := model.Summary(c.output); err != nil {
			return nil, errors.Wrap(err, "printing model summary")
		}
	}
	return model, nil
}
