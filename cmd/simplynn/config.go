// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/digantamisra98/simplynn/pkg/ml/fnn"
	snoptimizers "github.com/digantamisra98/simplynn/pkg/ml/optimizers"
)

// modelOption binds a flag to a context hyperparameter.
type modelOption struct {
	flag, param string
	defaultVal  any
	usage       string
}

var modelOptions = []modelOption{
	{"base-units", fnn.ParamBaseUnits, 64, "Units of the first hidden layer."},
	{"width-policy", fnn.ParamWidthPolicy, "constant", `Widths of the hidden layers: "constant" or "doubling".`},
	{"activation", activations.ParamActivation, "relu", "Activation of the hidden layers."},
	{"custom-activation", fnn.ParamCustomActivation, false, "Activation names a registered custom layer (e.g. mish)."},
	{"optimizer", fnn.ParamOptimizer, "SGD", "Optimizer: SGD, Adam, RMSprop, Nadam, Adadelta, Adagrad, Adamax or a framework optimizer name."},
	{"loss", fnn.ParamLoss, fnn.LossCategoricalCrossEntropy, "Loss function."},
	{"dropout", fnn.ParamDropout, false, "Add a dropout layer after each hidden layer."},
	{"dropout-rate", fnn.ParamDropoutRate, 0.25, "Rate of the dropout layers."},
	{"batch-norm", fnn.ParamBatchNorm, false, "Add batch normalization after each hidden dense layer."},
	{"summary", fnn.ParamSummary, true, "Print the model summary."},
	{"learning-rate", optimizers.ParamLearningRate, 0.01, "Learning rate of the optimizer."},
}

// tunableParams are the hyperparameters, with their defaults, that can only be changed with --set.
// They must be present in the context for --set to accept them.
var tunableParams = map[string]any{
	optimizers.ParamClipStepByValue:             0.0,
	optimizers.ParamClipNaN:                     false,
	optimizers.ParamAdamEpsilon:                 1e-7,
	optimizers.ParamAdamBeta1:                   0.9,
	optimizers.ParamAdamBeta2:                   0.999,
	snoptimizers.ParamNadamEpsilon:              snoptimizers.DefaultEpsilon,
	snoptimizers.ParamNadamBeta1:                0.9,
	snoptimizers.ParamNadamBeta2:                0.999,
	snoptimizers.ParamAdadeltaRho:               0.95,
	snoptimizers.ParamAdadeltaEpsilon:           snoptimizers.DefaultEpsilon,
	snoptimizers.ParamAdagradEpsilon:            snoptimizers.DefaultEpsilon,
	snoptimizers.ParamAdagradInitialAccumulator: 0.1,
}

// addModelFlags adds the flags shared by the subcommands.
func addModelFlags(flags *pflag.FlagSet) {
	flags.IntSlice("input-shape", []int{28, 28}, "Shape of one example, without the batch dimension.")
	flags.Int("classes", 10, "Number of classes.")
	flags.Int("layers", 3, "Number of hidden layers.")
	flags.StringSlice("metrics", []string{"accuracy"}, "Metrics reported during training and evaluation.")
	for _, opt := range modelOptions {
		switch v := opt.defaultVal.(type) {
		case int:
			flags.Int(opt.flag, v, opt.usage)
		case float64:
			flags.Float64(opt.flag, v, opt.usage)
		case bool:
			flags.Bool(opt.flag, v, opt.usage)
		case string:
			flags.String(opt.flag, v, opt.usage)
		}
	}
}

// newViper reads the configuration in order of precedence: flags set explicitly, SIMPLYNN_* environment
// variables, the configuration file given by --config and the flag defaults.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SIMPLYNN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "binding flags")
	}
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading configuration from %q", configPath)
		}
		klog.V(1).Infof("configuration read from %q", v.ConfigFileUsed())
	}
	return v, nil
}

// modelContext creates the context with the model hyperparameters from the configuration, and then
// applies the --set settings on top.
func modelContext(v *viper.Viper) (*context.Context, error) {
	ctx := context.New()
	ctx.SetParams(tunableParams)
	for _, opt := range modelOptions {
		var value any
		switch opt.defaultVal.(type) {
		case int:
			value = v.GetInt(opt.flag)
		case float64:
			value = v.GetFloat64(opt.flag)
		case bool:
			value = v.GetBool(opt.flag)
		case string:
			value = v.GetString(opt.flag)
		}
		ctx.SetParam(opt.param, value)
	}
	paramsSet, err := commandline.ParseContextSettings(ctx, v.GetString("set"))
	if err != nil {
		return nil, errors.WithMessage(err, "parsing --set")
	}
	if len(paramsSet) > 0 {
		klog.V(1).Infof("hyperparameters set with --set: %q", paramsSet)
	}
	return ctx, nil
}

// modelShape returns the input shape, number of classes and hidden layers from the configuration.
func modelShape(v *viper.Viper) (inputShape []int, numClasses, numLayers int) {
	return v.GetIntSlice("input-shape"), v.GetInt("classes"), v.GetInt("layers")
}

// metricIDs converts the configured metric names to the identifiers taken by fnn.New.
func metricIDs(v *viper.Viper) []any {
	names := v.GetStringSlice("metrics")
	ids := make([]any, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			ids = append(ids, name)
		}
	}
	return ids
}
