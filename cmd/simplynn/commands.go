// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/digantamisra98/simplynn/pkg/ml/fnn"
	"github.com/digantamisra98/simplynn/pkg/ml/synthetic"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "simplynn",
		Short:         "Build and train feed-forward classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().String("config", "", "Configuration file (YAML, TOML or JSON) with the option values.")
	rootCmd.PersistentFlags().String("set", "", `Hyperparameters settings, e.g. "learning_rate=0.003;adam_epsilon=1e-6".`)
	rootCmd.AddCommand(newSummaryCmd(), newTrainCmd())
	return rootCmd
}

func newSummaryCmd() *cobra.Command {
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the structure of the network",
		Args:  cobra.NoArgs,
		RunE:  summaryHandler,
	}
	addModelFlags(summaryCmd.Flags())
	return summaryCmd
}

func newTrainCmd() *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train the network on a synthetic Gaussian blobs dataset",
		Args:  cobra.NoArgs,
		RunE:  trainHandler,
	}
	addModelFlags(trainCmd.Flags())
	trainCmd.Flags().Int("steps", 1000, "Number of training steps.")
	trainCmd.Flags().Int("batch-size", 32, "Batch size.")
	trainCmd.Flags().Int("examples", 2048, "Number of training examples. Evaluation uses a quarter of it.")
	trainCmd.Flags().Float64("spread", 0.3, "Standard deviation of the classes clusters.")
	trainCmd.Flags().Uint64("seed", 1, "Seed of the synthetic data.")
	trainCmd.Flags().String("checkpoint-dir", "", "Base directory where to save checkpoints. Disabled if empty.")
	trainCmd.Flags().String("checkpoint", "", "Name of the checkpoint, under --checkpoint-dir. A unique name is generated if empty.")
	trainCmd.Flags().Int("keep", 3, "Number of checkpoints to keep.")
	trainCmd.Flags().Bool("progress", true, "Display a progress bar.")
	return trainCmd
}

// prepare reads the configuration and creates the model configuration.
func prepare(cmd *cobra.Command) (*viper.Viper, *context.Context, *fnn.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, err := modelContext(v)
	if err != nil {
		return nil, nil, nil, err
	}
	inputShape, numClasses, numLayers := modelShape(v)
	config := fnn.New(ctx, inputShape, numClasses, numLayers, metricIDs(v)...).Output(cmd.OutOrStdout())
	return v, ctx, config, nil
}

func summaryHandler(cmd *cobra.Command, _ []string) error {
	_, _, config, err := prepare(cmd)
	if err != nil {
		return err
	}
	_, err = config.Summary(true).Build()
	return err
}

func trainHandler(cmd *cobra.Command, _ []string) error {
	v, ctx, config, err := prepare(cmd)
	if err != nil {
		return err
	}
	klog.V(1).Infof("hyperparameters:\n%s", commandline.SprintContextSettings(ctx))

	var backend backends.Backend
	if err := exceptions.TryCatch[error](func() { backend = backends.MustNew() }); err != nil {
		return errors.WithMessage(err, "creating backend")
	}
	defer backend.Finalize()

	compiled, err := config.Compile(backend)
	if err != nil {
		return err
	}

	checkpoint, err := newCheckpoint(v, ctx)
	if err != nil {
		return err
	}

	inputShape, numClasses, _ := modelShape(v)
	loss := context.GetParamOr(ctx, fnn.ParamLoss, fnn.LossCategoricalCrossEntropy)
	blobs := synthetic.Config{
		Name:        "train",
		NumExamples: v.GetInt("examples"),
		NumClasses:  numClasses,
		InputShape:  inputShape,
		Spread:      v.GetFloat64("spread"),
		OneHot:      loss != fnn.LossSparseCategoricalCrossEntropy,
		Seed:        v.GetUint64("seed"),
	}
	trainDS, err := synthetic.Blobs(backend, blobs)
	if err != nil {
		return err
	}
	trainDS.BatchSize(v.GetInt("batch-size"), true).Shuffle().Infinite(true)
	blobs.Name = "eval"
	blobs.NumExamples = max(blobs.NumExamples/4, 1)
	evalDS, err := synthetic.Blobs(backend, blobs)
	if err != nil {
		return err
	}
	evalDS.BatchSize(v.GetInt("batch-size"), false)

	compiled.ProgressBar = v.GetBool("progress")
	if _, err = compiled.Fit(trainDS, v.GetInt("steps")); err != nil {
		return err
	}
	if checkpoint != nil {
		if err := checkpoint.Save(); err != nil {
			return errors.WithMessagef(err, "saving checkpoint to %q", checkpoint.Dir())
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint saved to %s\n", checkpoint.Dir())
	}
	return commandline.ReportEval(compiled.Trainer(), evalDS)
}

// newCheckpoint creates the checkpoint handler, if --checkpoint-dir is set. It loads the latest checkpoint,
// if there is one, so training continues from where it stopped.
func newCheckpoint(v *viper.Viper, ctx *context.Context) (*checkpoints.Handler, error) {
	baseDir := v.GetString("checkpoint-dir")
	if baseDir == "" {
		return nil, nil
	}
	name := v.GetString("checkpoint")
	if name == "" {
		name = "simplynn-" + uuid.NewString()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating checkpoint directory %q", baseDir)
	}
	handler, err := checkpoints.Build(ctx).
		DirFromBase(name, baseDir).
		Keep(v.GetInt("keep")).
		Done()
	if err != nil {
		return nil, errors.WithMessagef(err, "creating checkpoint %q", filepath.Join(baseDir, name))
	}
	klog.V(1).Infof("checkpoint: %s", handler)
	return handler, nil
}
