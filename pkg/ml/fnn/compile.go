// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ModelScope is the context scope, relative to the context given to New, under which the model
// variables are created.
const ModelScope = "model"

// Compiled is a Model bound to its loss, optimizer and metrics in a train.Trainer, ready to be trained.
type Compiled struct {
	model     *Model
	backend   backends.Backend
	ctx       *context.Context
	trainer   *train.Trainer
	optimizer optimizers.Interface
	loss      losses.LossFn
	metrics   []metrics.Interface

	// ProgressBar enables a command-line progress bar in Fit.
	ProgressBar bool
}

// Compile resolves the optimizer, builds the Model (see Build), resolves the loss and metrics and
// creates the train.Trainer that will train it with the given backend.
func (c *Config) Compile(backend backends.Backend) (*Compiled, error) {
	optimizer, err := ResolveOptimizer(c.ctx, c.optimizer)
	if err != nil {
		return nil, err
	}
	model, err := c.Build()
	if err != nil {
		return nil, err
	}
	lossFn, err := ResolveLoss(c.loss)
	if err != nil {
		return nil, err
	}
	trainMetrics, evalMetrics, err := ResolveMetrics(c.metrics, c.numClasses, c.loss)
	if err != nil {
		return nil, err
	}

	compiled := &Compiled{
		model:     model,
		backend:   backend,
		ctx:       c.ctx.In(ModelScope),
		optimizer: optimizer,
		loss:      lossFn,
		metrics:   evalMetrics,
	}
	err = exceptions.TryCatch[error](func() {
		compiled.trainer = train.NewTrainer(backend, compiled.ctx, model.ModelFn(), lossFn, optimizer,
			trainMetrics, evalMetrics)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "creating trainer")
	}
	klog.V(1).Infof("fnn: compiled model with optimizer %s and loss %s", optimizerName(c.optimizer), lossDescription(c.loss))
	return compiled, nil
}

func lossDescription(loss any) string {
	if name := lossName(loss); name != "" {
		return name
	}
	return "<custom>"
}

// Model returns the compiled Model.
func (m *Compiled) Model() *Model { return m.model }

// Trainer returns the framework trainer, for custom training loops.
func (m *Compiled) Trainer() *train.Trainer { return m.trainer }

// Optimizer returns the resolved optimizer. If an optimizers.Interface was configured, it is that same object.
func (m *Compiled) Optimizer() optimizers.Interface { return m.optimizer }

// Loss returns the resolved loss function.
func (m *Compiled) Loss() losses.LossFn { return m.loss }

// Metrics returns the evaluation metrics.
func (m *Compiled) Metrics() []metrics.Interface { return m.metrics }

// Context returns the context holding the model variables.
func (m *Compiled) Context() *context.Context { return m.ctx }

// Backend used to train and execute the model.
func (m *Compiled) Backend() backends.Backend { return m.backend }

// Fit trains for the given number of steps, each a batch yielded by ds, and returns the last training metrics.
func (m *Compiled) Fit(ds train.Dataset, steps int) ([]*tensors.Tensor, error) {
	loop := train.NewLoop(m.trainer)
	if m.ProgressBar {
		commandline.AttachProgressBar(loop)
	}
	metricsValues, err := loop.RunSteps(ds, steps)
	if err != nil {
		return nil, errors.WithMessagef(err, "training for %d steps", steps)
	}
	return metricsValues, nil
}

// Evaluate returns the loss followed by the evaluation metrics over the whole dataset.
func (m *Compiled) Evaluate(ds train.Dataset) ([]*tensors.Tensor, error) {
	values, err := m.trainer.Eval(ds)
	if err != nil {
		return nil, errors.WithMessagef(err, "evaluating on %q", ds.Name())
	}
	return values, nil
}

// Predict returns the model output (probabilities) for the batch x, using the current variable values.
// The model must have been trained (or its variables loaded) first.
func (m *Compiled) Predict(x *tensors.Tensor) (*tensors.Tensor, error) {
	exec, err := context.NewExec(m.backend, m.ctx.Reuse(), func(ctx *context.Context, x *Node) *Node {
		return m.model.Apply(ctx, x)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "creating prediction executor")
	}
	output, err := exec.Exec1(x)
	if err != nil {
		return nil, errors.WithMessage(err, "predicting")
	}
	return output, nil
}
