// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"

	snoptimizers "github.com/digantamisra98/simplynn/pkg/ml/optimizers"
)

// NamedOptimizers maps the fixed set of optimizer names to constructors of optimizers with default
// configuration, overridden only by the optimizer's own hyperparameters set in the context (e.g.: "adam_epsilon").
//
// Names are case-sensitive. Any other identifier given to ResolveOptimizer is passed through.
var NamedOptimizers = map[string]func(ctx *context.Context) optimizers.Interface{
	"SGD":      func(_ *context.Context) optimizers.Interface { return optimizers.StochasticGradientDescent().Done() },
	"Adam":     func(ctx *context.Context) optimizers.Interface { return optimizers.Adam().FromContext(ctx).Done() },
	"RMSprop":  func(ctx *context.Context) optimizers.Interface { return optimizers.RMSProp().FromContext(ctx).Done() },
	"Nadam":    func(ctx *context.Context) optimizers.Interface { return snoptimizers.Nadam().FromContext(ctx).Done() },
	"Adadelta": func(ctx *context.Context) optimizers.Interface { return snoptimizers.Adadelta().FromContext(ctx).Done() },
	"Adagrad":  func(ctx *context.Context) optimizers.Interface { return snoptimizers.Adagrad().FromContext(ctx).Done() },
	"Adamax":   func(ctx *context.Context) optimizers.Interface { return optimizers.Adam().Adamax().FromContext(ctx).Done() },
}

// ResolveOptimizer converts an optimizer identifier to an optimizer:
//
//   - A name in NamedOptimizers returns a new optimizer with the default configuration.
//   - An optimizers.Interface is returned unchanged.
//   - Any other string is handed to the framework's registry, optimizers.ByName, which may configure it
//     from ctx hyperparameters. Unknown names are reported by the framework.
func ResolveOptimizer(ctx *context.Context, optimizer any) (optimizers.Interface, error) {
	switch opt := optimizer.(type) {
	case string:
		if constructor, found := NamedOptimizers[opt]; found {
			return constructor(ctx), nil
		}
		var resolved optimizers.Interface
		err := exceptions.TryCatch[error](func() { resolved = optimizers.ByName(ctx, opt) })
		if err != nil {
			return nil, errors.WithMessagef(err, "resolving optimizer %q", opt)
		}
		return resolved, nil
	case optimizers.Interface:
		return opt, nil
	case nil:
		return nil, errors.New("no optimizer given")
	default:
		return nil, errors.Errorf("optimizer must be a name or an optimizers.Interface, got %T", optimizer)
	}
}

// optimizerName is used in the description of the network.
func optimizerName(optimizer any) string {
	if name, ok := optimizer.(string); ok {
		return name
	}
	return fmt.Sprintf("%T", optimizer)
}
