// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"sync"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/pkg/errors"
)

// CustomLayer is a user defined activation layer.
//
// It is used when the custom activation option is set: the activation name is then looked up among the
// layers registered with RegisterCustomLayer, and a new instance is created for each hidden layer.
type CustomLayer interface {
	// Name of the layer, used in the summary.
	Name() string

	// Apply builds the activation graph for x. The ctx is scoped to this layer, so it can create
	// its own variables if needed.
	Apply(ctx *context.Context, x *Node) *Node
}

// CustomLayerConstructor builds a new CustomLayer, without arguments.
type CustomLayerConstructor func() CustomLayer

var (
	customLayersMu sync.Mutex
	customLayers   = map[string]CustomLayerConstructor{
		"mish": func() CustomLayer { return Mish{} },
	}
)

// RegisterCustomLayer makes a CustomLayer available by name, for when the custom activation option is set.
// It overwrites any previous registration with the same name.
func RegisterCustomLayer(name string, constructor CustomLayerConstructor) {
	customLayersMu.Lock()
	defer customLayersMu.Unlock()
	customLayers[name] = constructor
}

// CustomLayerNames returns the sorted names of the registered custom layers.
func CustomLayerNames() []string {
	customLayersMu.Lock()
	defer customLayersMu.Unlock()
	return xslices.SortedKeys(customLayers)
}

func lookupCustomLayer(name string) (CustomLayerConstructor, bool) {
	customLayersMu.Lock()
	defer customLayersMu.Unlock()
	constructor, found := customLayers[name]
	return constructor, found
}

// Activation is either one of the framework's built-in activations or a CustomLayer.
type Activation struct {
	name    string
	builtin activations.Type
	custom  CustomLayerConstructor
}

// BuiltinActivation returns an Activation for one of the framework's activation types.
func BuiltinActivation(activation activations.Type) Activation {
	return Activation{name: activation.String(), builtin: activation}
}

// CustomActivation returns an Activation that creates a new CustomLayer from constructor for every use.
func CustomActivation(name string, constructor CustomLayerConstructor) Activation {
	return Activation{name: name, custom: constructor}
}

// ResolveActivation converts an activation identifier to an Activation.
//
// If custom is true, name must have been registered with RegisterCustomLayer. Otherwise, name must be
// one of the framework's activation keywords (see activations.TypeValues), and invalid names are reported
// by the framework itself.
func ResolveActivation(name string, custom bool) (Activation, error) {
	if custom {
		constructor, found := lookupCustomLayer(name)
		if !found {
			return Activation{}, errors.Errorf("custom activation layer %q not registered, registered layers are %q",
				name, CustomLayerNames())
		}
		return CustomActivation(name, constructor), nil
	}
	var activation activations.Type
	err := exceptions.TryCatch[error](func() { activation = activations.FromName(name) })
	if err != nil {
		return Activation{}, errors.WithMessagef(err, "resolving activation %q", name)
	}
	return BuiltinActivation(activation), nil
}

// Name of the activation.
func (a Activation) Name() string {
	return a.name
}

// IsCustom returns whether the activation is a CustomLayer.
func (a Activation) IsCustom() bool {
	return a.custom != nil
}

// Builtin returns the framework activation type. Only valid if IsCustom is false.
func (a Activation) Builtin() activations.Type {
	return a.builtin
}

// Apply the activation to x. Custom layers get a fresh instance on each call.
func (a Activation) Apply(ctx *context.Context, x *Node) *Node {
	if a.custom != nil {
		return a.custom().Apply(ctx, x)
	}
	return activations.Apply(a.builtin, x)
}

// Mish is the self-regularized non-monotonic activation `x * tanh(softplus(x))`, registered as the
// custom layer "mish".
//
// See "Mish: A Self Regularized Non-Monotonic Activation Function", https://arxiv.org/abs/1908.08681
type Mish struct{}

// Name implements CustomLayer.
func (Mish) Name() string { return "mish" }

// Apply implements CustomLayer.
func (Mish) Apply(_ *context.Context, x *Node) *Node {
	// softplus(x) = max(x, 0) + log(1 + exp(-|x|)), stable for large |x|.
	softplus := Add(Max(x, ZerosLike(x)), Log1P(Exp(Neg(Abs(x)))))
	return Mul(x, Tanh(softplus))
}
