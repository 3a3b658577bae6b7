// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"fmt"
	"strings"

	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// LayerKind enumerates the layers a Model is composed of.
type LayerKind int

const (
	KindFlatten LayerKind = iota
	KindDense
	KindNormalization
	KindActivation
	KindDropout
)

var layerKindNames = []string{"flatten", "dense", "batch_normalization", "activation", "dropout"}

// String returns the snake-case name of the kind, also used as the base name of layers.
func (k LayerKind) String() string {
	if k < 0 || int(k) >= len(layerKindNames) {
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
	return layerKindNames[k]
}

// TypeName returns the CamelCase name used in summaries. E.g.: "BatchNormalization".
func (k LayerKind) TypeName() string {
	parts := strings.Split(k.String(), "_")
	for ii, part := range parts {
		if part != "" {
			parts[ii] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// FinalActivation is the activation of the output layer.
type FinalActivation int

const (
	// FinalSigmoid is used for binary classification: one independent probability per output unit.
	FinalSigmoid FinalActivation = iota

	// FinalSoftmax is used for multi-class classification: a probability distribution over the classes.
	FinalSoftmax
)

// String implements fmt.Stringer.
func (f FinalActivation) String() string {
	if f == FinalSigmoid {
		return "sigmoid"
	}
	return "softmax"
}

// Apply the final activation to the logits, over the last axis.
func (f FinalActivation) Apply(logits *Node) *Node {
	if f == FinalSigmoid {
		return Sigmoid(logits)
	}
	return Softmax(logits, -1)
}

// OutputActivation selects the output activation for the number of classes: sigmoid for exactly 2 classes,
// softmax for anything else. The number of classes is not validated.
func OutputActivation(numClasses int) FinalActivation {
	if numClasses == 2 {
		return FinalSigmoid
	}
	return FinalSoftmax
}

// Layer describes one layer of a Model.
type Layer struct {
	Kind LayerKind

	// Name is unique within a Model, following the Keras convention: "dense", "dense_1", "dense_2", ...
	// It is also the scope of the layer's variables.
	Name string

	// Units is the number of output units for dense layers.
	Units int

	// Activation for activation layers, or the inline activation of a hidden dense layer.
	// HasActivation tells whether it is set.
	Activation    Activation
	HasActivation bool

	// Final is set for the output dense layer, in which case it is its activation.
	Final    FinalActivation
	IsOutput bool

	// Rate is the dropout rate, for dropout layers.
	Rate float64
}

// Describe returns a short human-readable description of the layer, used in summaries and logs.
func (l Layer) Describe() string {
	switch l.Kind {
	case KindDense:
		switch {
		case l.IsOutput:
			return fmt.Sprintf("Dense(%d, %s)", l.Units, l.Final)
		case l.HasActivation:
			return fmt.Sprintf("Dense(%d, %s)", l.Units, l.Activation.Name())
		default:
			return fmt.Sprintf("Dense(%d)", l.Units)
		}
	case KindActivation:
		return fmt.Sprintf("Activation(%s)", l.Activation.Name())
	case KindDropout:
		return fmt.Sprintf("Dropout(%g)", l.Rate)
	default:
		return l.Kind.TypeName()
	}
}

// HiddenBlock returns the layers of one hidden block, before naming, for the four combinations of
// batch normalization and dropout:
//
//   - normalization and dropout: Dense -> BatchNormalization -> Activation -> Dropout
//   - normalization only: Dense -> BatchNormalization -> Activation
//   - dropout only: Dense(activation) -> Dropout
//   - neither: Dense(activation)
//
// With normalization the activation always follows it as a separate layer, otherwise it is applied
// inline by the dense layer.
func HiddenBlock(units int, activation Activation, batchNorm, dropout bool, dropoutRate float64) []Layer {
	dense := Layer{Kind: KindDense, Units: units}
	switch {
	case batchNorm && dropout:
		return []Layer{
			dense,
			{Kind: KindNormalization},
			{Kind: KindActivation, Activation: activation, HasActivation: true},
			{Kind: KindDropout, Rate: dropoutRate},
		}
	case batchNorm && !dropout:
		return []Layer{
			dense,
			{Kind: KindNormalization},
			{Kind: KindActivation, Activation: activation, HasActivation: true},
		}
	case !batchNorm && dropout:
		dense.Activation, dense.HasActivation = activation, true
		return []Layer{
			dense,
			{Kind: KindDropout, Rate: dropoutRate},
		}
	default:
		dense.Activation, dense.HasActivation = activation, true
		return []Layer{dense}
	}
}

// layerNamer assigns Keras style unique names per layer kind.
type layerNamer map[LayerKind]int

func (n layerNamer) name(kind LayerKind) string {
	count := n[kind]
	n[kind] = count + 1
	if count == 0 {
		return kind.String()
	}
	return fmt.Sprintf("%s_%d", kind, count)
}
