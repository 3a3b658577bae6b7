// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

const (
	LossCategoricalCrossEntropy       = "categorical_crossentropy"
	LossSparseCategoricalCrossEntropy = "sparse_categorical_crossentropy"
	LossBinaryCrossEntropy            = "binary_crossentropy"
)

// KnownLosses maps loss identifiers to the loss functions.
//
// The model outputs probabilities (sigmoid or softmax), so the cross-entropy losses here take probabilities,
// not logits.
var KnownLosses = map[string]losses.LossFn{
	LossCategoricalCrossEntropy:       CategoricalCrossEntropy,
	LossSparseCategoricalCrossEntropy: SparseCategoricalCrossEntropy,
	LossBinaryCrossEntropy:            BinaryCrossEntropy,
	"mean_squared_error":              losses.MeanSquaredError,
	"mse":                             losses.MeanSquaredError,
	"mean_absolute_error":             losses.MeanAbsoluteError,
	"mae":                             losses.MeanAbsoluteError,
	"huber":                           losses.MakeHuberLoss(1.0),
}

// ResolveLoss converts a loss identifier, either a name in KnownLosses or a losses.LossFn, to a loss function.
func ResolveLoss(loss any) (losses.LossFn, error) {
	switch l := loss.(type) {
	case string:
		lossFn, found := KnownLosses[l]
		if !found {
			return nil, errors.Errorf("unknown loss %q, known losses are %q", l, xslices.SortedKeys(KnownLosses))
		}
		return lossFn, nil
	case losses.LossFn:
		return l, nil
	case func(labels, predictions []*Node) *Node:
		return l, nil
	case nil:
		return nil, errors.New("no loss given")
	default:
		return nil, errors.Errorf("loss must be a name or a losses.LossFn, got %T", loss)
	}
}

// lossName returns the loss identifier if it is a name, or "" otherwise.
func lossName(loss any) string {
	name, _ := loss.(string)
	return name
}

// probabilityEpsilon keeps probabilities away from 0 and 1 before taking logs.
func probabilityEpsilon(dtype dtypes.DType) float64 {
	if dtype == dtypes.Float16 || dtype == dtypes.BFloat16 {
		return 1e-4
	}
	return 1e-7
}

// clipProbabilities clips x to [ε, 1-ε] with Max and Min, which, unlike Clip, are differentiable.
func clipProbabilities(x *Node) *Node {
	epsilon := probabilityEpsilon(x.DType())
	return MinScalar(MaxScalar(x, epsilon), 1-epsilon)
}

// CategoricalCrossEntropy takes one-hot (or any distribution) labels and probabilities, both shaped
// `[batch_size, numClasses]`. Extra labels are weights or a mask, as in losses.CategoricalCrossEntropy.
//
// The predictions are clipped to [ε, 1-ε], and their log used as logits of losses.CategoricalCrossEntropyLogits.
func CategoricalCrossEntropy(labels, predictions []*Node) *Node {
	logits := Log(clipProbabilities(predictions[0]))
	return losses.CategoricalCrossEntropyLogits(labels, append([]*Node{logits}, predictions[1:]...))
}

// BinaryCrossEntropy is losses.BinaryCrossentropy with the predictions clipped to [ε, 1-ε], so saturated
// sigmoid outputs don't generate infinities.
func BinaryCrossEntropy(labels, predictions []*Node) *Node {
	clipped := clipProbabilities(predictions[0])
	return losses.BinaryCrossentropy(labels, append([]*Node{clipped}, predictions[1:]...))
}

// SparseCategoricalCrossEntropy takes labels as class indices, shaped `[batch_size, 1]` with an integer dtype,
// and probabilities shaped `[batch_size, numClasses]`.
//
// It one-hot encodes the labels and uses CategoricalCrossEntropy.
func SparseCategoricalCrossEntropy(labels, predictions []*Node) *Node {
	labels0 := labels[0]
	predictions0 := predictions[0]
	if !labels0.DType().IsInt() {
		exceptions.Panicf("sparse categorical cross-entropy requires integer labels, got labels shaped %s", labels0.Shape())
	}
	if labels0.Rank() != predictions0.Rank() || labels0.Shape().Dimensions[labels0.Rank()-1] != 1 {
		exceptions.Panicf("sparse categorical cross-entropy requires labels shaped [<batch dims...>, 1] for predictions shaped %s, got %s",
			predictions0.Shape(), labels0.Shape())
	}
	numClasses := predictions0.Shape().Dimensions[predictions0.Rank()-1]
	indices := Squeeze(labels0, -1)
	oneHot := OneHot(indices, numClasses, predictions0.DType())
	return CategoricalCrossEntropy(append([]*Node{oneHot}, labels[1:]...), predictions)
}
