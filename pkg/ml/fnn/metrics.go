// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"fmt"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/pkg/errors"
)

// MovingAverageWeight is the weight of each new batch in the moving average metrics reported during training.
var MovingAverageWeight = 0.01

// metricDef describes a named metric: its graph function and how it's printed.
type metricDef struct {
	name, shortName, metricType string
	graphFn                     metrics.BaseMetricGraph
	pPrintFn                    metrics.PrettyPrintFn
}

func percentagePPrint(value *tensors.Tensor) string {
	return fmt.Sprintf("%.2f%%", shapes.ConvertTo[float64](value.Value())*100.0)
}

var (
	binaryAccuracyDef = metricDef{
		name: "Binary Accuracy", shortName: "acc", metricType: metrics.AccuracyMetricType,
		graphFn: metrics.BinaryAccuracyGraph, pPrintFn: percentagePPrint,
	}
	categoricalAccuracyDef = metricDef{
		name: "Categorical Accuracy", shortName: "acc", metricType: metrics.AccuracyMetricType,
		graphFn: CategoricalAccuracyGraph, pPrintFn: percentagePPrint,
	}
	sparseCategoricalAccuracyDef = metricDef{
		name: "Sparse Categorical Accuracy", shortName: "acc", metricType: metrics.AccuracyMetricType,
		graphFn: metrics.SparseCategoricalAccuracyGraph, pPrintFn: percentagePPrint,
	}
	meanSquaredErrorDef = metricDef{
		name: "Mean Squared Error", shortName: "mse", metricType: metrics.LossMetricType,
		graphFn: lossAsMetric(losses.MeanSquaredError),
	}
	meanAbsoluteErrorDef = metricDef{
		name: "Mean Absolute Error", shortName: "mae", metricType: metrics.LossMetricType,
		graphFn: lossAsMetric(losses.MeanAbsoluteError),
	}
)

func lossAsMetric(lossFn losses.LossFn) metrics.BaseMetricGraph {
	return func(_ *context.Context, labels, predictions []*Node) *Node {
		return ReduceAllMean(lossFn(labels, predictions))
	}
}

// CategoricalAccuracyGraph returns the fraction of examples where the argmax of the predictions matches
// the argmax of the one-hot (dense) labels. Ties are resolved by ArgMax for both.
func CategoricalAccuracyGraph(_ *context.Context, labels, predictions []*Node) *Node {
	predictions0 := predictions[0]
	labels0 := labels[0]
	if !labels0.Shape().Equal(predictions0.Shape()) {
		labels0 = ConvertDType(labels0, predictions0.DType())
		if !labels0.Shape().Equal(predictions0.Shape()) {
			exceptions.Panicf("categorical accuracy requires one-hot labels shaped like the predictions %s, got %s",
				predictions0.Shape(), labels[0].Shape())
		}
	}
	correct := ConvertDType(
		Equal(ArgMax(predictions0, -1), ArgMax(labels0, -1)),
		predictions0.DType())
	return ReduceAllMean(correct)
}

// accuracyDef picks the accuracy flavor matching the labels the loss expects, the way "accuracy" is
// interpreted by Keras: sparse labels for the sparse loss, binary for 2 classes, categorical otherwise.
func accuracyDef(numClasses int, lossID string) metricDef {
	switch {
	case lossID == LossSparseCategoricalCrossEntropy:
		return sparseCategoricalAccuracyDef
	case numClasses == 2 || lossID == LossBinaryCrossEntropy:
		return binaryAccuracyDef
	default:
		return categoricalAccuracyDef
	}
}

func lookupMetric(name string, numClasses int, lossID string) (metricDef, bool) {
	switch name {
	case "accuracy", "acc":
		return accuracyDef(numClasses, lossID), true
	case "binary_accuracy":
		return binaryAccuracyDef, true
	case "categorical_accuracy":
		return categoricalAccuracyDef, true
	case "sparse_categorical_accuracy":
		return sparseCategoricalAccuracyDef, true
	case "mse", "mean_squared_error":
		return meanSquaredErrorDef, true
	case "mae", "mean_absolute_error":
		return meanAbsoluteErrorDef, true
	}
	return metricDef{}, false
}

// KnownMetrics lists the metric names accepted by ResolveMetrics.
var KnownMetrics = []string{
	"accuracy", "acc", "binary_accuracy", "categorical_accuracy", "sparse_categorical_accuracy",
	"mse", "mean_squared_error", "mae", "mean_absolute_error",
}

// ResolveMetrics converts metric identifiers, names in KnownMetrics or metrics.Interface values, to the
// metrics used during training and evaluation.
//
// Named metrics get two separate instances: an exponential moving average for training and a mean over the
// dataset for evaluation. A metrics.Interface is used unchanged in both.
func ResolveMetrics(ids []any, numClasses int, loss any) (trainMetrics, evalMetrics []metrics.Interface, err error) {
	lossID := lossName(loss)
	for _, id := range ids {
		switch m := id.(type) {
		case string:
			def, found := lookupMetric(m, numClasses, lossID)
			if !found {
				return nil, nil, errors.Errorf("unknown metric %q, known metrics are %q", m, KnownMetrics)
			}
			trainMetrics = append(trainMetrics, metrics.NewExponentialMovingAverageMetric(
				"Moving Average "+def.name, "~"+def.shortName, def.metricType, def.graphFn, def.pPrintFn,
				MovingAverageWeight))
			evalMetrics = append(evalMetrics, metrics.NewMeanMetric(
				"Mean "+def.name, "#"+def.shortName, def.metricType, def.graphFn, def.pPrintFn))
		case metrics.Interface:
			trainMetrics = append(trainMetrics, m)
			evalMetrics = append(evalMetrics, m)
		default:
			return nil, nil, errors.Errorf("metric must be a name or a metrics.Interface, got %T", id)
		}
	}
	return
}
