// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

// Package synthetic generates classification datasets in memory, for examples, tests and quick
// experiments with the command line.
package synthetic

import (
	"math/rand/v2"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
	"k8s.io/klog/v2"
)

// Config of a Gaussian blobs dataset.
type Config struct {
	// Name of the dataset, at least 3 characters long. Defaults to "blobs".
	Name string

	// NumExamples to generate, distributed round-robin among the classes.
	NumExamples int

	// NumClasses, each one a Gaussian cluster.
	NumClasses int

	// InputShape is the shape of one example, e.g.: [28, 28]. The clusters live in the flattened space.
	InputShape []int

	// Spread is the standard deviation of each cluster. The cluster centers are drawn uniformly
	// from [-1, 1] in every dimension, so a Spread much smaller than 1 gives easily separable classes.
	Spread float64

	// OneHot labels are float32 shaped [NumExamples, NumClasses]. Otherwise labels are the class indices,
	// int32 shaped [NumExamples, 1].
	OneHot bool

	// Seed for the random number generator: the same Config always generates the same dataset.
	Seed uint64
}

// Blobs generates a dataset of Gaussian clusters, one per class, as an in-memory dataset, not batched.
// Inputs are float32 shaped [NumExamples, <InputShape...>].
func Blobs(backend backends.Backend, config Config) (*datasets.InMemoryDataset, error) {
	if config.NumExamples <= 0 || config.NumClasses <= 0 {
		return nil, errors.Errorf("synthetic.Blobs requires positive NumExamples and NumClasses, got %d and %d",
			config.NumExamples, config.NumClasses)
	}
	if config.Spread < 0 {
		return nil, errors.Errorf("synthetic.Blobs requires a non-negative Spread, got %g", config.Spread)
	}
	name := config.Name
	if name == "" {
		name = "blobs"
	}
	if len(name) < 3 {
		return nil, errors.Errorf("synthetic.Blobs requires a dataset name with at least 3 characters, got %q", name)
	}
	featureSize := 1
	for _, dim := range config.InputShape {
		if dim <= 0 {
			return nil, errors.Errorf("synthetic.Blobs requires positive InputShape dimensions, got %v", config.InputShape)
		}
		featureSize *= dim
	}

	src := rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)
	centerDist := distuv.Uniform{Min: -1, Max: 1, Src: src}
	centers := make([][]float64, config.NumClasses)
	for class := range centers {
		centers[class] = make([]float64, featureSize)
		for ii := range centers[class] {
			centers[class][ii] = centerDist.Rand()
		}
	}

	noise := distuv.Normal{Mu: 0, Sigma: config.Spread, Src: src}
	inputs := make([]float32, 0, config.NumExamples*featureSize)
	classes := make([]int32, config.NumExamples)
	for example := range config.NumExamples {
		class := example % config.NumClasses
		classes[example] = int32(class)
		for _, center := range centers[class] {
			value := center
			if config.Spread > 0 {
				value += noise.Rand()
			}
			inputs = append(inputs, float32(value))
		}
	}

	inputDims := append([]int{config.NumExamples}, config.InputShape...)
	inputsT := tensors.FromFlatDataAndDimensions(inputs, inputDims...)
	var labelsT *tensors.Tensor
	if config.OneHot {
		oneHot := make([]float32, config.NumExamples*config.NumClasses)
		for example, class := range classes {
			oneHot[example*config.NumClasses+int(class)] = 1
		}
		labelsT = tensors.FromFlatDataAndDimensions(oneHot, config.NumExamples, config.NumClasses)
	} else {
		labelsT = tensors.FromFlatDataAndDimensions(classes, config.NumExamples, 1)
	}

	ds, err := datasets.InMemoryFromData(backend, name, []any{inputsT}, []any{labelsT})
	if err != nil {
		return nil, errors.WithMessagef(err, "creating dataset %q", name)
	}
	klog.V(1).Infof("synthetic: generated %q with %d examples of shape %v in %d classes",
		name, config.NumExamples, config.InputShape, config.NumClasses)
	return ds, nil
}
