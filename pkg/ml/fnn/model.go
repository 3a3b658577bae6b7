// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/olekukonko/tablewriter"
)

// Model is a sequential stack of layers: a flatten layer, the hidden blocks and the output dense layer.
//
// It only describes the architecture: the variables are created in the context given to Apply, the first
// time the graph is built, and are owned by the framework.
type Model struct {
	inputShape []int
	numClasses int
	widths     []int
	layers     []Layer
}

// newModel names the layers and assembles the Model.
func newModel(inputShape []int, numClasses int, widths []int, blocks [][]Layer, final FinalActivation) *Model {
	namer := layerNamer{}
	m := &Model{
		inputShape: slices.Clone(inputShape),
		numClasses: numClasses,
		widths:     slices.Clone(widths),
	}
	m.layers = append(m.layers, Layer{Kind: KindFlatten, Name: namer.name(KindFlatten)})
	for _, block := range blocks {
		for _, layer := range block {
			layer.Name = namer.name(layer.Kind)
			m.layers = append(m.layers, layer)
		}
	}
	m.layers = append(m.layers, Layer{
		Kind:     KindDense,
		Name:     namer.name(KindDense),
		Units:    numClasses,
		Final:    final,
		IsOutput: true,
	})
	return m
}

// Layers returns a copy of the model's layers, in order.
func (m *Model) Layers() []Layer {
	return slices.Clone(m.layers)
}

// Widths returns the number of units of each hidden dense layer.
func (m *Model) Widths() []int {
	return slices.Clone(m.widths)
}

// InputShape returns the shape of one example, without the batch axis.
func (m *Model) InputShape() []int {
	return slices.Clone(m.inputShape)
}

// NumClasses is the number of units of the output layer.
func (m *Model) NumClasses() int {
	return m.numClasses
}

// OutputActivation of the final dense layer.
func (m *Model) OutputActivation() FinalActivation {
	return m.layers[len(m.layers)-1].Final
}

// NumDenseLayers counts the dense layers, including the output layer.
func (m *Model) NumDenseLayers() int {
	var count int
	for _, layer := range m.layers {
		if layer.Kind == KindDense {
			count++
		}
	}
	return count
}

// Kinds returns the kind of each layer, in order.
func (m *Model) Kinds() []LayerKind {
	kinds := make([]LayerKind, len(m.layers))
	for ii, layer := range m.layers {
		kinds[ii] = layer.Kind
	}
	return kinds
}

// flattenedSize is the feature dimension after the flatten layer.
func (m *Model) flattenedSize() int {
	size := 1
	for _, dim := range m.inputShape {
		size *= dim
	}
	return size
}

// Apply builds the model graph for x, shaped `[batch_size, <input shape...>]`, and returns the
// output of the final activation, shaped `[batch_size, numClasses]`.
//
// Each layer's variables are created under a sub-scope of ctx named after the layer.
func (m *Model) Apply(ctx *context.Context, x *Node) *Node {
	g := x.Graph()
	for _, layer := range m.layers {
		layerCtx := ctx.In(layer.Name)
		switch layer.Kind {
		case KindFlatten:
			// Shape mismatches are reported by Reshape.
			x = Reshape(x, x.Shape().Dimensions[0], m.flattenedSize())
		case KindDense:
			x = layers.Dense(layerCtx, x, true, layer.Units)
			if layer.IsOutput {
				x = layer.Final.Apply(x)
			} else if layer.HasActivation {
				x = layer.Activation.Apply(layerCtx, x)
			}
		case KindNormalization:
			x = batchnorm.New(layerCtx, x, -1).Done()
		case KindActivation:
			x = layer.Activation.Apply(layerCtx, x)
		case KindDropout:
			if layer.Rate > 0 {
				x = layers.DropoutNormalize(layerCtx, x, Scalar(g, x.DType(), layer.Rate), true)
			}
		}
	}
	return x
}

// ModelFn adapts Apply to a train.ModelFn: it uses the first input, and returns the predictions.
func (m *Model) ModelFn() train.ModelFn {
	return func(ctx *context.Context, _ any, inputs []*Node) []*Node {
		return []*Node{m.Apply(ctx, inputs[0])}
	}
}

// layerStats are the output width and the number of parameters of each layer.
type layerStats struct {
	width                   int
	trainable, nonTrainable int
}

func (m *Model) stats() []layerStats {
	stats := make([]layerStats, len(m.layers))
	width := m.flattenedSize()
	for ii, layer := range m.layers {
		switch layer.Kind {
		case KindDense:
			stats[ii].trainable = width*layer.Units + layer.Units
			width = layer.Units
		case KindNormalization:
			// Learned scale and offset, plus the moving mean, variance and averaging weight.
			stats[ii].trainable = 2 * width
			stats[ii].nonTrainable = 3 * width
		}
		stats[ii].width = width
	}
	return stats
}

// NumParameters returns the number of trainable and non-trainable parameters of the model.
func (m *Model) NumParameters() (trainable, nonTrainable int) {
	for _, s := range m.stats() {
		trainable += s.trainable
		nonTrainable += s.nonTrainable
	}
	return
}

// Summary writes a table with each layer's name, type, output shape and number of parameters,
// followed by the parameter totals.
func (m *Model) Summary(w io.Writer) error {
	stats := m.stats()
	data := make([][]string, 0, len(m.layers))
	for ii, layer := range m.layers {
		data = append(data, []string{
			fmt.Sprintf("%s (%s)", layer.Name, layer.Kind.TypeName()),
			fmt.Sprintf("(None, %d)", stats[ii].width),
			humanize.Comma(int64(stats[ii].trainable + stats[ii].nonTrainable)),
		})
	}
	if _, err := fmt.Fprintf(w, "Model: %q\n", "sequential"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Layer (type)", "Output Shape", "Param #"})
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()

	trainable, nonTrainable := m.NumParameters()
	_, err := fmt.Fprintf(w, "Total params: %s\nTrainable params: %s\nNon-trainable params: %s\n",
		humanize.Comma(int64(trainable+nonTrainable)), humanize.Comma(int64(trainable)), humanize.Comma(int64(nonTrainable)))
	return err
}
