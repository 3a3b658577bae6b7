// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package fnn

import (
	"github.com/pkg/errors"
)

// WidthPolicy defines how the number of units of each hidden layer is derived from the base width.
type WidthPolicy int

const (
	// WidthConstant gives every hidden layer the base number of units.
	WidthConstant WidthPolicy = iota

	// WidthDoubling starts with the base number of units and doubles it at every following hidden layer.
	// E.g.: 64, 128, 256, 512.
	WidthDoubling
)

var widthPolicyNames = map[WidthPolicy]string{
	WidthConstant: "constant",
	WidthDoubling: "doubling",
}

// String implements fmt.Stringer.
func (p WidthPolicy) String() string {
	if name, found := widthPolicyNames[p]; found {
		return name
	}
	return "invalid"
}

// WidthPolicyFromName converts "constant" or "doubling" to the corresponding WidthPolicy.
// An empty name is taken as WidthConstant.
func WidthPolicyFromName(name string) (WidthPolicy, error) {
	if name == "" {
		return WidthConstant, nil
	}
	for policy, policyName := range widthPolicyNames {
		if policyName == name {
			return policy, nil
		}
	}
	return WidthConstant, errors.Errorf("unknown width policy %q, valid values are \"constant\" or \"doubling\"", name)
}

// Widths returns the number of units for each of the numLayers hidden layers.
//
// The returned slice always has numLayers entries.
// Base widths and numLayers are not validated here: non-positive values are reported by the
// framework when the layers are created.
func Widths(baseUnits, numLayers int, policy WidthPolicy) []int {
	if numLayers <= 0 {
		return []int{}
	}
	widths := make([]int, numLayers)
	units := baseUnits
	for ii := range widths {
		widths[ii] = units
		if policy == WidthDoubling {
			units *= 2
		}
	}
	return widths
}
