// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	output, err := runCommand(t, "summary", "--input-shape=4", "--classes=2", "--layers=2", "--batch-norm")
	require.NoError(t, err)
	assert.Contains(t, output, "Defining a 2 layered network initialized with relu and SGD Optimization.")
	assert.Contains(t, output, "batch_normalization_1 (BatchNormalization)")
	assert.Contains(t, output, "dense_2 (Dense)")
}

func TestSummaryCommandConfiguration(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv("SIMPLYNN_OPTIMIZER", "Nadam")
		t.Setenv("SIMPLYNN_WIDTH_POLICY", "doubling")
		output, err := runCommand(t, "summary", "--input-shape=3", "--classes=5", "--layers=3", "--base-units=8")
		require.NoError(t, err)
		assert.Contains(t, output, "and Nadam Optimization.")
		assert.Contains(t, output, "(None, 32)")
	})

	t.Run("flags override environment", func(t *testing.T) {
		t.Setenv("SIMPLYNN_OPTIMIZER", "Nadam")
		output, err := runCommand(t, "summary", "--optimizer=Adagrad", "--layers=1")
		require.NoError(t, err)
		assert.Contains(t, output, "and Adagrad Optimization.")
	})

	t.Run("config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "simplynn.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("activation: tanh\nbase-units: 12\n"), 0o644))
		output, err := runCommand(t, "summary", "--config="+configPath, "--input-shape=2", "--layers=1", "--classes=3")
		require.NoError(t, err)
		assert.Contains(t, output, "initialized with tanh and")
		assert.Contains(t, output, "(None, 12)")
	})

	t.Run("settings", func(t *testing.T) {
		output, err := runCommand(t, "summary", "--layers=1", "--input-shape=2",
			"--set=simplynn_base_units=7;activation=swish")
		require.NoError(t, err)
		assert.Contains(t, output, "initialized with swish and")
		assert.Contains(t, output, "(None, 7)")

		_, err = runCommand(t, "summary", "--set=no_such_param=1")
		require.Error(t, err)
	})

	t.Run("invalid activation", func(t *testing.T) {
		_, err := runCommand(t, "summary", "--activation=not_an_activation")
		require.Error(t, err)
	})
}

func TestTrainCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping training test in short mode")
	}
	checkpointDir := t.TempDir()
	output, err := runCommand(t, "train", "--input-shape=3", "--classes=3", "--layers=1", "--base-units=8",
		"--optimizer=Adam", "--steps=50", "--examples=128", "--progress=false", "--summary=false",
		"--checkpoint-dir="+checkpointDir, "--checkpoint=run")
	require.NoError(t, err)
	assert.Contains(t, output, "Checkpoint saved to")
	entries, err := os.ReadDir(filepath.Join(checkpointDir, "run"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
