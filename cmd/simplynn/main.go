// Copyright 2019-2026 The SimplyNN Authors. SPDX-License-Identifier: Apache-2.0

// simplynn builds and trains feed-forward classifiers from the command line.
//
// Usage:
//
//	simplynn summary --input-shape=28,28 --classes=10 --layers=3 --batch-norm
//	simplynn train --classes=4 --layers=2 --optimizer=Adam --steps=2000 --checkpoint-dir=~/work
//
// Options can also be given in a configuration file (--config) or as SIMPLYNN_* environment variables,
// e.g. SIMPLYNN_OPTIMIZER=Nadam. Any other model hyperparameter can be set with --set, e.g.
// --set="learning_rate=0.003;adam_epsilon=1e-6".
package main

import (
	"flag"
	"os"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

func main() {
	klog.InitFlags(nil)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("simplynn: %+v", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
