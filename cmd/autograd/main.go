// Package main provides a small CLI that builds autograd history for the
// canonical in-place scenarios and prints the resulting graphs.
package main

import (
	"flag"
	"os"

	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func main() {
	fs := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(fs)
	rootCmd.PersistentFlags().AddGoFlagSet(fs)
	defer klog.Flush()

	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("autograd: %v", err)
		klog.Flush()
		os.Exit(1)
	}
}
