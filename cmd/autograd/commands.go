package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/born-ml/autograd/autograd"
)

var (
	scenarioName string
	showMetrics  bool

	rootCmd = &cobra.Command{
		Use:           "autograd",
		Short:         "Inspect autograd history built by in-place operations on views",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autograd %s\n", version)
		},
	}

	traceCmd = &cobra.Command{
		Use:   "trace",
		Short: "Run a scenario and print the backward graphs it builds",
		RunE:  runTrace,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the available scenarios",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range scenarioNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name, scenarios[name].description)
			}
		},
	}
)

func init() {
	traceCmd.Flags().StringVar(&scenarioName, "scenario", "rebase",
		"scenario to run ("+strings.Join(scenarioNames(), ", ")+")")
	traceCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print autograd metrics after the run")

	rootCmd.AddCommand(versionCmd, traceCmd, listCmd)
}

func runTrace(cmd *cobra.Command, _ []string) error {
	sc, ok := scenarios[scenarioName]
	if !ok {
		return errors.Errorf("unknown scenario %q (available: %s)", scenarioName, strings.Join(scenarioNames(), ", "))
	}

	var reg *prometheus.Registry
	if showMetrics {
		reg = prometheus.NewRegistry()
		if err := autograd.RegisterMetrics(reg); err != nil {
			return errors.Wrap(err, "registering metrics")
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "== %s: %s\n", scenarioName, sc.description)
	if err := sc.run(out); err != nil {
		return errors.Wrapf(err, "scenario %s", scenarioName)
	}

	if reg != nil {
		return printMetrics(cmd, reg)
	}
	return nil
}

func printMetrics(cmd *cobra.Command, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "== metrics")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(out, "%s %g\n", name, m.GetCounter().GetValue())
		}
	}
	return nil
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
