package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/common/expfmt"
)

// dumpMetrics writes the counters gathered during the command in the text exposition format.
func (r *Runner) dumpMetrics(path string) error {
	if path == "-" {
		return r.writeMetrics(os.Stderr)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := r.writeMetrics(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Runner) writeMetrics(w io.Writer) error {
	families, err := r.metrics.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
