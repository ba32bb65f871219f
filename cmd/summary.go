package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/smith-xyz/apk-dataset-generator/pkg/batch"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func printSummary(w io.Writer, s *batch.Summary) {
	fmt.Fprintln(w, bold("Summary"))
	fmt.Fprintf(w, "  analyzed:  %d\n", s.Analyzed)
	fmt.Fprintf(w, "  succeeded: %s\n", green(s.Succeeded))
	fmt.Fprintf(w, "  failed:    %s\n", red(s.Failed))
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  skipped:   %s\n", yellow(s.Skipped))
	}
	fmt.Fprintf(w, "  mean entropy: %.4f\n", s.MeanEntropy())
	fmt.Fprintf(w, "  total bytes:  %d\n", s.TotalBytes)

	for _, failure := range s.Failures {
		fmt.Fprintf(w, "  %s %s: %v\n", red("x"), failure.Path, failure.Err)
	}
}
