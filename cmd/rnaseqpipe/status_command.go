package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rnaseqpipe/internal/runstore"
	"rnaseqpipe/internal/runtree"
)

func newStatusCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest run recorded in an output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree := runtree.New(outputDir)
			store, err := runstore.Open(tree.RunDBPath())
			if err != nil {
				return fmt.Errorf("open run database: %w", err)
			}
			defer store.Close()

			run, err := store.LatestRun(cmd.Context())
			if err != nil {
				return err
			}
			jobs, err := store.Jobs(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, humanize(string(run.Status)))
			fmt.Fprintf(out, "  input: %s\n  layout: %s, %s, target %s\n",
				run.InputDir, run.Layout, run.Compression, run.Target)
			fmt.Fprintf(out, "  started: %s\n", run.StartedAt.Local().Format(time.RFC1123))
			if !run.FinishedAt.IsZero() {
				fmt.Fprintf(out, "  finished: %s\n", run.FinishedAt.Local().Format(time.RFC1123))
			}
			if run.Error != "" {
				fmt.Fprintf(out, "  error: %s\n", run.Error)
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{job.Sample, humanize(string(job.Status)), job.Error})
			}
			fmt.Fprintln(out, renderTable([]string{"Sample", "Status", "Error"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Run output directory")
	return cmd
}

// humanize turns a stored status label into a display one.
func humanize(label string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(label, "_", " "))
}
