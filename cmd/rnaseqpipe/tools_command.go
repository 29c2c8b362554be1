package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rnaseqpipe/internal/deps"
	"rnaseqpipe/internal/services"
)

func newToolsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Report availability of the external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Report every tool, including the conditionally required
			// ones.
			statuses := deps.CheckBinaries(deps.Requirements(cfg, true, true, true))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "found"
				if !status.Available {
					state = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, status.Description, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Tool", "Command", "Used for", "Status"}, rows))
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return services.Wrap(services.ErrConfiguration, "tools", "check",
					"missing required tools: "+strings.Join(missing, ", "), nil)
			}
			return nil
		},
	}
}
