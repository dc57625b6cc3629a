package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"distq/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, store and listen address readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			err = emit(cmd, jsonOutput, results, func(out io.Writer) {
				w := newStatusWriter(out)
				configDetail := ctx.configPath
				if !ctx.configExists {
					configDetail += " (not found, using defaults)"
				}
				w.line("Config", statusInfo, configDetail)
				for _, result := range results {
					w.line(result.Name, passFail(result.Passed), result.Detail)
				}
			})
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
