package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"distq/internal/config"
	"distq/internal/queue"
)

func newIDCommand(ctx *commandContext) *cobra.Command {
	idCmd := &cobra.Command{
		Use:   "id",
		Short: "Entry id and time bucket utilities",
	}

	idCmd.AddCommand(newIDNewCommand(ctx))
	idCmd.AddCommand(newIDEncodeCommand())
	idCmd.AddCommand(newIDDecodeCommand())
	idCmd.AddCommand(newIDBucketCommand(ctx))
	idCmd.AddCommand(newIDSafeCommand())

	return idCmd
}

func newIDNewCommand(ctx *commandContext) *cobra.Command {
	var (
		count int
		at    string
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate fresh entry ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids, err := generatorFor(cfg, at)
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), ids.NewEntryID())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of ids to generate")
	cmd.Flags().StringVar(&at, "at", "", "Generate ids for this RFC3339 time instead of now")
	return cmd
}

func newIDEncodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "encode <path-fragment>",
		Short:       "Encode a path fragment relative to a queue root as an entry id",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := queue.EncodeID(args[0])
			if !ok {
				return errors.New("path fragment must not be empty")
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newIDDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "decode <entry-id>",
		Short:       "Decode an entry id into its path fragment",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fragment, ok := queue.DecodeID(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", queue.ErrInvalidEntryID, args[0])
			}
			rows := [][]string{{"Fragment", fragment}}
			if p, ok := queue.ParseEntryPath(fragment); ok {
				rows = append(rows, []string{"Bucket", p.Bucket}, []string{"Disambiguator", p.Disambiguator})
			}
			fmt.Fprint(cmd.OutOrStdout(), fieldTable("Field", rows))
			return nil
		},
	}
}

func newIDBucketCommand(ctx *commandContext) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Print the time bucket of now or of --at",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids, err := generatorFor(cfg, at)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ids.NowBucket())
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "RFC3339 time to bucket instead of now")
	return cmd
}

func newIDSafeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "safe <now-bucket> <bucket>",
		Short:       "Report whether a bucket may be deleted relative to now",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), yesNo(queue.IsSafeToDelete(args[0], args[1])))
			return nil
		},
	}
}

func generatorFor(cfg *config.Config, at string) (*queue.IDGenerator, error) {
	ids, err := generatorAt(cfg, at)
	if err != nil || ids != nil {
		return ids, err
	}
	return queue.NewIDGenerator(queue.WithLocation(cfg.Location())), nil
}

