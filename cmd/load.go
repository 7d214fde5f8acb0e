package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/llxisdsh/dict/ctl"
)

func newLoadCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := ctl.NewLoadCommand(stdin, stdout, stderr)
	lcmd := &cobra.Command{
		Use:   "load",
		Short: "Run a synthetic workload against a dict.",
		Long: `
Inserts keys, drives the pending migration to completion, removes a share
of the keys, verifies the rest, performs a full scan and finally shrinks
the dict. Prints a per-phase table and the exported metrics.
`,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.Run(context.Background())
		},
	}

	flags := lcmd.Flags()
	flags.IntVarP(&cmd.N, "keys", "n", cmd.N, "Number of keys to insert.")
	flags.IntVar(&cmd.RemoveEvery, "remove-every", cmd.RemoveEvery, "Remove keys divisible by this value; 0 removes none.")
	flags.BoolVar(&cmd.Shuffle, "shuffle", cmd.Shuffle, "Insert keys in random order.")
	flags.Uint64Var(&cmd.Seed, "seed", cmd.Seed, "Seed for --shuffle.")
	flags.DurationVar(&cmd.MigrateBudget, "migrate-budget", cmd.MigrateBudget, "Time budget of each explicit migration phase.")
	flags.BoolVarP(&cmd.Verbose, "verbose", "v", cmd.Verbose, "Log resize events.")

	flags.IntVar(&cmd.Config.MinCapacity, "min-capacity", cmd.Config.MinCapacity, "Initial and minimum bucket count.")
	flags.IntVar(&cmd.Config.ResizeRatio, "resize-ratio", cmd.Config.ResizeRatio, "Entries per bucket that start a grow.")
	flags.IntVar(&cmd.Config.ForceResizeRatio, "force-resize-ratio", cmd.Config.ForceResizeRatio, "Entries per bucket that start a grow while resizing is disabled.")
	flags.IntVar(&cmd.Config.EmptyVisits, "empty-visits", cmd.Config.EmptyVisits, "Empty buckets a migration step may skip.")
	flags.IntVar(&cmd.Config.MigrateBatch, "migrate-batch", cmd.Config.MigrateBatch, "Migration steps between deadline checks.")
	return lcmd
}
