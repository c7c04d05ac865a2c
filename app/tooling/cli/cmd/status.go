package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the race of the most recent round",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap race.Snapshot
			if err := newClient(opts.url).get("/v1/status", &snap); err != nil {
				return err
			}

			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
}

// printSnapshot writes the race as one row per miner.
func printSnapshot(out io.Writer, snap race.Snapshot) error {
	winner := "-"
	if snap.Winner != nil {
		winner = *snap.Winner
	}

	fmt.Fprintf(out, "round %s: outcome %s, winner %s, height %d, difficulty %d, confirmations %d\n",
		snap.RoundID, snap.Outcome, winner, snap.NextHeight, snap.Difficulty, snap.Confirmations)
	if snap.Error != "" {
		fmt.Fprintf(out, "error: %s\n", snap.Error)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MINER\tTIER\tNONCE\tPROGRESS\tSTEPS\tSYNC\tPAUSED")

	for _, ms := range snap.Miners {
		steps := make([]string, len(ms.Steps))
		for i, step := range ms.Steps {
			steps[i] = fmt.Sprintf("%s:%s", step.Stage, step.Status)
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%d%%\t%s\t%s\t%v\n",
			ms.Identity, ms.SpeedTier, ms.Progress.Nonce, ms.Progress.Percent, strings.Join(steps, " "), ms.Sync, ms.Paused)
	}

	return tw.Flush()
}
