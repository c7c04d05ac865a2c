package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/watoukuang/demochain/foundation/blockchain/database"
)

type blockCard struct {
	Height     uint64 `json:"height"`
	Nonce      uint64 `json:"nonce"`
	PrevHash   string `json:"previous"`
	Difficulty uint   `json:"difficulty"`
	Hash       string `json:"hash"`
	Miner      string `json:"miner"`
	Reward     string `json:"reward"`
	Valid      bool   `json:"valid"`
}

func newChainCmd(opts *options) *cobra.Command {
	chainCmd := &cobra.Command{
		Use:   "chain",
		Short: "Inspect or reset the chain of a node",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the blocks of the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			var blocks []blockCard
			if err := newClient(opts.url).get("/v1/blocks/list", &blocks); err != nil {
				return err
			}

			return printBlocks(cmd.OutOrStdout(), blocks)
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every block of the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Valid    bool               `json:"valid"`
				Verdicts []database.Verdict `json:"verdicts"`
			}
			if err := newClient(opts.url).get("/v1/chain/verify", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range resp.Verdicts {
				if v.Valid {
					fmt.Fprintf(out, "block %d: valid\n", v.Height)
					continue
				}
				fmt.Fprintf(out, "block %d: invalid: %s\n", v.Height, v.Reason)
			}

			if !resp.Valid {
				return fmt.Errorf("chain is invalid")
			}
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Stop any round and take the chain back to the genesis block",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(opts.url).post("/v1/chain/reset", nil, nil); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "chain reset")
			return nil
		},
	}

	chainCmd.AddCommand(listCmd, verifyCmd, resetCmd)

	return chainCmd
}

func printBlocks(out io.Writer, blocks []blockCard) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HEIGHT\tNONCE\tMINER\tREWARD\tVALID\tHASH")

	for _, b := range blocks {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%v\t%s\n", b.Height, b.Nonce, b.Miner, b.Reward, b.Valid, b.Hash)
	}

	return tw.Flush()
}
