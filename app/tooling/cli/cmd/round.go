package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
)

type startRequest struct {
	Payload    string             `json:"payload,omitempty"`
	Miners     []race.MinerConfig `json:"miners,omitempty"`
	Difficulty *int               `json:"difficulty,omitempty"`
	Coinbase   bool               `json:"coinbase,omitempty"`
	Reward     uint64             `json:"reward,omitempty"`
	Coin       string             `json:"coin,omitempty"`
}

type roundStatus struct {
	Status string `json:"status"`
	Round  string `json:"round"`
}

func newRoundCmd(opts *options) *cobra.Command {
	roundCmd := &cobra.Command{
		Use:   "round",
		Short: "Control the mining round of a node",
	}

	var (
		payload    string
		miners     []string
		difficulty int
		coinbase   bool
		reward     uint64
		coin       string
	)

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a mining round",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := startRequest{
				Payload:  payload,
				Coinbase: coinbase,
				Reward:   reward,
				Coin:     coin,
			}

			if cmd.Flags().Changed("difficulty") {
				req.Difficulty = &difficulty
			}

			mcs, err := race.ParseMiners(miners)
			if err != nil {
				return err
			}
			req.Miners = mcs

			var info state.RoundInfo
			if err := newClient(opts.url).post("/v1/round/start", req, &info); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "round %s started: height %d, difficulty %d, miners %s\n",
				info.ID, info.Height, info.Difficulty, strings.Join(info.Miners, ","))
			return nil
		},
	}
	startCmd.Flags().StringVarP(&payload, "payload", "d", "", "Transfers in the form from->to:amount, one per line.")
	startCmd.Flags().StringSliceVarP(&miners, "miner", "m", nil, "Miner as identity:tier[:reward_address], repeatable.")
	startCmd.Flags().IntVarP(&difficulty, "difficulty", "z", 0, "Number of leading zeros the hash needs.")
	startCmd.Flags().BoolVarP(&coinbase, "coinbase", "c", false, "Pay each miner a reward in its own payload.")
	startCmd.Flags().Uint64Var(&reward, "reward", 0, "Reward amount for coinbase rounds.")
	startCmd.Flags().StringVar(&coin, "coin", "", "Currency symbol of the reward.")

	roundCmd.AddCommand(
		startCmd,
		controlCmd(opts, "pause [miner]", "Pause the round or a single miner", "/v1/round/pause"),
		controlCmd(opts, "resume [miner]", "Resume the round or a single miner", "/v1/round/resume"),
		controlCmd(opts, "stop", "Stop the round", "/v1/round/stop"),
	)

	return roundCmd
}

// controlCmd constructs a command that posts to a round control endpoint. An
// argument names the miner the control applies to.
func controlCmd(opts *options, use string, short string, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := path
			if len(args) == 1 {
				p += "/" + args[0]
			}

			var resp roundStatus
			if err := newClient(opts.url).post(p, nil, &resp); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "round %s: %s\n", resp.Round, resp.Status)
			return nil
		},
	}
}
