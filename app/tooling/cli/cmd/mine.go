package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/genesis"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
	"github.com/watoukuang/demochain/foundation/blockchain/state"
	"github.com/watoukuang/demochain/foundation/blockchain/worker"
	"github.com/watoukuang/demochain/foundation/logger"
	"go.uber.org/zap"
)

type mineOptions struct {
	payload    string
	miners     []string
	difficulty int
	maxNonce   uint64
	coinbase   bool
	instant    bool
	refresh    time.Duration
	timeout    time.Duration
	logPath    string
}

func newMineCmd() *cobra.Command {
	var opts mineOptions

	mineCmd := &cobra.Command{
		Use:   "mine",
		Short: "Run a mining round locally and print the race as it runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mine(cmd, opts)
		},
	}

	mineCmd.Flags().StringVarP(&opts.payload, "payload", "d", "Alice->Bob:10", "Transfers in the form from->to:amount, one per line.")
	mineCmd.Flags().StringSliceVarP(&opts.miners, "miner", "m", []string{"A:1", "B:2", "C:3"}, "Miner as identity:tier[:reward_address], repeatable.")
	mineCmd.Flags().IntVarP(&opts.difficulty, "difficulty", "z", int(genesis.Default().Difficulty), "Number of leading zeros the hash needs.")
	mineCmd.Flags().Uint64Var(&opts.maxNonce, "max-nonce", genesis.Default().MaxNonce, "Upper bound of the nonce search.")
	mineCmd.Flags().BoolVarP(&opts.coinbase, "coinbase", "c", false, "Pay each miner a reward in its own payload.")
	mineCmd.Flags().BoolVar(&opts.instant, "instant", false, "Skip the simulated stage pauses.")
	mineCmd.Flags().DurationVar(&opts.refresh, "refresh", time.Second, "How often the race is printed.")
	mineCmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "Stop the round after this long.")
	mineCmd.Flags().StringVar(&opts.logPath, "log", "", "File the node events are logged to.")

	return mineCmd
}

func mine(cmd *cobra.Command, opts mineOptions) error {
	out := cmd.OutOrStdout()

	ev := func(string, ...any) {}
	if opts.logPath != "" {
		log, err := logger.New("CLI", opts.logPath)
		if err != nil {
			return fmt.Errorf("constructing logger: %w", err)
		}
		defer log.Sync()

		ev = eventLogger(log)
	}

	miners, err := race.ParseMiners(opts.miners)
	if err != nil {
		return err
	}

	st, err := state.New(state.Config{
		Genesis:       genesis.Default(),
		MaxNonce:      opts.maxNonce,
		YieldInterval: state.DefaultYieldInterval,
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	timing := worker.DefaultTiming()
	if opts.instant {
		timing = worker.Timing{}
	}
	worker.Run(st, timing, ev)

	if opts.coinbase {
		for i, mc := range miners {
			if mc.RewardAddress == "" {
				miners[i].RewardAddress = mc.Identity
			}
		}
	}

	info, err := st.StartRound(state.RoundRequest{
		Payload:    opts.payload,
		Miners:     miners,
		Difficulty: opts.difficulty,
		Coinbase:   opts.coinbase,
	})
	if err != nil {
		return err
	}

	r := st.ActiveRound()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	ticker := time.NewTicker(max(opts.refresh, 10*time.Millisecond))
	defer ticker.Stop()

loop:
	for {
		select {
		case <-r.Done():
			break loop

		case <-ctx.Done():
			st.Stop()
			<-r.Done()
			break loop

		case <-ticker.C:
			if err := printSnapshot(out, st.Snapshot()); err != nil {
				return err
			}
		}
	}

	if err := printSnapshot(out, st.Snapshot()); err != nil {
		return err
	}

	if r.Outcome() != race.OutcomeWon {
		return fmt.Errorf("round %s ended %s", info.ID, r.Outcome())
	}

	b, err := st.BlockAt(info.Height)
	if err != nil {
		return err
	}

	return printBlock(out, b)
}

func printBlock(out io.Writer, b database.Block) error {
	reward := ""
	if b.Reward != nil {
		reward = b.Reward.String()
	}

	_, err := fmt.Fprintf(out, "block %d mined by %s: nonce %d, hash %s, previous %s, reward %s, transfers %v\n",
		b.Header.Height, b.Miner, b.Header.Nonce, b.Hash, b.Header.PrevHash, reward, b.Transfers)
	return err
}

func eventLogger(log *zap.SugaredLogger) state.EventHandler {
	return func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}
}
