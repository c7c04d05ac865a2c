// Package state is the core API for the mining race and implements all the
// business rules and processing.
package state

import (
	"sync"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/genesis"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
)

// DefaultYieldInterval is how long a miner pauses between batches of
// attempts. Ten yields a second makes the speed tiers line up with their
// attempts per second.
const DefaultYieldInterval = 100 * time.Millisecond

// =============================================================================

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

// EventHandler defines a function that is called when events
// occur in the processing of a mining round.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for running the mining rounds.
type Worker interface {
	Shutdown()
	SignalStartRound()
	SignalCancelRound()
}

// Metrics interface represents the behavior required to record what happens
// to rounds and the chain.
type Metrics interface {
	ObserveRound(outcome string, started time.Time)
	ObserveAttempts(miner string, attempts uint64)
	ObserveAppend(err error)
	ObserveReset()
}

// =============================================================================

// Config represents the configuration required to start
// the mining node.
type Config struct {
	Genesis       genesis.Genesis
	MaxNonce      uint64
	YieldInterval time.Duration
	DefaultMiners []race.MinerConfig
	Metrics       Metrics
	EvHandler     EventHandler
}

// State manages the chain and the round that is currently in flight.
type State struct {
	genesis       genesis.Genesis
	maxNonce      uint64
	yieldInterval time.Duration
	defaultMiners []race.MinerConfig
	metrics       Metrics
	evHandler     EventHandler

	db *database.Database

	mu    sync.Mutex
	round *Round

	Worker Worker
}

// New constructs a new state for running mining rounds. The chain starts
// out holding only the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	maxNonce := cfg.MaxNonce
	if maxNonce == 0 {
		maxNonce = cfg.Genesis.MaxNonce
	}
	if maxNonce == 0 {
		maxNonce = genesis.Default().MaxNonce
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	for _, mc := range cfg.DefaultMiners {
		if !mc.SpeedTier.Valid() {
			return nil, precondition("default miner %q has invalid speed tier %d", mc.Identity, mc.SpeedTier)
		}
	}

	if cfg.Genesis.Hash == "" {
		cfg.Genesis = genesis.Default()
	}

	state := State{
		genesis:       cfg.Genesis,
		maxNonce:      maxNonce,
		yieldInterval: cfg.YieldInterval,
		defaultMiners: append([]race.MinerConfig(nil), cfg.DefaultMiners...),
		metrics:       metrics,
		evHandler:     ev,

		db: database.New(database.GenesisBlock(cfg.Genesis)),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop the round in flight so its goroutines can terminate.
	s.Stop()

	// Stop all mining activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// MaxNonce returns the upper bound of the nonce space every round searches.
func (s *State) MaxNonce() uint64 {
	return s.maxNonce
}

// YieldInterval returns how long miners pause between batches of attempts.
func (s *State) YieldInterval() time.Duration {
	return s.yieldInterval
}

// Metrics returns the metrics recorder used by the state.
func (s *State) Metrics() Metrics {
	return s.metrics
}

// DefaultMiners returns a copy of the miners used when a round request
// doesn't name any.
func (s *State) DefaultMiners() []race.MinerConfig {
	return append([]race.MinerConfig(nil), s.defaultMiners...)
}

// =============================================================================

type nopMetrics struct{}

func (nopMetrics) ObserveRound(string, time.Time) {}
func (nopMetrics) ObserveAttempts(string, uint64) {}
func (nopMetrics) ObserveAppend(error) {}
func (nopMetrics) ObserveReset() {}
