// Package miner implements the cooperative, cancellable nonce search a single
// virtual miner runs during a round.
package miner

import (
	"context"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"go.uber.org/ratelimit"
)

// Race represents the behavior a task needs from the round it is part of.
// The round owns the winner slot and the pause gates.
type Race interface {
	HasWinner() bool
	Claim(identity string) bool
	Wait(ctx context.Context, identity string) error
	ReportProgress(identity string, nonce uint64, solved bool)
}

// Outcome represents how a search ended.
type Outcome int

// Set of outcomes a search can end with.
const (
	Exhausted Outcome = iota
	Won
	Lost
	Cancelled
)

// String implements the fmt.Stringer interface.
func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Cancelled:
		return "cancelled"
	default:
		return "exhausted"
	}
}

// Config represents everything a task needs to search for a nonce. The
// header fields are frozen for the lifetime of the search.
type Config struct {
	Identity      string
	Header        database.BlockHeader
	StartNonce    uint64
	MaxNonce      uint64
	Speed         SpeedTier
	YieldInterval time.Duration
	Race          Race
	EvHandler     func(v string, args ...any)
}

// Result represents the outcome of a search. Nonce and Hash are set when
// the task found an accepted digest, even if it lost the claim.
type Result struct {
	Identity string
	Outcome  Outcome
	Won      bool
	Nonce    uint64
	Hash     string
	Attempts uint64
}

// Found reports whether the task found an accepted digest.
func (r Result) Found() bool {
	return r.Hash != ""
}

// =============================================================================

// Search iterates the nonce space [StartNonce, MaxNonce) looking for a nonce
// whose digest satisfies the header difficulty. Every AttemptsPerYield
// attempts the task yields: it checks for cancellation, reports progress,
// blocks while paused and waits for its pacing slot.
func Search(ctx context.Context, cfg Config) Result {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ev("miner: Search: MINING: started: miner[%s]: height[%d]: difficulty[%d]", cfg.Identity, cfg.Header.Height, cfg.Header.Difficulty)

	res := Result{
		Identity: cfg.Identity,
		Outcome:  Exhausted,
	}
	defer func() {
		ev("miner: Search: MINING: completed: miner[%s]: outcome[%s]: attempts[%d]", cfg.Identity, res.Outcome, res.Attempts)
	}()

	batch := uint64(max(1, cfg.Speed.AttemptsPerYield()))
	limiter := newLimiter(cfg.YieldInterval)

	for nonce := cfg.StartNonce; nonce < cfg.MaxNonce; nonce++ {
		if cfg.Race.HasWinner() {
			res.Outcome = Lost
			return res
		}

		if (nonce-cfg.StartNonce)%batch == 0 {
			if outcome, stop := yield(ctx, cfg, nonce, limiter); stop {
				res.Outcome = outcome
				return res
			}
		}

		res.Attempts++

		hash := cfg.Header.HashWithNonce(nonce)
		if !database.IsHashSolved(cfg.Header.Difficulty, hash) {
			continue
		}

		res.Nonce = nonce
		res.Hash = hash
		cfg.Race.ReportProgress(cfg.Identity, nonce, true)

		ev("miner: Search: MINING: SOLVED: miner[%s]: nonce[%d]: hash[%s]", cfg.Identity, nonce, hash)

		if !cfg.Race.Claim(cfg.Identity) {
			res.Outcome = Lost
			return res
		}

		res.Outcome = Won
		res.Won = true
		return res
	}

	cfg.Race.ReportProgress(cfg.Identity, cfg.MaxNonce, false)

	return res
}

// yield is the suspension point of the search loop. It reports whether the
// search must stop and with which outcome.
func yield(ctx context.Context, cfg Config, nonce uint64, limiter ratelimit.Limiter) (Outcome, bool) {
	if ctx.Err() != nil {
		return Cancelled, true
	}

	// Report before blocking so a paused task shows the nonce it resumes at.
	cfg.Race.ReportProgress(cfg.Identity, nonce, false)

	if err := cfg.Race.Wait(ctx, cfg.Identity); err != nil {
		return Cancelled, true
	}

	if cfg.Race.HasWinner() {
		return Lost, true
	}

	limiter.Take()

	// The pacing slot can take a while, check again before doing more work.
	switch {
	case ctx.Err() != nil:
		return Cancelled, true
	case cfg.Race.HasWinner():
		return Lost, true
	}

	return 0, false
}

// newLimiter paces the yields of a task. No interval means the task never
// pauses between batches.
func newLimiter(interval time.Duration) ratelimit.Limiter {
	if interval <= 0 {
		return ratelimit.NewUnlimited()
	}

	return ratelimit.New(1, ratelimit.Per(interval), ratelimit.WithoutSlack)
}
