// Package race maintains the state of one mining round: the write-once
// winner slot, the pause gates, per miner progress and step statuses, and
// the snapshot projection clients render.
package race

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/database"
)

// Round represents the state of a single mining round. The frozen fields
// are set at construction and never change.
type Round struct {
	ID       string
	Header   database.BlockHeader
	MaxNonce uint64
	Miners   []MinerConfig
	Started  time.Time

	won     atomic.Bool
	decided chan struct{}

	mu            sync.RWMutex
	winner        string
	halted        bool
	progress      map[string]Progress
	steps         map[string]*[NumStages]StepStatus
	paused        bool
	pausedMiners  map[string]bool
	resume        chan struct{}
	outcome       Outcome
	err           string
	confirmations int
}

// New constructs a round for the specified frozen header and miners. Every
// step of every miner starts out waiting.
func New(id string, header database.BlockHeader, maxNonce uint64, miners []MinerConfig) *Round {
	cpy := make([]MinerConfig, len(miners))
	copy(cpy, miners)

	r := Round{
		ID:           id,
		Header:       header,
		MaxNonce:     maxNonce,
		Miners:       cpy,
		Started:      time.Now().UTC(),
		decided:      make(chan struct{}),
		progress:     make(map[string]Progress, len(miners)),
		steps:        make(map[string]*[NumStages]StepStatus, len(miners)),
		pausedMiners: make(map[string]bool),
		resume:       make(chan struct{}),
		outcome:      OutcomeRunning,
	}

	for _, mc := range cpy {
		var steps [NumStages]StepStatus
		for i := range steps {
			steps[i] = StepWaiting
		}
		r.steps[mc.Identity] = &steps
		r.progress[mc.Identity] = Progress{}
	}

	return &r
}

// =============================================================================
// These methods implement the miner.Race interface.

// HasWinner reports whether the winner slot has been claimed.
func (r *Round) HasWinner() bool {
	return r.won.Load()
}

// Claim attempts to write the identity into the winner slot. Only the first
// claim of a round succeeds, every later claim is a no-op that returns false.
// A halted round can't be won.
func (r *Round) Claim(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.winner != "" || r.halted {
		return false
	}

	if _, exists := r.steps[identity]; !exists {
		return false
	}

	r.winner = identity
	r.won.Store(true)
	close(r.decided)

	return true
}

// Wait blocks while the round or the specified miner is paused. It returns
// early once the round has a winner, and with an error if the context is
// cancelled.
func (r *Round) Wait(ctx context.Context, identity string) error {
	for {
		if r.HasWinner() {
			return nil
		}

		r.mu.RLock()
		paused := r.paused || r.pausedMiners[identity]
		resume := r.resume
		r.mu.RUnlock()

		if !paused {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.decided:
			return nil
		case <-resume:
		}
	}
}

// ReportProgress records the nonce a miner reached. Reported nonces never
// move backwards within a round. A solved report sets the percent to 100.
func (r *Round) ReportProgress(identity string, nonce uint64, solved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, exists := r.progress[identity]
	if !exists {
		return
	}

	if nonce < prev.Nonce {
		nonce = prev.Nonce
	}

	p := Progress{
		Nonce:   nonce,
		Percent: Percent(nonce, r.MaxNonce),
	}
	if solved {
		p.Percent = 100
	}

	r.progress[identity] = p
}

// =============================================================================

// Winner returns the identity in the winner slot, empty if not claimed.
func (r *Round) Winner() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.winner
}

// Decided returns a channel that is closed once the winner slot is claimed.
func (r *Round) Decided() <-chan struct{} {
	return r.decided
}

// Halt marks the round as stopped by the user. No claim succeeds after a
// round is halted.
func (r *Round) Halt() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.halted = true
}

// Halted reports whether the round was stopped by the user.
func (r *Round) Halted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.halted
}

// SetStep moves the stage of a miner to the specified status. Transitions
// that would regress the status are ignored and reported as false.
func (r *Round) SetStep(identity string, stage Stage, status StepStatus) bool {
	if stage < 0 || int(stage) >= NumStages {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	steps, exists := r.steps[identity]
	if !exists {
		return false
	}

	current := steps[stage]
	if current.Terminal() || status.rank() < current.rank() {
		return false
	}

	steps[stage] = status
	return true
}

// StepStatus returns the status of a stage for a miner.
func (r *Round) StepStatus(identity string, stage Stage) StepStatus {
	if stage < 0 || int(stage) >= NumStages {
		return StepWaiting
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	steps, exists := r.steps[identity]
	if !exists {
		return StepWaiting
	}

	return steps[stage]
}

// SettleMiner moves every stage of the miner that hasn't reached a terminal
// status to failed.
func (r *Round) SettleMiner(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps, exists := r.steps[identity]
	if !exists {
		return
	}

	for i, status := range steps {
		if !status.Terminal() {
			steps[i] = StepFailed
		}
	}
}

// Pause suspends every miner of the round at its next yield point.
func (r *Round) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paused = true
}

// Resume releases the round wide pause. Miners paused individually stay
// paused.
func (r *Round) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paused = false
	r.release()
}

// PauseMiner suspends a single miner at its next yield point.
func (r *Round) PauseMiner(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[identity]; !exists {
		return fmt.Errorf("miner %q is not part of round %s", identity, r.ID)
	}

	r.pausedMiners[identity] = true
	return nil
}

// ResumeMiner releases the pause of a single miner.
func (r *Round) ResumeMiner(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[identity]; !exists {
		return fmt.Errorf("miner %q is not part of round %s", identity, r.ID)
	}

	delete(r.pausedMiners, identity)
	r.release()
	return nil
}

// release wakes every waiter so it can re-check its pause condition. The
// caller must hold the write lock.
func (r *Round) release() {
	close(r.resume)
	r.resume = make(chan struct{})
}

// Finish records the terminal outcome of the round and lifts every pause.
// Only the first terminal outcome is kept.
func (r *Round) Finish(outcome Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.outcome != OutcomeRunning {
		return
	}

	r.outcome = outcome
	if err != nil {
		r.err = err.Error()
	}

	r.paused = false
	clear(r.pausedMiners)
	r.release()
}

// Outcome returns the current outcome of the round.
func (r *Round) Outcome() Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.outcome
}

// SetConfirmations records the number of simulated confirmations the
// winning block has.
func (r *Round) SetConfirmations(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.confirmations = n
}

// Snapshot projects the round into its read model.
func (r *Round) Snapshot(chainLength int) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Pauses requested after the round ended have nothing left to hold.
	running := r.outcome == OutcomeRunning

	snap := Snapshot{
		RoundID:       r.ID,
		Outcome:       r.outcome,
		Error:         r.err,
		Paused:        running && r.paused,
		ChainLength:   chainLength,
		NextHeight:    uint64(chainLength) + 1,
		Difficulty:    r.Header.Difficulty,
		Miners:        make([]MinerStatus, len(r.Miners)),
		Confirmations: r.confirmations,
	}

	if r.winner != "" {
		winner := r.winner
		snap.Winner = &winner
	}

	for i, mc := range r.Miners {
		steps := r.steps[mc.Identity]

		ms := MinerStatus{
			Identity:      mc.Identity,
			SpeedTier:     mc.SpeedTier,
			RewardAddress: mc.RewardAddress,
			Steps:         make([]Step, NumStages),
			Progress:      r.progress[mc.Identity],
			Sync:          SyncIdle,
			Paused:        running && (r.paused || r.pausedMiners[mc.Identity]),
		}

		for stage, status := range steps {
			ms.Steps[stage] = Step{Stage: Stage(stage).String(), Status: status}
		}

		switch steps[StageSync] {
		case StepRunning:
			ms.Sync = SyncSyncing
		case StepDone:
			ms.Sync = SyncSynced
		}

		snap.Miners[i] = ms
	}

	return snap
}
