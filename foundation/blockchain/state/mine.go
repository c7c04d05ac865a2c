package state

import (
	"errors"
	"fmt"

	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/miner"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
)

// ErrNoBlockFound is recorded when every miner exhausted the nonce space
// without a digest that satisfies the difficulty.
var ErrNoBlockFound = errors.New("no block found")

// =============================================================================

// CommitWinner builds the block the winning miner found and appends it to
// the chain. It is the only code path that writes blocks, and it appends at
// most one block per round.
func (s *State) CommitWinner(r *Round, res miner.Result) (database.Block, error) {
	s.evHandler("state: CommitWinner: MINING: started: round[%s]: miner[%s]", r.ID, res.Identity)
	defer s.evHandler("state: CommitWinner: MINING: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	if !res.Won || r.Winner() != res.Identity {
		return database.Block{}, fmt.Errorf("miner %q does not hold the winner slot of round %s", res.Identity, r.ID)
	}

	if r.committed {
		return database.Block{}, fmt.Errorf("round %s already appended a block", r.ID)
	}
	r.committed = true

	if s.round != r {
		err := fmt.Errorf("%w: round %s is stale, the chain moved on", database.ErrInvariant, r.ID)
		s.failRound(r, err)
		return database.Block{}, err
	}

	header := r.HeaderFor(res.Identity)
	header.Nonce = res.Nonce

	reward := r.Reward
	block := database.Block{
		Header:    header,
		Hash:      res.Hash,
		Miner:     res.Identity,
		Reward:    &reward,
		Transfers: r.Transfers(res.Identity),
	}

	err := s.db.Append(block)
	s.metrics.ObserveAppend(err)

	if err != nil {
		s.failRound(r, err)
		return database.Block{}, err
	}

	r.Finish(race.OutcomeWon, nil)

	s.evHandler("viewer: block[%d]: hash[%s]: miner[%s]: nonce[%d]", header.Height, block.Hash, block.Miner, header.Nonce)

	return block, nil
}

// CompleteRound records how the round ended once every miner pipeline has
// finished. Miners that didn't reach a terminal status on every stage are
// settled to failed.
func (s *State) CompleteRound(r *Round, results []miner.Result) {
	for _, res := range results {
		s.metrics.ObserveAttempts(res.Identity, res.Attempts)
	}

	for _, mc := range r.Miners {
		r.SettleMiner(mc.Identity)
	}

	switch {
	case r.Halted():
		r.Finish(race.OutcomeStopped, nil)
	case !r.HasWinner():
		r.Finish(race.OutcomeExhausted, ErrNoBlockFound)
	}

	s.metrics.ObserveRound(string(r.Outcome()), r.Started)

	r.doneOnce.Do(func() {
		close(r.done)
	})

	s.evHandler("state: CompleteRound: round[%s]: outcome[%s]", r.ID, r.Outcome())
}

// failRound records an append that was refused. The caller must hold the
// state lock.
func (s *State) failRound(r *Round, err error) {
	s.evHandler("state: CommitWinner: MINING: ERROR: round[%s]: %s", r.ID, err)
	r.Finish(race.OutcomeFailed, err)
}
