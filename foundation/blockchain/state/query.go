package state

import (
	"github.com/watoukuang/demochain/foundation/blockchain/database"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
)

// Snapshot returns the read model of the chain and the most recent round.
func (s *State) Snapshot() race.Snapshot {
	s.mu.Lock()
	r := s.round
	length := s.db.Length()
	s.mu.Unlock()

	if r == nil {
		return race.IdleSnapshot(length)
	}

	return r.Snapshot(length)
}

// Blocks returns a copy of the chain in height order.
func (s *State) Blocks() []database.Block {
	return s.db.Copy()
}

// BlockAt returns the block at the specified height.
func (s *State) BlockAt(height uint64) (database.Block, error) {
	return s.db.BlockAt(height)
}

// Tip returns the most recently appended block.
func (s *State) Tip() database.Block {
	return s.db.Tip()
}

// VerifyChain checks every block of the chain and returns a verdict per block.
func (s *State) VerifyChain() []database.Verdict {
	return s.db.Verify()
}
