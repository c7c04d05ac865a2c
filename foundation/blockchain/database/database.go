// Package database handles all the lower level support for maintaining the
// in memory chain of mined blocks.
package database

import (
	"fmt"
	"sync"
)

// Verdict represents the result of checking one block of the chain.
type Verdict struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Database manages the append only sequence of blocks. The chain always
// starts with the genesis block and lives for the lifetime of the process.
type Database struct {
	mu      sync.RWMutex
	genesis Block
	blocks  []Block
}

// New constructs a new database holding only the genesis block.
func New(genesis Block) *Database {
	return &Database{
		genesis: genesis,
		blocks:  []Block{genesis},
	}
}

// Reset re-initalizes the database back to the genesis state.
func (db *Database) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = []Block{db.genesis}
}

// Append validates the block against the current tip and adds it to the
// chain. The block is not appended if validation fails.
func (db *Database) Append(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tip := db.blocks[len(db.blocks)-1]
	if err := block.ValidateBlock(tip); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// Tip returns the most recently appended block.
func (db *Database) Tip() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// Length returns the number of blocks in the chain, genesis included.
func (db *Database) Length() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// BlockAt returns the block at the specified height.
func (db *Database) BlockAt(height uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if height == 0 || height > uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block at height %d not found", height)
	}

	return db.blocks[height-1], nil
}

// Copy returns a copy of the chain in height order.
func (db *Database) Copy() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)

	return blocks
}

// Verify checks every block of the chain. The genesis block is trusted by
// definition and only its position is checked.
func (db *Database) Verify() []Verdict {
	blocks := db.Copy()

	verdicts := make([]Verdict, len(blocks))
	for i, block := range blocks {
		verdict := Verdict{
			Height: block.Header.Height,
			Hash:   block.Hash,
			Valid:  true,
		}

		switch {
		case i == 0:
			if !block.IsGenesis() {
				verdict.Valid = false
				verdict.Reason = "first block is not a genesis block"
			}

		default:
			if err := block.ValidateBlock(blocks[i-1]); err != nil {
				verdict.Valid = false
				verdict.Reason = err.Error()
			}
		}

		verdicts[i] = verdict
	}

	return verdicts
}
