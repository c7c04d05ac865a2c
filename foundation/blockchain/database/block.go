package database

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/genesis"
	"github.com/watoukuang/demochain/foundation/blockchain/signature"
)

// ErrInvariant is returned when a block can't be appended because it would
// break the chain. Only the race coordinator produces blocks, so seeing this
// error means the round was built from a stale tip.
var ErrInvariant = errors.New("chain invariant violated")

// MaxDifficulty is the largest number of leading 0's a round can ask for.
const MaxDifficulty = 7

// =============================================================================

// BlockHeader represents the fields that are frozen before the nonce search
// starts, plus the nonce itself.
type BlockHeader struct {
	Height     uint64 `json:"height"`     // Block number in the chain, genesis is 1.
	Nonce      uint64 `json:"nonce"`      // Value identified to solve the hash solution.
	PrevHash   string `json:"previous"`   // Hash of the previous block in the chain.
	TimeStamp  uint64 `json:"timestamp"`  // Milliseconds since epoch when the round started.
	Payload    string `json:"data"`       // Transaction data committed to by the hash.
	Difficulty uint   `json:"difficulty"` // Number of 0's needed to solve the hash solution.
}

// Input returns the composite string that is fed to the hash oracle for the
// specified nonce.
func (h BlockHeader) Input(nonce uint64) string {
	buf := make([]byte, 0, 64+len(h.PrevHash)+len(h.Payload))
	buf = strconv.AppendUint(buf, h.Height, 10)
	buf = strconv.AppendUint(buf, nonce, 10)
	buf = append(buf, h.PrevHash...)
	buf = strconv.AppendUint(buf, h.TimeStamp, 10)
	buf = append(buf, h.Payload...)

	return string(buf)
}

// HashWithNonce returns the digest of the header for the specified nonce
// without mutating the header.
func (h BlockHeader) HashWithNonce(nonce uint64) string {
	return signature.Hash(h.Input(nonce))
}

// Hash returns the digest of the header using its own nonce.
func (h BlockHeader) Hash() string {
	return h.HashWithNonce(h.Nonce)
}

// Block represents one link in the chain.
type Block struct {
	Header    BlockHeader `json:"header"`
	Hash      string      `json:"hash"`
	Miner     string      `json:"miner,omitempty"`
	Reward    *Reward     `json:"reward,omitempty"`
	Transfers []Transfer  `json:"transfers,omitempty"`
}

// GenesisBlock constructs the first block of the chain from the genesis
// information.
func GenesisBlock(gen genesis.Genesis) Block {
	reward := Reward{Amount: gen.MiningReward, Coin: gen.Coin}

	return Block{
		Header: BlockHeader{
			Height:    1,
			Nonce:     gen.Nonce,
			PrevHash:  signature.ZeroHash,
			TimeStamp: uint64(gen.Date.UnixMilli()),
			Payload:   gen.Data,
		},
		Hash:   gen.Hash,
		Miner:  "Genesis",
		Reward: &reward,
	}
}

// IsGenesis reports whether the block is the first block of the chain.
func (b Block) IsGenesis() bool {
	return b.Header.Height == 1 && b.Header.PrevHash == signature.ZeroHash
}

// Time returns the block timestamp as a time value.
func (b Block) Time() time.Time {
	return time.UnixMilli(int64(b.Header.TimeStamp)).UTC()
}

// ValidateBlock takes a block and validates it to be appended after the
// previous block.
func (b Block) ValidateBlock(previousBlock Block) error {
	nextHeight := previousBlock.Header.Height + 1
	if b.Header.Height != nextHeight {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrInvariant, b.Header.Height, nextHeight)
	}

	if b.Header.PrevHash != previousBlock.Hash {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrInvariant, b.Header.PrevHash, previousBlock.Hash)
	}

	hash := b.Header.Hash()
	if b.Hash != hash {
		return fmt.Errorf("%w: block hash doesn't match its header, got %s, exp %s", ErrInvariant, b.Hash, hash)
	}

	if !IsHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%w: %s invalid block hash for difficulty %d", ErrInvariant, hash, b.Header.Difficulty)
	}

	return nil
}

// =============================================================================

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's. A difficulty of 0 accepts
// every hash.
func IsHashSolved(difficulty uint, hash string) bool {
	if uint(len(hash)) < difficulty {
		return false
	}

	for i := uint(0); i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}

// ClampDifficulty keeps the difficulty inside the range a round can solve
// in a bounded amount of time.
func ClampDifficulty(difficulty int) uint {
	switch {
	case difficulty < 0:
		return 0
	case difficulty > MaxDifficulty:
		return MaxDifficulty
	}

	return uint(difficulty)
}
