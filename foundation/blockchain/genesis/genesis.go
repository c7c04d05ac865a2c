// Package genesis maintains access to the genesis information for the chain.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/watoukuang/demochain/foundation/blockchain/signature"
)

// Hash is the fixed digest of the genesis block. It is not derived from the
// genesis fields, the chain starts from it by definition.
const Hash = "0000b61c8bb61a6faa7c46e4872623b6e5ebcfa4bcb5dc279f56aa96a365e5a0"

// Genesis represents the genesis information.
type Genesis struct {
	Date         time.Time `json:"date"`
	Nonce        uint64    `json:"nonce"`         // Nonce recorded in the genesis block.
	Data         string    `json:"data"`          // Payload of the genesis block.
	Hash         string    `json:"hash"`          // Fixed digest of the genesis block.
	Difficulty   uint      `json:"difficulty"`    // Default number of leading 0's for a round.
	MaxNonce     uint64    `json:"max_nonce"`     // Upper bound of the nonce search space.
	MiningReward uint64    `json:"mining_reward"` // Reward for mining a block in coinbase rounds.
	Coin         string    `json:"coin"`          // Currency symbol of the reward.
}

// Default returns the genesis information the demo chain ships with.
func Default() Genesis {
	return Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Nonce:        49691,
		Data:         "first transaction record",
		Hash:         Hash,
		Difficulty:   4,
		MaxNonce:     500_000,
		MiningReward: 50,
		Coin:         "Demo",
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if genesis.MaxNonce == 0 {
		return Genesis{}, fmt.Errorf("genesis max_nonce must be greater than zero")
	}

	if !signature.IsHash(genesis.Hash) {
		return Genesis{}, fmt.Errorf("genesis hash %q is not a digest", genesis.Hash)
	}

	return genesis, nil
}
