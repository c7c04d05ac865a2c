package race

import (
	"fmt"
	"strings"

	"github.com/watoukuang/demochain/foundation/blockchain/miner"
)

// ParseMiners reads miner definitions of the form "identity:tier" or
// "identity:tier:reward_address". The tier is a number or a tier name.
func ParseMiners(defs []string) ([]MinerConfig, error) {
	miners := make([]MinerConfig, 0, len(defs))
	seen := make(map[string]bool, len(defs))

	for _, def := range defs {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		parts := strings.SplitN(def, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("miner %q: expected identity:tier", def)
		}

		id := strings.TrimSpace(parts[0])
		if id == "" {
			return nil, fmt.Errorf("miner %q: identity is required", def)
		}
		if seen[id] {
			return nil, fmt.Errorf("miner %q is defined twice", id)
		}
		seen[id] = true

		tier, err := miner.ParseSpeedTier(parts[1])
		if err != nil {
			return nil, fmt.Errorf("miner %q: %w", id, err)
		}

		mc := MinerConfig{
			Identity:  id,
			SpeedTier: tier,
		}
		if len(parts) == 3 {
			mc.RewardAddress = strings.TrimSpace(parts[2])
		}

		miners = append(miners, mc)
	}

	return miners, nil
}
