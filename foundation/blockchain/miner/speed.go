package miner

import (
	"fmt"
	"strconv"
	"strings"
)

// SpeedTier represents the enumerated rate a virtual miner works at. The
// tier paces progress reporting and yields, it does not throttle the CPU.
type SpeedTier int

// Set of speed tiers a miner can be configured with.
const (
	TierBasic    SpeedTier = 1
	TierStandard SpeedTier = 2
	TierTurbo    SpeedTier = 3
)

// yieldsPerSecond is how often a task yields back to the scheduler. A task
// evaluates AttemptsPerSecond/yieldsPerSecond attempts between yields.
const yieldsPerSecond = 10

var tierRates = map[SpeedTier]int{
	TierBasic:    1000,
	TierStandard: 2000,
	TierTurbo:    4000,
}

var tierNames = map[SpeedTier]string{
	TierBasic:    "basic",
	TierStandard: "standard",
	TierTurbo:    "turbo",
}

// ParseSpeedTier accepts either the tier number or its name.
func ParseSpeedTier(s string) (SpeedTier, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(s); err == nil {
		tier := SpeedTier(n)
		if !tier.Valid() {
			return 0, fmt.Errorf("unknown speed tier %d", n)
		}
		return tier, nil
	}

	for tier, name := range tierNames {
		if name == s {
			return tier, nil
		}
	}

	return 0, fmt.Errorf("unknown speed tier %q", s)
}

// Valid reports whether the tier is one of the enumerated tiers.
func (t SpeedTier) Valid() bool {
	_, exists := tierRates[t]
	return exists
}

// AttemptsPerSecond returns the nominal rate of the tier.
func (t SpeedTier) AttemptsPerSecond() int {
	return tierRates[t]
}

// AttemptsPerYield returns the number of attempts evaluated between yields.
func (t SpeedTier) AttemptsPerYield() int {
	return max(1, t.AttemptsPerSecond()/yieldsPerSecond)
}

// String implements the fmt.Stringer interface.
func (t SpeedTier) String() string {
	name, exists := tierNames[t]
	if !exists {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return name
}
