package race_test

import (
	"testing"

	"github.com/watoukuang/demochain/foundation/blockchain/miner"
	"github.com/watoukuang/demochain/foundation/blockchain/race"
)

func Test_ParseMiners(t *testing.T) {
	type table struct {
		name   string
		defs   []string
		miners []race.MinerConfig
		fails  bool
	}

	tt := []table{
		{
			name: "defaults",
			defs: []string{"A:1", "B:standard", " C:3:0xC0FFEE "},
			miners: []race.MinerConfig{
				{Identity: "A", SpeedTier: miner.TierBasic},
				{Identity: "B", SpeedTier: miner.TierStandard},
				{Identity: "C", SpeedTier: miner.TierTurbo, RewardAddress: "0xC0FFEE"},
			},
		},
		{name: "blank entries", defs: []string{"", "A:turbo"}, miners: []race.MinerConfig{{Identity: "A", SpeedTier: miner.TierTurbo}}},
		{name: "no tier", defs: []string{"A"}, fails: true},
		{name: "bad tier", defs: []string{"A:9"}, fails: true},
		{name: "no identity", defs: []string{":1"}, fails: true},
		{name: "duplicate", defs: []string{"A:1", "A:2"}, fails: true},
	}

	t.Log("Given the need to read miner definitions.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
				{
					got, err := race.ParseMiners(tst.defs)

					if tst.fails {
						if err == nil {
							t.Fatalf("\t%s\tTest %d:\tShould reject the definitions.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould reject the definitions : %s", success, testID, err)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould parse the definitions : %s", failed, testID, err)
					}

					if len(got) != len(tst.miners) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d miners : got %d", failed, testID, len(tst.miners), len(got))
					}
					for i := range got {
						if got[i] != tst.miners[i] {
							t.Fatalf("\t%s\tTest %d:\tShould get miner %+v : got %+v", failed, testID, tst.miners[i], got[i])
						}
					}
					t.Logf("\t%s\tTest %d:\tShould parse the definitions.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}
