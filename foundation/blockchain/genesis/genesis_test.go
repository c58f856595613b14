package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Load(t *testing.T) {
	const content = `{"network_id":"testnet","mining_reward":50,"balances":{"abc":10}}`

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("\t%s\tShould be able to write the genesis file: %s", failed, err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the genesis file: %s", failed, err)
	}
	t.Logf("\t%s\tShould be able to load the genesis file.", success)

	if gen.NetworkID != "testnet" || gen.MiningReward != 50 || gen.Balances["abc"] != 10 {
		t.Fatalf("\t%s\tShould override the values in the file: %+v", failed, gen)
	}
	t.Logf("\t%s\tShould override the values in the file.", success)

	if gen.DifficultyUpdateCycle != genesis.DifficultyUpdateCycle || gen.SecondsPerBlockGoal != genesis.SecondsPerBlockGoal {
		t.Fatalf("\t%s\tShould keep the protocol defaults: %+v", failed, gen)
	}
	t.Logf("\t%s\tShould keep the protocol defaults.", success)

	if fee, ok := gen.Fee("CreateSku"); !ok || fee != 5 {
		t.Fatalf("\t%s\tShould keep the default fee schedule.", failed)
	}
	t.Logf("\t%s\tShould keep the default fee schedule.", success)

	target, err := gen.Target()
	if err != nil || target.BitLen() != 240 {
		t.Fatalf("\t%s\tShould parse the maximum target: %v", failed, err)
	}
	t.Logf("\t%s\tShould parse the maximum target.", success)
}

func Test_LoadBadTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(`{"maximum_target":"xyz"}`), 0600); err != nil {
		t.Fatalf("\t%s\tShould be able to write the genesis file: %s", failed, err)
	}

	if _, err := genesis.Load(path); err == nil {
		t.Fatalf("\t%s\tShould reject an invalid maximum target.", failed)
	}
	t.Logf("\t%s\tShould reject an invalid maximum target.", success)
}

func Test_LoadBadProtocol(t *testing.T) {
	tt := []struct {
		name    string
		content string
	}{
		{name: "version", content: `{"protocol_version":2}`},
		{name: "goal", content: `{"seconds_per_block_goal":0}`},
		{name: "cycle", content: `{"difficulty_update_cycle":-1}`},
	}

	t.Log("Given the need to refuse protocol values a node cannot run.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen loading a genesis file with a bad %s.", testID, tst.name)
			{
				path := filepath.Join(t.TempDir(), "genesis.json")
				if err := os.WriteFile(path, []byte(tst.content), 0600); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write the genesis file: %s", failed, testID, err)
				}

				if _, err := genesis.Load(path); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould reject the genesis file.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the genesis file.", success, testID)
			}
		}
	}
}
