package nameservice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ardanlabs/skuchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Lookup(t *testing.T) {
	root := t.TempDir()

	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key: %v", failed, err)
	}

	if err := crypto.SaveECDSA(filepath.Join(root, "miner1.ecdsa"), pk); err != nil {
		t.Fatalf("\t%s\tShould be able to save the key: %v", failed, err)
	}

	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("not a key"), 0600); err != nil {
		t.Fatalf("\t%s\tShould be able to write a file: %v", failed, err)
	}

	t.Log("Given the need to name public keys.")
	{
		ns, err := nameservice.New(root)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the folder: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the folder.", success)

		publicKey := signature.EncodePublicKey(&pk.PublicKey)
		if got := ns.Lookup(publicKey); got != "miner1" {
			t.Fatalf("\t%s\tShould find the name, got %q.", failed, got)
		}
		t.Logf("\t%s\tShould find the name.", success)

		if got := ns.Lookup("unknown"); got != "unknown" {
			t.Fatalf("\t%s\tShould echo an unknown key, got %q.", failed, got)
		}
		t.Logf("\t%s\tShould echo an unknown key.", success)

		if len(ns.Copy()) != 1 {
			t.Fatalf("\t%s\tShould only load .ecdsa files.", failed)
		}
		t.Logf("\t%s\tShould only load .ecdsa files.", success)
	}
}
