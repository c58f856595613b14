package selector_test

import (
	"testing"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	signPavel = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	signBill  = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
	signEd    = "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"
)

func tran(t *testing.T, hexKey string, amount int64, fee int64) *database.Tx {
	t.Helper()

	from, err := signature.PublicKeyFromPrivate(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to derive the public key: %v", failed, err)
	}
	to, _ := signature.PublicKeyFromPrivate(signEd)

	tx := database.NewTx(1, database.TransferToken, "", fee, database.StateTx{Sender: from, Recipient: to, Amount: amount})
	if err := database.FinalizeTx(tx, hexKey); err != nil {
		t.Fatalf("\t%s\tShould be able to sign transaction: %v", failed, err)
	}
	return tx
}

func group(txs []*database.Tx) map[string][]*database.Tx {
	m := make(map[string][]*database.Tx)
	for _, tx := range txs {
		m[tx.Signer()] = append(m[tx.Signer()], tx)
	}
	return m
}

// =============================================================================

func Test_FeeSelect(t *testing.T) {
	type table struct {
		name    string
		txs     []*database.Tx
		howMany int
		fees    []int64
	}

	tt := []table{
		{
			name: "onesigner",
			txs: []*database.Tx{
				tran(t, signBill, 1, 1),
				tran(t, signBill, 2, 9),
				tran(t, signBill, 3, 5),
			},
			howMany: 2,
			fees:    []int64{9, 5},
		},
		{
			name: "fairshare",
			txs: []*database.Tx{
				tran(t, signBill, 1, 9),
				tran(t, signBill, 2, 8),
				tran(t, signPavel, 1, 1),
			},
			howMany: 2,
			fees:    []int64{9, 1},
		},
		{
			name: "rowcut",
			txs: []*database.Tx{
				tran(t, signBill, 1, 2),
				tran(t, signPavel, 1, 7),
				tran(t, signEd, 1, 4),
			},
			howMany: 2,
			fees:    []int64{7, 4},
		},
		{
			name: "all",
			txs: []*database.Tx{
				tran(t, signBill, 1, 2),
				tran(t, signPavel, 1, 7),
			},
			howMany: 10,
			fees:    nil,
		},
	}

	fn, err := selector.Retrieve(selector.StrategyFee)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to retrieve the strategy: %v", failed, err)
	}

	t.Log("Given the need to select the best paying transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s set.", testID, tst.name)
			{
				f := func(t *testing.T) {
					got := fn(group(tst.txs), tst.howMany)

					if tst.fees == nil {
						if len(got) != len(tst.txs) {
							t.Fatalf("\t%s\tTest %d:\tShould get back every transaction: %d", failed, testID, len(got))
						}
						t.Logf("\t%s\tTest %d:\tShould get back every transaction.", success, testID)
						return
					}

					if len(got) != len(tst.fees) {
						t.Fatalf("\t%s\tTest %d:\tShould get back %d transactions: %d", failed, testID, len(tst.fees), len(got))
					}

					for i, tx := range got {
						if tx.Fee() != tst.fees[i] {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, tx.Fee())
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.fees[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the right fee.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right fees.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_HashSelect(t *testing.T) {
	txs := []*database.Tx{
		tran(t, signBill, 1, 1),
		tran(t, signPavel, 2, 1),
		tran(t, signEd, 3, 1),
	}

	fn, err := selector.Retrieve(selector.StrategyHash)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to retrieve the strategy: %v", failed, err)
	}

	got := fn(group(txs), 2)
	if len(got) != 2 || got[0].Hash() > got[1].Hash() {
		t.Fatalf("\t%s\tShould get back transactions ordered by hash.", failed)
	}
	t.Logf("\t%s\tShould get back transactions ordered by hash.", success)

	if _, err := selector.Retrieve("bill"); err == nil {
		t.Fatalf("\t%s\tShould not find an unknown strategy.", failed)
	}
	t.Logf("\t%s\tShould not find an unknown strategy.", success)
}
