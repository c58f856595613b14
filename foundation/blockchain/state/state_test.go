package state_test

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/skuchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ardanlabs/skuchain/foundation/blockchain/state"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage"
	"github.com/ardanlabs/skuchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/skuchain/foundation/timestamp"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	senderKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	minerKey  = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	peerKey   = "aed31b6b5a341af8f27e66fb0b7633cf20fc27049e3eb7f6f623a4655b719ebb"
	billKey   = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

func pub(t *testing.T, hexKey string) string {
	t.Helper()

	pk, err := signature.PublicKeyFromPrivate(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to derive the public key: %v", failed, err)
	}
	return pk
}

// testGenesis uses an easy target so tests mine in a few attempts.
func testGenesis(t *testing.T) genesis.Genesis {
	gen := genesis.Default()
	gen.NetworkID = "skuchain-test"
	gen.MaximumTarget = "7" + strings.Repeat("F", 63)
	gen.Balances = map[string]int64{pub(t, senderKey): 1000}
	return gen
}

func newState(t *testing.T, gen genesis.Genesis, key string, repo storage.Repository) *state.State {
	t.Helper()

	st, err := state.New(state.Config{
		MinerPrivateKey: key,
		Genesis:         gen,
		Storage:         repo,
		SelectStrategy:  selector.StrategyFee,
		MaxTxPerBlock:   10,
		EvHandler:       func(v string, args ...any) { t.Logf(v, args...) },
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}
	return st
}

func newTx(t *testing.T, hexKey string, action database.Action, data string, fee int64, body database.StateTx) *database.Tx {
	t.Helper()

	tx := database.NewTx(genesis.TransactionVersion, action, data, fee, body)
	if err := database.FinalizeTx(tx, hexKey); err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}
	return tx
}

// =============================================================================

func Test_SubmitTransaction(t *testing.T) {
	gen := testGenesis(t)
	st := newState(t, gen, minerKey, memory.New())

	sender := pub(t, senderKey)
	bill := pub(t, billKey)

	transfer := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 100})

	type table struct {
		name     string
		tx       *database.Tx
		accepted bool
	}

	tt := []table{
		{name: "valid", tx: transfer, accepted: true},
		{name: "duplicate", tx: transfer, accepted: false},
		{name: "wrongfee", tx: newTx(t, senderKey, database.TransferToken, "", 7, database.StateTx{Sender: sender, Recipient: bill, Amount: 5}), accepted: false},
		{name: "wrongversion", tx: func() *database.Tx {
			tx := database.NewTx(99, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 5})
			database.FinalizeTx(tx, senderKey)
			return tx
		}(), accepted: false},
		{name: "coinbase", tx: newTx(t, billKey, database.ClaimCoinbase, "", 0, database.StateTx{Recipient: bill, Amount: gen.MiningReward}), accepted: false},
		{name: "nofunds", tx: newTx(t, billKey, database.TransferToken, "", 1, database.StateTx{Sender: bill, Recipient: sender, Amount: 5}), accepted: false},
		{name: "unsigned", tx: database.NewTx(1, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 5}), accepted: false},
		{name: "wrappingamount", tx: newTx(t, billKey, database.TransferToken, "", 1, database.StateTx{Sender: bill, Recipient: sender, Amount: math.MaxInt64}), accepted: false},
	}

	t.Log("Given the need to admit only valid transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen submitting a %s transaction.", testID, tst.name)
			{
				v := st.SubmitTransaction(tst.tx)
				if v.Accepted != tst.accepted {
					t.Fatalf("\t%s\tTest %d:\tShould get accepted=%t: %s", failed, testID, tst.accepted, v.Reason)
				}

				if !v.Accepted && !database.IsTxRejected(v.Err) {
					t.Fatalf("\t%s\tTest %d:\tShould carry a rejection: %v", failed, testID, v.Err)
				}
				t.Logf("\t%s\tTest %d:\tShould get accepted=%t: %s", success, testID, tst.accepted, v.Reason)
			}
		}

		if st.QueryMempoolLength() != 1 {
			t.Fatalf("\t%s\tShould hold only the valid transaction: %d", failed, st.QueryMempoolLength())
		}
		t.Logf("\t%s\tShould hold only the valid transaction.", success)
	}
}

func Test_StaleTransactions(t *testing.T) {
	gen := testGenesis(t)
	st := newState(t, gen, minerKey, memory.New())

	sender := pub(t, senderKey)
	bill := pub(t, billKey)

	t.Log("Given the need to drop pooled transactions that can no longer be mined.")
	{
		t.Logf("\tTest 0:\tWhen two pooled transfers together overdraw the sender.")
		{
			first := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 995})
			second := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 990})

			for _, tx := range []*database.Tx{first, second} {
				if v := st.SubmitTransaction(tx); !v.Accepted {
					t.Fatalf("\t%s\tTest 0:\tShould admit each transfer on its own: %s", failed, v.Reason)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould admit each transfer on its own.", success)

			block, err := st.MineNewBlock(context.Background())
			if err != nil || block.TxCount() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould mine one of the transfers: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould mine one of the transfers.", success)

			if st.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the other transfer pooled: %d", failed, st.QueryMempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould keep the other transfer pooled.", success)

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest 0:\tShould find nothing left to mine: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould find nothing left to mine.", success)

			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould evict the transfer that no longer applies: %d", failed, st.QueryMempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould evict the transfer that no longer applies.", success)
		}
	}
}

func Test_MineAndSyncBlock(t *testing.T) {
	gen := testGenesis(t)
	repo := memory.New()
	st := newState(t, gen, minerKey, repo)
	peer := newState(t, gen, peerKey, memory.New())

	sender := pub(t, senderKey)
	bill := pub(t, billKey)
	miner := pub(t, minerKey)

	t.Log("Given the need to mine blocks and share them with peers.")
	{
		if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
			t.Fatalf("\t%s\tShould not mine without transactions: %v", failed, err)
		}
		t.Logf("\t%s\tShould not mine without transactions.", success)

		tx := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 100})
		if v := st.SubmitTransaction(tx); !v.Accepted {
			t.Fatalf("\t%s\tShould accept the transaction: %s", failed, v.Reason)
		}

		block, err := st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine a block.", success)

		if st.RetrieveChain().Len() != 2 || st.RetrieveLatestBlock() != block || st.QueryMempoolLength() != 0 {
			t.Fatalf("\t%s\tShould append the block and empty the mempool.", failed)
		}
		t.Logf("\t%s\tShould append the block and empty the mempool.", success)

		balances := map[string]int64{sender: 899, bill: 100, miner: gen.MiningReward + 1}
		for publicKey, exp := range balances {
			if got := st.QueryBalance(publicKey); got != exp {
				t.Logf("\t%s\tgot: %d", failed, got)
				t.Logf("\t%s\texp: %d", failed, exp)
				t.Fatalf("\t%s\tShould update the balances.", failed)
			}
		}
		t.Logf("\t%s\tShould update the balances.", success)

		if v := peer.ProcessProposedBlock(block); !v.Accepted {
			t.Fatalf("\t%s\tShould have the peer accept the block: %s", failed, v.Reason)
		}
		t.Logf("\t%s\tShould have the peer accept the block.", success)

		if peer.QueryBalance(miner) != gen.MiningReward+1 {
			t.Fatalf("\t%s\tShould have the peer agree on the balances.", failed)
		}
		t.Logf("\t%s\tShould have the peer agree on the balances.", success)

		v := peer.ProcessProposedBlock(block)
		if v.Accepted || !database.IsBlockRejected(v.Err) {
			t.Fatalf("\t%s\tShould reject the same block twice: %v", failed, v.Err)
		}
		t.Logf("\t%s\tShould reject the same block twice: %s", success, v.Reason)

		if v := peer.ProcessProposedBlock(nil); v.Accepted || !errors.Is(v.Err, database.ErrNilBlock) {
			t.Fatalf("\t%s\tShould reject a nil block: %v", failed, v.Err)
		}
		t.Logf("\t%s\tShould reject a nil block.", success)

		stored, err := st.QueryBlockByHash(block.Hash())
		if err != nil || stored.Hash() != block.Hash() {
			t.Fatalf("\t%s\tShould have stored the block: %v", failed, err)
		}
		t.Logf("\t%s\tShould have stored the block.", success)

		proof, _, err := st.QueryMerkleProof(block.Hash(), tx.Hash())
		if err != nil || len(proof) == 0 {
			t.Fatalf("\t%s\tShould prove the transaction is in the block: %v", failed, err)
		}
		t.Logf("\t%s\tShould prove the transaction is in the block.", success)

		reloaded := newState(t, gen, minerKey, repo)
		if reloaded.RetrieveChain().Len() != 2 || reloaded.QueryBalance(bill) != 100 {
			t.Fatalf("\t%s\tShould reload the chain and balances from storage.", failed)
		}
		t.Logf("\t%s\tShould reload the chain and balances from storage.", success)
	}
}

func Test_RejectBlocks(t *testing.T) {
	gen := testGenesis(t)
	st := newState(t, gen, minerKey, memory.New())

	sender := pub(t, senderKey)
	bill := pub(t, billKey)
	miner := pub(t, minerKey)

	target, err := gen.Target()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read the target: %v", failed, err)
	}

	genBlock := st.RetrieveLatestBlock()

	// build seals a block on top of genesis. When solve is false a nonce is
	// picked whose hash misses the target.
	build := func(signer string, trans []*database.Tx, root string, solve bool) *database.Block {
		c := database.NewCandidate(database.CandidateArgs{
			MagicNumber:   gen.NetworkID,
			Version:       gen.ProtocolVersion,
			MerkleRoot:    root,
			TimeStamp:     timestamp.Now(),
			PrevBlockHash: genBlock.Hash(),
			Trans:         trans,
		})

		for {
			hash, _ := c.CalculateHash()
			if difficulty.HashMeetsTarget(hash, target) == solve {
				block, err := database.FinalizeBlockWithHash(c, hash, signer)
				if err != nil {
					t.Fatalf("\t%s\tShould be able to finalize the block: %v", failed, err)
				}
				return block
			}
			c.IncrementNonce()
		}
	}

	coinbase := newTx(t, minerKey, database.ClaimCoinbase, "1", 0, database.StateTx{Recipient: miner, Amount: gen.MiningReward})
	greedy := newTx(t, minerKey, database.ClaimCoinbase, "1", 0, database.StateTx{Recipient: miner, Amount: gen.MiningReward * 2})
	transfer := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 10})
	overdraw := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 995})

	root := func(trans ...*database.Tx) string {
		r, err := database.MerkleRoot(trans)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute the merkle root: %v", failed, err)
		}
		return r
	}

	type table struct {
		name  string
		block *database.Block
	}

	tt := []table{
		{name: "target", block: build(minerKey, []*database.Tx{coinbase}, root(coinbase), false)},
		{name: "nocoinbase", block: build(senderKey, []*database.Tx{transfer}, root(transfer), true)},
		{name: "signer", block: build(peerKey, []*database.Tx{coinbase}, root(coinbase), true)},
		{name: "merkle", block: build(minerKey, []*database.Tx{coinbase}, "ABC", true)},
		{name: "reward", block: build(minerKey, []*database.Tx{greedy}, root(greedy), true)},
		{name: "twocoinbase", block: build(minerKey, []*database.Tx{coinbase, coinbase}, root(coinbase, coinbase), true)},
		{name: "overdraw", block: build(minerKey, []*database.Tx{coinbase, transfer, overdraw}, root(coinbase, transfer, overdraw), true)},
	}

	t.Log("Given the need to reject invalid blocks.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen proposing a block failing %s.", testID, tst.name)
			{
				v := st.ProcessProposedBlock(tst.block)
				if v.Accepted {
					t.Fatalf("\t%s\tTest %d:\tShould reject the block.", failed, testID)
				}

				bre := database.GetBlockRejected(v.Err)
				if bre == nil || bre.Block != tst.block {
					t.Fatalf("\t%s\tTest %d:\tShould carry the rejected block: %v", failed, testID, v.Err)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the block: %s", success, testID, v.Reason)
			}
		}

		if st.RetrieveChain().Len() != 1 || st.QueryBalance(sender) != 1000 {
			t.Fatalf("\t%s\tShould leave the chain and balances untouched.", failed)
		}
		t.Logf("\t%s\tShould leave the chain and balances untouched.", success)

		good := build(minerKey, []*database.Tx{coinbase, transfer}, root(coinbase, transfer), true)
		if v := st.ProcessProposedBlock(good); !v.Accepted {
			t.Fatalf("\t%s\tShould accept a valid block: %s", failed, v.Reason)
		}
		t.Logf("\t%s\tShould accept a valid block.", success)
	}
}

func Test_SkuLifecycle(t *testing.T) {
	gen := testGenesis(t)
	st := newState(t, gen, minerKey, memory.New())

	sender := pub(t, senderKey)
	bill := pub(t, billKey)

	mine := func() *database.Block {
		block, err := st.MineNewBlock(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
		}
		return block
	}

	t.Log("Given the need to track skus and their supply.")
	{
		data := database.SkuData{ID: "sku-1", EAN: "4006381333931", Description: "Pencil"}
		create := newTx(t, senderKey, database.CreateSku, data.String(), 5, database.StateTx{Sender: sender})
		if v := st.SubmitTransaction(create); !v.Accepted {
			t.Fatalf("\t%s\tShould accept the sku: %s", failed, v.Reason)
		}

		block := mine()
		ref := database.SkuRef{BlockHash: block.Hash(), TxIndex: 1}

		sku, exists := st.QuerySku(ref)
		if !exists || sku.Data != data || sku.Creator != sender {
			t.Fatalf("\t%s\tShould register the sku: %+v", failed, sku)
		}
		t.Logf("\t%s\tShould register the sku.", success)

		supply := newTx(t, senderKey, database.CreateSupply, "", 1, database.StateTx{Sender: sender, SkuBlockHash: ref.BlockHash, SkuTxIndex: ref.TxIndex, Amount: 40})
		if v := st.SubmitTransaction(supply); !v.Accepted {
			t.Fatalf("\t%s\tShould accept new supply: %s", failed, v.Reason)
		}
		mine()

		move := newTx(t, senderKey, database.TransferSupply, "", 1, database.StateTx{Sender: sender, Recipient: bill, SkuBlockHash: ref.BlockHash, SkuTxIndex: ref.TxIndex, Amount: 15})
		if v := st.SubmitTransaction(move); !v.Accepted {
			t.Fatalf("\t%s\tShould accept a supply transfer: %s", failed, v.Reason)
		}
		mine()

		if st.QuerySupply(sender, ref) != 25 || st.QuerySupply(bill, ref) != 15 {
			t.Fatalf("\t%s\tShould move the supply: %d %d", failed, st.QuerySupply(sender, ref), st.QuerySupply(bill, ref))
		}
		t.Logf("\t%s\tShould move the supply.", success)

		steal := newTx(t, billKey, database.CreateSupply, "", 1, database.StateTx{Sender: bill, SkuBlockHash: ref.BlockHash, SkuTxIndex: ref.TxIndex, Amount: 5})
		if v := st.SubmitTransaction(steal); v.Accepted {
			t.Fatalf("\t%s\tShould only let the creator mint supply.", failed)
		}
		t.Logf("\t%s\tShould only let the creator mint supply.", success)

		if len(st.QueryHoldings(bill)) != 1 || len(st.QuerySkus()) != 1 {
			t.Fatalf("\t%s\tShould list holdings and skus.", failed)
		}
		t.Logf("\t%s\tShould list holdings and skus.", success)
	}
}

func Test_MiningCancel(t *testing.T) {
	gen := testGenesis(t)
	gen.MaximumTarget = strings.Repeat("0", 63) + "1"
	st := newState(t, gen, minerKey, memory.New())

	sender := pub(t, senderKey)
	bill := pub(t, billKey)

	tx := newTx(t, senderKey, database.TransferToken, "", 1, database.StateTx{Sender: sender, Recipient: bill, Amount: 1})
	if v := st.SubmitTransaction(tx); !v.Accepted {
		t.Fatalf("\t%s\tShould accept the transaction: %s", failed, v.Reason)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := st.MineNewBlock(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("\t%s\tShould stop mining when cancelled: %v", failed, err)
	}
	t.Logf("\t%s\tShould stop mining when cancelled.", success)

	if st.QueryMempoolLength() != 1 || st.RetrieveChain().Len() != 1 {
		t.Fatalf("\t%s\tShould leave the mempool and chain untouched.", failed)
	}
	t.Logf("\t%s\tShould leave the mempool and chain untouched.", success)

	d, target, err := st.QueryCurrentDifficulty()
	if err != nil || d.Cmp(big.NewRat(1, 1)) != 0 || target.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("\t%s\tShould report the current difficulty: %v", failed, err)
	}
	t.Logf("\t%s\tShould report the current difficulty.", success)
}
