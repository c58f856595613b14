// Package balance maintains token balances, SKU supply, and the SKU
// registry by replaying the transactions of the chain.
package balance

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
)

// SupplyKey identifies the supply of one SKU held by one public key.
type SupplyKey struct {
	Holder string
	Sku    database.SkuRef
}

// Sheet represents the data representation to maintain balances.
type Sheet struct {
	mu     sync.RWMutex
	tokens map[string]int64
	supply map[SupplyKey]int64
	skus   map[database.SkuRef]database.Sku
}

// NewSheet constructs a new balance sheet for use, expects a starting
// token balance sheet usually from a genesis file.
func NewSheet(balances map[string]int64) *Sheet {
	bs := Sheet{
		tokens: make(map[string]int64),
		supply: make(map[SupplyKey]int64),
		skus:   make(map[database.SkuRef]database.Sku),
	}

	for publicKey, value := range balances {
		bs.tokens[publicKey] = value
	}

	return &bs
}

// Replay builds the balance sheet for the chain starting from the genesis
// balances. The genesis block itself carries no transactions.
func Replay(gen genesis.Genesis, chain database.Chain) (*Sheet, error) {
	bs := NewSheet(gen.Balances)

	for height := 1; height < chain.Len(); height++ {
		block, ok := chain.At(height)
		if !ok {
			return nil, fmt.Errorf("missing block %d", height)
		}

		if err := bs.ApplyBlock(block); err != nil {
			return nil, fmt.Errorf("height %d: %w", height, err)
		}
	}

	return bs, nil
}

// Clone makes a copy of the current balance sheet.
func (bs *Sheet) Clone() *Sheet {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	clone := NewSheet(bs.tokens)
	for key, value := range bs.supply {
		clone.supply[key] = value
	}
	for ref, sku := range bs.skus {
		clone.skus[ref] = sku
	}

	return clone
}

// Replace updates the balance sheet for a new version.
func (bs *Sheet) Replace(newBS *Sheet) {
	newBS.mu.RLock()
	tokens, supply, skus := newBS.tokens, newBS.supply, newBS.skus
	newBS.mu.RUnlock()

	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.tokens = tokens
	bs.supply = supply
	bs.skus = skus
}

// =============================================================================

// Balance returns the token balance of the public key.
func (bs *Sheet) Balance(publicKey string) int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.tokens[publicKey]
}

// Tokens makes a copy of the token balances.
func (bs *Sheet) Tokens() map[string]int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	tokens := make(map[string]int64, len(bs.tokens))
	for publicKey, value := range bs.tokens {
		tokens[publicKey] = value
	}
	return tokens
}

// Supply returns how much of the SKU the public key holds.
func (bs *Sheet) Supply(holder string, ref database.SkuRef) int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.supply[SupplyKey{Holder: holder, Sku: ref}]
}

// Holdings returns the supply of every SKU the public key holds.
func (bs *Sheet) Holdings(holder string) map[database.SkuRef]int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	holdings := make(map[database.SkuRef]int64)
	for key, value := range bs.supply {
		if key.Holder == holder && value > 0 {
			holdings[key.Sku] = value
		}
	}
	return holdings
}

// Sku returns the SKU defined by the transaction at the reference.
func (bs *Sheet) Sku(ref database.SkuRef) (database.Sku, bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	sku, exists := bs.skus[ref]
	return sku, exists
}

// Skus returns every registered SKU.
func (bs *Sheet) Skus() []database.Sku {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	skus := make([]database.Sku, 0, len(bs.skus))
	for _, sku := range bs.skus {
		skus = append(skus, sku)
	}
	return skus
}

// =============================================================================

// ApplyBlock applies every transaction of the block in order. Fees go to
// the miner named by the coinbase.
func (bs *Sheet) ApplyBlock(block *database.Block) error {
	var miner string
	if coinbase, ok := block.Coinbase(); ok {
		miner = coinbase.Signer()
	}

	for i, tx := range block.Transactions() {
		if err := bs.ApplyTransaction(block.Hash(), i, miner, tx); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}

	return nil
}

// ApplyTransaction performs the business logic for applying a transaction
// to the balance sheet. The transaction sits at index in the block with the
// specified hash. Nothing changes when an error is returned.
func (bs *Sheet) ApplyTransaction(blockHash string, index int, miner string, tx *database.Tx) error {
	st, ok := tx.State()
	if !ok {
		return fmt.Errorf("%w: %T", database.ErrUnknownTransactionKind, tx.Body())
	}

	if st.Amount < 0 || tx.Fee() < 0 {
		return fmt.Errorf("negative amount %d or fee %d", st.Amount, tx.Fee())
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	tokens := make(map[string]int64)
	supply := make(map[SupplyKey]int64)

	if tx.Action() == database.ClaimCoinbase {
		if err := stage(bs.tokens, tokens, st.Recipient, st.Amount); err != nil {
			return err
		}
		commit(bs.tokens, tokens)
		return nil
	}

	// The fee is charged for every other action.
	bal := bs.tokens[st.Sender]
	if bal < tx.Fee() || (tx.Action() == database.TransferToken && st.Amount > bal-tx.Fee()) {
		return fmt.Errorf("%s has an insufficient balance, bal %d, fee %d, amount %d", st.Sender, bal, tx.Fee(), st.Amount)
	}

	from := SupplyKey{Holder: st.Sender, Sku: st.SkuRef()}
	ref := st.SkuRef()

	switch tx.Action() {
	case database.TransferToken:
		if st.Sender == st.Recipient {
			return fmt.Errorf("sending tokens to yourself, from %s, to %s", st.Sender, st.Recipient)
		}

	case database.CreateSku:
		if _, err := database.ParseSkuData(tx.Data()); err != nil {
			return err
		}

	case database.ChangeSku:
		if err := bs.checkCreator(ref, st.Sender); err != nil {
			return err
		}
		if _, err := database.ParseSkuData(tx.Data()); err != nil {
			return err
		}

	case database.CreateSupply:
		if err := bs.checkCreator(ref, st.Sender); err != nil {
			return err
		}

	case database.TransferSupply, database.DestroySupply:
		if _, exists := bs.skus[ref]; !exists {
			return fmt.Errorf("sku %s does not exist", ref)
		}
		if st.Sender == st.Recipient {
			return fmt.Errorf("sending supply to yourself, from %s, to %s", st.Sender, st.Recipient)
		}
		if bs.supply[from] < st.Amount {
			return fmt.Errorf("%s has an insufficient supply of sku %s, bal %d, needed %d", st.Sender, ref, bs.supply[from], st.Amount)
		}

	default:
		return fmt.Errorf("unknown action %s", tx.Action())
	}

	// Stage every balance change so an overflow leaves the sheet untouched.

	type move struct {
		key   string
		delta int64
	}

	moves := []move{{st.Sender, -tx.Fee()}, {miner, tx.Fee()}}
	if tx.Action() == database.TransferToken {
		moves = append(moves, move{st.Sender, -st.Amount}, move{st.Recipient, st.Amount})
	}

	for _, m := range moves {
		if err := stage(bs.tokens, tokens, m.key, m.delta); err != nil {
			return err
		}
	}

	switch tx.Action() {
	case database.CreateSupply:
		if err := stage(bs.supply, supply, from, st.Amount); err != nil {
			return err
		}

	case database.TransferSupply:
		if err := stage(bs.supply, supply, from, -st.Amount); err != nil {
			return err
		}
		if err := stage(bs.supply, supply, SupplyKey{Holder: st.Recipient, Sku: ref}, st.Amount); err != nil {
			return err
		}

	case database.DestroySupply:
		if err := stage(bs.supply, supply, from, -st.Amount); err != nil {
			return err
		}
	}

	// Every check has passed, apply the changes.

	commit(bs.tokens, tokens)
	commit(bs.supply, supply)

	here := database.SkuRef{BlockHash: blockHash, TxIndex: index}

	switch tx.Action() {
	case database.CreateSku:
		data, _ := database.ParseSkuData(tx.Data())
		bs.skus[here] = database.Sku{
			Ref:         here,
			LastChanged: here,
			Creator:     st.Sender,
			Data:        data,
		}

	case database.ChangeSku:
		data, _ := database.ParseSkuData(tx.Data())
		sku := bs.skus[ref]
		sku.Data = data
		sku.LastChanged = here
		bs.skus[ref] = sku
	}

	return nil
}

// ErrOverflow is returned when a change would take a balance or supply
// outside the int64 range.
var ErrOverflow = errors.New("balance overflow")

// stage records base[key]+delta in staged, reading any earlier staged value
// first.
func stage[K comparable](base map[K]int64, staged map[K]int64, key K, delta int64) error {
	cur, exists := staged[key]
	if !exists {
		cur = base[key]
	}

	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return fmt.Errorf("%v: %d%+d: %w", key, cur, delta, ErrOverflow)
	}

	staged[key] = cur + delta
	return nil
}

// commit copies the staged values into base.
func commit[K comparable](base map[K]int64, staged map[K]int64) {
	for key, value := range staged {
		base[key] = value
	}
}

// checkCreator makes sure the SKU exists and was created by the public key.
func (bs *Sheet) checkCreator(ref database.SkuRef, publicKey string) error {
	sku, exists := bs.skus[ref]
	if !exists {
		return fmt.Errorf("sku %s does not exist", ref)
	}

	if sku.Creator != publicKey {
		return errors.New("only the sku creator can do this")
	}

	return nil
}
