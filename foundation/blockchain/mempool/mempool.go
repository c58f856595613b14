// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/blockchain/mempool/selector"
)

// Set of errors returned by the mempool.
var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrDuplicate     = errors.New("transaction already in the mempool")
)

// ValidateFunc decides if a transaction may enter the mempool. It returns
// an error explaining the rejection.
type ValidateFunc func(tx *database.Tx) error

// Mempool represents a cache of validated transactions waiting to be mined,
// keyed by transaction hash.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[string]*database.Tx
	validate ValidateFunc
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New(validate ValidateFunc) (*Mempool, error) {
	return NewWithStrategy(validate, selector.StrategyFee)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(validate ValidateFunc, strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	if validate == nil {
		validate = func(tx *database.Tx) error { return tx.Validate() }
	}

	mp := Mempool{
		pool:     make(map[string]*database.Tx),
		validate: validate,
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports whether a transaction with the same hash is pooled.
func (mp *Mempool) Contains(tx *database.Tx) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[tx.Hash()]
	return exists
}

// Admit validates the transaction and adds it to the pool. The returned
// error explains why the transaction was not admitted.
func (mp *Mempool) Admit(tx *database.Tx) error {
	if tx == nil {
		return database.ErrNilTransaction
	}

	if !tx.IsFinalized() {
		return database.RejectTx(tx, database.ErrNotFinalized)
	}

	if mp.Contains(tx) {
		return database.RejectTx(tx, ErrDuplicate)
	}

	if err := mp.runValidate(tx); err != nil {
		if !database.IsTxRejected(err) {
			err = database.RejectTx(tx, err)
		}
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	// Another caller may have admitted the same hash while validating.
	if _, exists := mp.pool[tx.Hash()]; exists {
		return database.RejectTx(tx, ErrDuplicate)
	}

	mp.pool[tx.Hash()] = tx

	return nil
}

// Add admits the transaction and reports whether it entered the pool.
func (mp *Mempool) Add(tx *database.Tx) bool {
	return mp.Admit(tx) == nil
}

// Remove deletes a transaction from the pool and reports whether it was
// there.
func (mp *Mempool) Remove(tx *database.Tx) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.Hash()]; !exists {
		return false
	}

	delete(mp.pool, tx.Hash())
	return true
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]*database.Tx)
}

// All returns every transaction in the pool in no particular order.
func (mp *Mempool) All() []*database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]*database.Tx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		trans = append(trans, tx)
	}

	return trans
}

// Pick uses the configured select strategy to return at most howMany
// transactions for the next block.
func (mp *Mempool) Pick(howMany int) ([]*database.Tx, error) {
	if howMany <= 0 {
		return nil, fmt.Errorf("pick %d: %w", howMany, ErrInvalidAmount)
	}

	// Group the transactions by signer.
	m := make(map[string][]*database.Tx)
	mp.mu.RLock()
	{
		for _, tx := range mp.pool {
			m[tx.Signer()] = append(m[tx.Signer()], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany), nil
}

// =============================================================================

// runValidate calls the validate function and turns a panic into an error
// so one bad transaction can't take down the caller.
func (mp *Mempool) runValidate(tx *database.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validating transaction: %v", r)
		}
	}()

	return mp.validate(tx)
}
