package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/skuchain/foundation/blockchain/balance"
	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
)

// SubmitTransaction validates a transaction from a wallet or a peer and
// admits it into the mempool.
func (s *State) SubmitTransaction(tx *database.Tx) Verdict {
	if err := s.mempool.Admit(tx); err != nil {
		s.evHandler("state: SubmitTransaction: REJECTED: %s", err)
		return rejected(err)
	}

	s.evHandler("viewer: tx added to mempool: tx[%s]", tx)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return accepted()
}

// =============================================================================

// validateTx is the mempool admission check. The transaction is applied to
// a copy of the current balances as if it were the only transaction of the
// next block.
func (s *State) validateTx(tx *database.Tx) error {
	if tx.Action() == database.ClaimCoinbase {
		return database.RejectTx(tx, errors.New("coinbase transactions are only created by miners"))
	}

	if err := s.checkTx(s.sheet.Clone(), "", 1, "", tx); err != nil {
		return err
	}

	return nil
}

// checkTx validates the transaction at the index of a block and applies it
// to the balance sheet.
func (s *State) checkTx(sheet *balance.Sheet, blockHash string, index int, miner string, tx *database.Tx) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if tx.Version() != s.genesis.TransactionVersion {
		return database.RejectTx(tx, fmt.Errorf("wrong transaction version, got %d, exp %d", tx.Version(), s.genesis.TransactionVersion))
	}

	fee, exists := s.genesis.Fee(tx.Action().String())
	if !exists {
		return database.RejectTx(tx, fmt.Errorf("no fee for action %s", tx.Action()))
	}

	if tx.Fee() != fee {
		return database.RejectTx(tx, fmt.Errorf("wrong fee for %s, got %d, exp %d", tx.Action(), tx.Fee(), fee))
	}

	if tx.Action() == database.ClaimCoinbase {
		if index != 0 {
			return database.RejectTx(tx, fmt.Errorf("coinbase at index %d", index))
		}

		st, _ := tx.State()
		if st.Amount != s.genesis.MiningReward {
			return database.RejectTx(tx, fmt.Errorf("wrong mining reward, got %d, exp %d", st.Amount, s.genesis.MiningReward))
		}
	}

	if err := sheet.ApplyTransaction(blockHash, index, miner, tx); err != nil {
		return database.RejectTx(tx, err)
	}

	return nil
}
