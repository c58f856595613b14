package database

import (
	"errors"
	"fmt"
)

// Set of errors for invalid arguments and invalid operations. These point
// at a programming error in the caller, not a network condition.
var (
	ErrNilBlock               = errors.New("block is nil")
	ErrNilTransaction         = errors.New("transaction is nil")
	ErrAlreadyFinalized       = errors.New("already finalized")
	ErrNotFinalized           = errors.New("not finalized")
	ErrUnknownTransactionKind = errors.New("unknown transaction kind")
	ErrNonceLimitReached      = errors.New("nonce limit reached")
)

// =============================================================================

// BlockRejectedError is returned when a block fails validation. It carries
// the offending block for diagnostics.
type BlockRejectedError struct {
	Block *Block
	Err   error
}

// RejectBlock wraps the reason a block failed validation.
func RejectBlock(block *Block, err error) error {
	return &BlockRejectedError{Block: block, Err: err}
}

// Error implements the error interface.
func (bre *BlockRejectedError) Error() string {
	if bre.Block == nil {
		return fmt.Sprintf("block rejected: %s", bre.Err)
	}
	return fmt.Sprintf("block rejected: blk[%s]: %s", bre.Block.Hash(), bre.Err)
}

// Unwrap provides support for errors.Is and errors.As.
func (bre *BlockRejectedError) Unwrap() error {
	return bre.Err
}

// IsBlockRejected checks if an error of type BlockRejectedError exists.
func IsBlockRejected(err error) bool {
	var bre *BlockRejectedError
	return errors.As(err, &bre)
}

// GetBlockRejected returns a copy of the BlockRejectedError pointer.
func GetBlockRejected(err error) *BlockRejectedError {
	var bre *BlockRejectedError
	if !errors.As(err, &bre) {
		return nil
	}
	return bre
}

// =============================================================================

// TxRejectedError is returned when a transaction fails validation. It
// carries the offending transaction for diagnostics.
type TxRejectedError struct {
	Tx  *Tx
	Err error
}

// RejectTx wraps the reason a transaction failed validation.
func RejectTx(tx *Tx, err error) error {
	return &TxRejectedError{Tx: tx, Err: err}
}

// Error implements the error interface.
func (tre *TxRejectedError) Error() string {
	if tre.Tx == nil {
		return fmt.Sprintf("transaction rejected: %s", tre.Err)
	}
	return fmt.Sprintf("transaction rejected: tx[%s]: %s", tre.Tx.Hash(), tre.Err)
}

// Unwrap provides support for errors.Is and errors.As.
func (tre *TxRejectedError) Unwrap() error {
	return tre.Err
}

// IsTxRejected checks if an error of type TxRejectedError exists.
func IsTxRejected(err error) bool {
	var tre *TxRejectedError
	return errors.As(err, &tre)
}

// GetTxRejected returns a copy of the TxRejectedError pointer.
func GetTxRejected(err error) *TxRejectedError {
	var tre *TxRejectedError
	if !errors.As(err, &tre) {
		return nil
	}
	return tre
}
