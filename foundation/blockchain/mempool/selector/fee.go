package selector

import (
	"sort"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
)

// feeSelect returns transactions with the best fee while giving every
// signer a fair share of the block.
var feeSelect = func(m map[string][]*database.Tx, howMany int) []*database.Tx {

	/*
		Bill: {Action: CreateSku, Fee: 5}, {Action: TransferToken, Fee: 1}
		Pavl: {Action: TransferToken, Fee: 1}
		Edua: {Action: ChangeSku, Fee: 5}, {Action: TransferSupply, Fee: 1}
	*/

	// Sort the transactions per signer by fee.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(byFee(m[key]))
		}
	}

	// Pick the first transaction in the slice for each signer. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]*database.Tx
	for {
		var row []*database.Tx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: Bill: {Action: CreateSku, Fee: 5}
		0: Pavl: {Action: TransferToken, Fee: 1}
		0: Edua: {Action: ChangeSku, Fee: 5}
		1: Bill: {Action: TransferToken, Fee: 1}
		1: Edua: {Action: TransferSupply, Fee: 1}
	*/

	// Sort each row by fee so map iteration order never leaks into the
	// result. Keep pulling transactions from each row until the amount is
	// fulfilled or there are no more transactions.
	final := []*database.Tx{}
	for _, row := range rows {
		sort.Sort(byFee(row))

		need := howMany - len(final)
		if len(row) > need {
			final = append(final, row[:need]...)
			break
		}
		final = append(final, row...)
	}

	return final
}
