package selector

import (
	"sort"

	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
)

// hashSelect returns transactions ordered by hash so every node picks the
// same set from the same pool.
var hashSelect = func(m map[string][]*database.Tx, howMany int) []*database.Tx {
	var all []*database.Tx
	for _, txs := range m {
		all = append(all, txs...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Hash() < all[j].Hash()
	})

	if len(all) > howMany {
		all = all[:howMany]
	}

	return all
}
