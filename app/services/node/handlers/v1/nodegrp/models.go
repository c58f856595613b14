package nodegrp

import (
	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/nameservice"
)

type tx struct {
	Hash          string `json:"hash"`
	Action        string `json:"action"`
	Signer        string `json:"signer"`
	SignerName    string `json:"signer_name"`
	Recipient     string `json:"recipient,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
	Sku           string `json:"sku,omitempty"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	Data          string `json:"data,omitempty"`
}

func toTx(ns *nameservice.NameService, tran *database.Tx) tx {
	t := tx{
		Hash:       tran.Hash(),
		Action:     tran.Action().String(),
		Signer:     tran.Signer(),
		SignerName: ns.Lookup(tran.Signer()),
		Fee:        tran.Fee(),
		Data:       tran.Data(),
	}

	if st, ok := tran.State(); ok {
		t.Amount = st.Amount
		if st.Recipient != "" {
			t.Recipient = st.Recipient
			t.RecipientName = ns.Lookup(st.Recipient)
		}
		if st.HasSku() {
			t.Sku = st.SkuRef().String()
		}
	}

	return t
}

type status struct {
	NetworkID       string `json:"network_id"`
	Height          int    `json:"height"`
	LatestBlockHash string `json:"latest_block_hash"`
	Uncommitted     int    `json:"uncommitted"`
	Miner           string `json:"miner"`
	MinerName       string `json:"miner_name"`
	Difficulty      string `json:"difficulty"`
	Target          string `json:"target"`
}

type difficulty struct {
	Height      int    `json:"height"`
	Difficulty  string `json:"difficulty"`
	Target      string `json:"target"`
	BeginHeight int    `json:"window_begin_height,omitempty"`
	EndHeight   int    `json:"window_end_height,omitempty"`
	Elapsed     int64  `json:"window_elapsed_seconds,omitempty"`
}

type holding struct {
	Sku    string `json:"sku"`
	Amount int64  `json:"amount"`
}

type account struct {
	PublicKey string    `json:"public_key"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	Holdings  []holding `json:"holdings"`
}

type proof struct {
	BlockHash string   `json:"block_hash"`
	TxHash    string   `json:"tx_hash"`
	Hashes    []string `json:"hashes"`
	Order     []int64  `json:"order"`
}
