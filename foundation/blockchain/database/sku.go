package database

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate holds the settings and caches for validating SKU data.
var validate = validator.New(validator.WithRequiredStructEnabled())

// SkuData describes a stock keeping unit. It travels as JSON in the data
// payload of CreateSku and ChangeSku transactions.
type SkuData struct {
	ID          string `json:"id" validate:"required,max=64"`
	EAN         string `json:"ean" validate:"omitempty,numeric,min=8,max=14"`
	Description string `json:"description" validate:"max=256"`
}

// ParseSkuData decodes and validates SKU data from a transaction payload.
func ParseSkuData(data string) (SkuData, error) {
	var sd SkuData
	if err := json.Unmarshal([]byte(data), &sd); err != nil {
		return SkuData{}, fmt.Errorf("decoding sku data: %w", err)
	}

	if err := validate.Struct(sd); err != nil {
		return SkuData{}, fmt.Errorf("validating sku data: %w", err)
	}

	return sd, nil
}

// String returns the payload form of the SKU data.
func (sd SkuData) String() string {
	data, err := json.Marshal(sd)
	if err != nil {
		return ""
	}
	return string(data)
}

// =============================================================================

// SkuRef identifies an SKU by the block and transaction index of the
// CreateSku transaction that defined it.
type SkuRef struct {
	BlockHash string `json:"block_hash"`
	TxIndex   int    `json:"tx_index"`
}

// String implements the fmt.Stringer interface.
func (ref SkuRef) String() string {
	return fmt.Sprintf("%s:%d", ref.BlockHash, ref.TxIndex)
}

// SkuRef returns the SKU referenced by a state transaction.
func (st StateTx) SkuRef() SkuRef {
	return SkuRef{BlockHash: st.SkuBlockHash, TxIndex: st.SkuTxIndex}
}

// Sku is an SKU as currently recorded on chain.
type Sku struct {
	Ref         SkuRef  `json:"ref"`          // Where the SKU was created.
	LastChanged SkuRef  `json:"last_changed"` // Where the SKU data was last set.
	Creator     string  `json:"creator"`      // Public key allowed to mint supply and change data.
	Data        SkuData `json:"data"`
}
