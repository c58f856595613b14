package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
)

// Action identifies what a transaction does on chain.
type Action int

// Set of actions a transaction can perform.
const (
	TransferToken Action = iota
	TransferSupply
	DestroySupply
	CreateSupply
	CreateSku
	ChangeSku
	ClaimCoinbase
)

var actionNames = [...]string{
	TransferToken:  "TransferToken",
	TransferSupply: "TransferSupply",
	DestroySupply:  "DestroySupply",
	CreateSupply:   "CreateSupply",
	CreateSku:      "CreateSku",
	ChangeSku:      "ChangeSku",
	ClaimCoinbase:  "ClaimCoinbase",
}

// ParseAction converts an action name into an Action.
func ParseAction(name string) (Action, error) {
	for a, n := range actionNames {
		if n == name {
			return Action(a), nil
		}
	}

	return 0, fmt.Errorf("unknown action %q", name)
}

// String implements the fmt.Stringer interface. The name is part of the
// transaction byte layout.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "Action(" + strconv.Itoa(int(a)) + ")"
	}
	return actionNames[a]
}

// MarshalText implements the encoding.TextMarshaler interface.
func (a Action) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(actionNames) {
		return nil, fmt.Errorf("unknown action %d", int(a))
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (a *Action) UnmarshalText(text []byte) error {
	action, err := ParseAction(string(text))
	if err != nil {
		return err
	}

	*a = action
	return nil
}

// =============================================================================

// Kind names a transaction variant.
type Kind string

// Set of known transaction kinds.
const (
	KindState Kind = "state"
)

// Body is the kind specific part of a transaction. Only the types in this
// package implement it.
type Body interface {
	Kind() Kind
	body()
}

// StateTx moves tokens or SKU supply, or changes the SKU registry.
type StateTx struct {
	Sender       string `json:"sender,omitempty"`         // Empty only for a coinbase.
	Recipient    string `json:"recipient,omitempty"`      // Empty for DestroySupply.
	SkuBlockHash string `json:"sku_block_hash,omitempty"` // Block that created the SKU, empty when no SKU is referenced.
	SkuTxIndex   int    `json:"sku_tx_index"`             // Index of the SKU's CreateSku transaction in that block.
	Amount       int64  `json:"amount"`
}

// Kind implements the Body interface.
func (StateTx) Kind() Kind { return KindState }

func (StateTx) body() {}

// HasSku reports whether the transaction references an SKU.
func (st StateTx) HasSku() bool {
	return st.SkuBlockHash != ""
}

// =============================================================================

// Tx is a transaction on the blockchain. The fields are fixed by NewTx and
// the hash and signature are set once by finalizing the transaction, so a
// sealed transaction can be shared between goroutines without copying.
type Tx struct {
	version uint32
	action  Action
	data    string
	fee     int64
	body    Body

	hash      string
	signature string
}

// NewTx constructs an unfinalized transaction.
func NewTx(version uint32, action Action, data string, fee int64, body Body) *Tx {
	return &Tx{
		version: version,
		action:  action,
		data:    data,
		fee:     fee,
		body:    body,
	}
}

// Version returns the transaction format version.
func (tx *Tx) Version() uint32 {
	return tx.version
}

// Action returns what the transaction does.
func (tx *Tx) Action() Action {
	return tx.action
}

// Data returns the action payload, the SKU data for CreateSku and ChangeSku
// and the block height for a coinbase.
func (tx *Tx) Data() string {
	return tx.data
}

// Fee returns the fee paid to the miner.
func (tx *Tx) Fee() int64 {
	return tx.fee
}

// Body returns the kind specific part of the transaction.
func (tx *Tx) Body() Body {
	return tx.body
}

// Hash returns the hash set when the transaction was finalized.
func (tx *Tx) Hash() string {
	if tx == nil {
		return ""
	}
	return tx.hash
}

// Signature returns the signature set when the transaction was finalized.
func (tx *Tx) Signature() string {
	if tx == nil {
		return ""
	}
	return tx.signature
}

// IsFinalized reports whether both the hash and signature are set.
func (tx *Tx) IsFinalized() bool {
	return tx != nil && tx.hash != "" && tx.signature != ""
}

// Finalize seals the transaction with its hash and signature. It can only
// be called once.
func (tx *Tx) Finalize(hash string, signature string) error {
	if tx == nil {
		return ErrNilTransaction
	}

	if tx.IsFinalized() {
		return fmt.Errorf("transaction %s: %w", tx.hash, ErrAlreadyFinalized)
	}

	if hash == "" || signature == "" {
		return errors.New("hash and signature are required to finalize")
	}

	tx.hash = hash
	tx.signature = signature

	return nil
}

// State returns the state body of the transaction.
func (tx *Tx) State() (StateTx, bool) {
	if tx == nil {
		return StateTx{}, false
	}

	st, ok := tx.body.(StateTx)
	return st, ok
}

// Signer returns the public key whose signature seals the transaction. This
// is the sender, or the recipient for a coinbase which has no sender.
func (tx *Tx) Signer() string {
	st, ok := tx.State()
	if !ok {
		return ""
	}

	if tx.action == ClaimCoinbase {
		return st.Recipient
	}
	return st.Sender
}

// String implements the fmt.Stringer interface for logging.
func (tx *Tx) String() string {
	if tx == nil {
		return "<nil>"
	}

	if tx.hash == "" {
		return fmt.Sprintf("%s:unfinalized", tx.action)
	}
	return fmt.Sprintf("%s:%s", tx.action, tx.hash)
}

// =============================================================================
// Transaction finalizer.

// TxBytes returns the canonical signable bytes of the transaction. Absent
// optional fields are written as empty strings.
func TxBytes(tx *Tx) ([]byte, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}

	switch body := tx.body.(type) {
	case StateTx:
		skuTxIndex := ""
		if body.HasSku() {
			skuTxIndex = strconv.Itoa(body.SkuTxIndex)
		}

		return encodeFields(
			body.Sender,
			body.Recipient,
			body.SkuBlockHash,
			skuTxIndex,
			strconv.FormatInt(body.Amount, 10),
			strconv.FormatUint(uint64(tx.version), 10),
			tx.action.String(),
			tx.data,
			strconv.FormatInt(tx.fee, 10),
		)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTransactionKind, tx.body)
	}
}

// CalculateTxHash returns the SHA-256 of the transaction bytes as
// uppercase hex.
func CalculateTxHash(tx *Tx) (string, error) {
	data, err := TxBytes(tx)
	if err != nil {
		return "", err
	}

	return hashHex(data), nil
}

// FinalizeTx hashes and signs the transaction with the private key. A
// transaction that is already finalized is left as is.
func FinalizeTx(tx *Tx, privateKey string) error {
	if tx == nil {
		return ErrNilTransaction
	}

	if tx.IsFinalized() {
		return nil
	}

	hash, err := CalculateTxHash(tx)
	if err != nil {
		return err
	}

	sig, err := signature.SignString(hash, privateKey)
	if err != nil {
		return err
	}

	return tx.Finalize(hash, sig)
}

// =============================================================================

// Validate checks the transaction is sealed, its hash matches its contents,
// it is signed by the expected key, and its fields fit its action. It does
// not check balances, fees, or versions, which depend on chain state.
func (tx *Tx) Validate() error {
	if tx == nil {
		return ErrNilTransaction
	}

	if !tx.IsFinalized() {
		return RejectTx(tx, ErrNotFinalized)
	}

	hash, err := CalculateTxHash(tx)
	if err != nil {
		return RejectTx(tx, err)
	}

	if hash != tx.hash {
		return RejectTx(tx, fmt.Errorf("hash mismatch, got %s, exp %s", tx.hash, hash))
	}

	if err := tx.validateFields(); err != nil {
		return RejectTx(tx, err)
	}

	if !signature.SignatureIsValid(tx.signature, tx.hash, tx.Signer()) {
		return RejectTx(tx, errors.New("invalid signature"))
	}

	return nil
}

// validateFields checks the presence rules of each action.
func (tx *Tx) validateFields() error {
	st, ok := tx.State()
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownTransactionKind, tx.body)
	}

	type rule struct {
		sender    bool
		recipient bool
		sku       bool
		amount    bool
		skuData   bool
	}

	var r rule
	switch tx.action {
	case TransferToken:
		r = rule{sender: true, recipient: true, amount: true}
	case TransferSupply:
		r = rule{sender: true, recipient: true, sku: true, amount: true}
	case DestroySupply:
		r = rule{sender: true, sku: true, amount: true}
	case CreateSupply:
		r = rule{sender: true, sku: true, amount: true}
	case CreateSku:
		r = rule{sender: true, skuData: true}
	case ChangeSku:
		r = rule{sender: true, sku: true, skuData: true}
	case ClaimCoinbase:
		r = rule{recipient: true, amount: true}
	default:
		return fmt.Errorf("unknown action %s", tx.action)
	}

	switch {
	case r.sender && !signature.IsPublicKey(st.Sender):
		return errors.New("sender is not a valid public key")
	case !r.sender && st.Sender != "":
		return fmt.Errorf("%s must not have a sender", tx.action)
	}

	switch {
	case r.recipient && !signature.IsPublicKey(st.Recipient):
		return errors.New("recipient is not a valid public key")
	case !r.recipient && tx.action == DestroySupply && st.Recipient != "":
		return fmt.Errorf("%s must not have a recipient", tx.action)
	}

	switch {
	case r.sku && !st.HasSku():
		return fmt.Errorf("%s requires an sku reference", tx.action)
	case r.sku && st.SkuTxIndex < 0:
		return fmt.Errorf("invalid sku transaction index %d", st.SkuTxIndex)
	case !r.sku && st.HasSku():
		return fmt.Errorf("%s must not reference an sku", tx.action)
	}

	switch {
	case r.amount && st.Amount <= 0:
		return fmt.Errorf("amount must be positive, got %d", st.Amount)
	case !r.amount && st.Amount != 0:
		return fmt.Errorf("%s must not carry an amount", tx.action)
	}

	if r.skuData {
		if _, err := ParseSkuData(tx.data); err != nil {
			return err
		}
	}

	if tx.fee < 0 {
		return fmt.Errorf("fee must not be negative, got %d", tx.fee)
	}

	return nil
}

// =============================================================================

// txJSON is the shape of a transaction on disk and over the network.
type txJSON struct {
	Kind      Kind            `json:"kind"`
	Version   uint32          `json:"version"`
	Action    Action          `json:"action"`
	Data      string          `json:"data,omitempty"`
	Fee       int64           `json:"fee"`
	Body      json.RawMessage `json:"body"`
	Hash      string          `json:"hash,omitempty"`
	Signature string          `json:"signature,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (tx *Tx) MarshalJSON() ([]byte, error) {
	if tx.body == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrUnknownTransactionKind)
	}

	body, err := json.Marshal(tx.body)
	if err != nil {
		return nil, err
	}

	return json.Marshal(txJSON{
		Kind:      tx.body.Kind(),
		Version:   tx.version,
		Action:    tx.action,
		Data:      tx.data,
		Fee:       tx.fee,
		Body:      body,
		Hash:      tx.hash,
		Signature: tx.signature,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface. A sealed
// transaction cannot be decoded into.
func (tx *Tx) UnmarshalJSON(data []byte) error {
	if tx.IsFinalized() {
		return fmt.Errorf("transaction %s: %w", tx.hash, ErrAlreadyFinalized)
	}

	var tj txJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}

	var body Body
	switch tj.Kind {
	case KindState:
		var st StateTx
		if err := json.Unmarshal(tj.Body, &st); err != nil {
			return fmt.Errorf("decoding state body: %w", err)
		}
		body = st

	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransactionKind, tj.Kind)
	}

	*tx = Tx{
		version:   tj.Version,
		action:    tj.Action,
		data:      tj.Data,
		fee:       tj.Fee,
		body:      body,
		hash:      tj.Hash,
		signature: tj.Signature,
	}

	return nil
}
