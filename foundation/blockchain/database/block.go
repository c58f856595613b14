package database

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/ardanlabs/skuchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/skuchain/foundation/blockchain/merkle"
	"github.com/ardanlabs/skuchain/foundation/blockchain/signature"
	"github.com/ardanlabs/skuchain/foundation/timestamp"
)

// GenesisSignature stands in for the signature of the genesis block, which
// is fixed by the protocol rather than signed by a miner.
const GenesisSignature = "GENESIS"

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	MagicNumber   string `json:"magic_number"`    // Network identifier.
	Version       uint32 `json:"version"`         // Protocol version.
	MerkleRoot    string `json:"merkle_root"`     // Merkle root of the transaction hashes.
	TimeStamp     int64  `json:"timestamp"`       // Seconds since the unix epoch when mining started.
	PrevBlockHash string `json:"prev_block_hash"` // Empty only for the genesis block.
	Nonce         uint64 `json:"nonce"`           // Value identified to solve the hash solution.
	Hash          string `json:"hash"`            // Set once when finalized.
	Signature     string `json:"signature"`       // Set once when finalized.
}

// headerBytes returns the canonical signable bytes of a header for a block
// holding txCount transactions. Fields are concatenated without delimiters,
// so distinct headers can in principle share bytes. The layout is part of
// the hash and must not change.
func headerBytes(h BlockHeader, txCount int) ([]byte, error) {
	return encodeFields(
		h.MagicNumber,
		strconv.FormatUint(uint64(h.Version), 10),
		h.PrevBlockHash,
		h.MerkleRoot,
		strconv.FormatInt(h.TimeStamp, 10),
		strconv.FormatUint(h.Nonce, 10),
		strconv.Itoa(txCount),
	)
}

// =============================================================================

// CandidateArgs are the values a miner chooses for a new block.
type CandidateArgs struct {
	MagicNumber   string
	Version       uint32
	MerkleRoot    string
	TimeStamp     int64
	PrevBlockHash string
	Trans         []*Tx
}

// Candidate is a block that is still being mined. Its nonce can change
// until it is finalized into a Block.
type Candidate struct {
	header    BlockHeader
	trans     []*Tx
	finalized bool
}

// NewCandidate constructs a candidate block with a zero nonce. The candidate
// owns its own copy of the transaction list.
func NewCandidate(args CandidateArgs) *Candidate {
	trans := make([]*Tx, len(args.Trans))
	copy(trans, args.Trans)

	return &Candidate{
		header: BlockHeader{
			MagicNumber:   args.MagicNumber,
			Version:       args.Version,
			MerkleRoot:    args.MerkleRoot,
			TimeStamp:     args.TimeStamp,
			PrevBlockHash: args.PrevBlockHash,
		},
		trans: trans,
	}
}

// Header returns a copy of the candidate header.
func (c *Candidate) Header() BlockHeader {
	return c.header
}

// Nonce returns the current nonce.
func (c *Candidate) Nonce() uint64 {
	return c.header.Nonce
}

// SetNonce sets the nonce to a specific value.
func (c *Candidate) SetNonce(nonce uint64) error {
	if c.finalized {
		return ErrAlreadyFinalized
	}

	c.header.Nonce = nonce
	return nil
}

// IncrementNonce moves to the next nonce. Once every 64 bit value has been
// tried ErrNonceLimitReached is returned.
func (c *Candidate) IncrementNonce() error {
	if c.finalized {
		return ErrAlreadyFinalized
	}

	if c.header.Nonce == math.MaxUint64 {
		return ErrNonceLimitReached
	}

	c.header.Nonce++
	return nil
}

// IsFinalized reports whether the candidate has been sealed into a Block.
func (c *Candidate) IsFinalized() bool {
	return c.finalized
}

// HeaderBytes returns the canonical signable bytes of the candidate header.
func (c *Candidate) HeaderBytes() ([]byte, error) {
	if c == nil {
		return nil, ErrNilBlock
	}

	return headerBytes(c.header, len(c.trans))
}

// CalculateHash returns the SHA-256 of the header bytes as uppercase hex.
func (c *Candidate) CalculateHash() (string, error) {
	data, err := c.HeaderBytes()
	if err != nil {
		return "", err
	}

	return hashHex(data), nil
}

// finalize seals the candidate. It can only succeed once.
func (c *Candidate) finalize(hash string, signature string) (*Block, error) {
	if c.finalized {
		return nil, fmt.Errorf("block %s: %w", hash, ErrAlreadyFinalized)
	}

	if hash == "" || signature == "" {
		return nil, fmt.Errorf("hash and signature are required to finalize")
	}

	c.finalized = true

	h := c.header
	h.Hash = hash
	h.Signature = signature

	return &Block{header: h, trans: c.trans}, nil
}

// =============================================================================
// Block finalizer.

// CreateSignature signs a block or transaction hash with the private key.
func CreateSignature(hash string, privateKey string) (string, error) {
	return signature.SignString(hash, privateKey)
}

// FinalizeBlock computes the candidate hash, signs it, and seals the
// candidate into an immutable Block.
func FinalizeBlock(c *Candidate, privateKey string) (*Block, error) {
	hash, err := c.CalculateHash()
	if err != nil {
		return nil, err
	}

	return FinalizeBlockWithHash(c, hash, privateKey)
}

// FinalizeBlockWithHash seals the candidate using a hash already computed
// by the mining loop.
func FinalizeBlockWithHash(c *Candidate, hash string, privateKey string) (*Block, error) {
	if c == nil {
		return nil, ErrNilBlock
	}

	if c.finalized {
		return nil, fmt.Errorf("block %s: %w", hash, ErrAlreadyFinalized)
	}

	sig, err := CreateSignature(hash, privateKey)
	if err != nil {
		return nil, err
	}

	return c.finalize(hash, sig)
}

// =============================================================================

// Block represents a finalized group of transactions batched together.
// Blocks are immutable and shared read only.
type Block struct {
	header BlockHeader
	trans  []*Tx
}

// NewGenesisBlock constructs the well known first block of the network.
func NewGenesisBlock(gen genesis.Genesis) *Block {
	c := NewCandidate(CandidateArgs{
		MagicNumber: gen.NetworkID,
		Version:     gen.ProtocolVersion,
		TimeStamp:   timestamp.FromTime(gen.Date),
	})

	hash, err := c.CalculateHash()
	if err != nil {
		panic(fmt.Sprintf("genesis block hash: %s", err))
	}

	block, err := c.finalize(hash, GenesisSignature)
	if err != nil {
		panic(fmt.Sprintf("genesis block finalize: %s", err))
	}

	return block
}

// Header returns a copy of the block header.
func (b *Block) Header() BlockHeader {
	return b.header
}

// Hash returns the hash the block was finalized with.
func (b *Block) Hash() string {
	if b == nil {
		return ""
	}
	return b.header.Hash
}

// IsFinalized reports whether both the hash and signature are set.
func (b *Block) IsFinalized() bool {
	return b != nil && b.header.Hash != "" && b.header.Signature != ""
}

// Transactions returns the ordered transactions in the block.
func (b *Block) Transactions() []*Tx {
	trans := make([]*Tx, len(b.trans))
	copy(trans, b.trans)
	return trans
}

// TxCount returns the number of transactions in the block.
func (b *Block) TxCount() int {
	return len(b.trans)
}

// Coinbase returns the first transaction when it claims the mining reward.
func (b *Block) Coinbase() (*Tx, bool) {
	if len(b.trans) == 0 || b.trans[0].Action() != ClaimCoinbase {
		return nil, false
	}
	return b.trans[0], true
}

// HeaderBytes returns the canonical signable bytes of the block header.
func (b *Block) HeaderBytes() ([]byte, error) {
	if b == nil {
		return nil, ErrNilBlock
	}

	return headerBytes(b.header, len(b.trans))
}

// CalculateHash recomputes the hash from the header contents.
func (b *Block) CalculateHash() (string, error) {
	data, err := b.HeaderBytes()
	if err != nil {
		return "", err
	}

	return hashHex(data), nil
}

// String implements the fmt.Stringer interface for logging.
func (b *Block) String() string {
	if b == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s:%d", b.header.Hash, len(b.trans))
}

// =============================================================================

// blockJSON represents what is written to disk and sent over the network.
type blockJSON struct {
	Header BlockHeader `json:"header"`
	Trans  []*Tx       `json:"trans"`
}

// MarshalJSON implements the json.Marshaler interface.
func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockJSON{Header: b.header, Trans: b.trans})
}

// UnmarshalJSON implements the json.Unmarshaler interface. Nothing is
// validated here, callers validate blocks they receive.
func (b *Block) UnmarshalJSON(data []byte) error {
	var bj blockJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return err
	}

	*b = Block{header: bj.Header, trans: bj.Trans}
	return nil
}

// =============================================================================

// merkleLeaf adapts a transaction hash to the merkle tree.
type merkleLeaf struct {
	hash string
}

// Hash implements the merkle Hashable interface.
func (l merkleLeaf) Hash() ([]byte, error) {
	return hex.DecodeString(l.hash)
}

// Equals implements the merkle Hashable interface.
func (l merkleLeaf) Equals(other merkleLeaf) bool {
	return l.hash == other.hash
}

// MerkleRoot returns the merkle root over the hashes of the finalized
// transactions. A block with no transactions has an empty root.
func MerkleRoot(trans []*Tx) (string, error) {
	if len(trans) == 0 {
		return "", nil
	}

	tree, err := merkleTree(trans)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// MerkleProof returns the proof that the transaction is part of the block.
func (b *Block) MerkleProof(txHash string) ([]string, []int64, error) {
	if len(b.trans) == 0 {
		return nil, nil, fmt.Errorf("block %s has no transactions", b.header.Hash)
	}

	tree, err := merkleTree(b.trans)
	if err != nil {
		return nil, nil, err
	}

	proof, order, err := tree.Proof(merkleLeaf{hash: txHash})
	if err != nil {
		return nil, nil, err
	}

	hexProof := make([]string, len(proof))
	for i, p := range proof {
		hexProof[i] = merkle.ToHex(p)
	}

	return hexProof, order, nil
}

func merkleTree(trans []*Tx) (*merkle.Tree[merkleLeaf], error) {
	leafs := make([]merkleLeaf, len(trans))
	for i, tx := range trans {
		if !tx.IsFinalized() {
			return nil, fmt.Errorf("transaction %d: %w", i, ErrNotFinalized)
		}
		leafs[i] = merkleLeaf{hash: tx.Hash()}
	}

	return merkle.NewTree(leafs)
}
