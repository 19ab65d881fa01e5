// Package ledgertest provides an in-memory registry contract that speaks the
// same ABI as the deployed one.
package ledgertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"afunding/internal/ledger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted is returned for reads past the end of the registry
var ErrReverted = errors.New("execution reverted")

// Record is one campaign as stored by the contract
type Record struct {
	Creator     common.Address
	Title       string
	Description string
	Goal        *big.Int
	FundsRaised *big.Int
	Completed   bool
}

// Submission is a createCampaign call received by the backend
type Submission struct {
	From        common.Address
	To          common.Address
	Title       string
	Description string
	Goal        *big.Int
}

// Backend implements ledger.Backend against an in-memory registry
type Backend struct {
	mu  sync.Mutex
	abi abi.ABI

	records   []Record
	count     *big.Int
	countErr  error
	failures  map[uint64]error
	corrupted map[uint64]bool
	block     uint64
	blockErr  error
	sendErr   error

	submissions []Submission
	reads       []uint64
	countReads  int
	inFlight    int
	maxInFlight int
	closed      bool

	// OnRead runs before an indexed read is answered, outside the lock
	OnRead func(index uint64)
}

// NewBackend creates a backend holding records
func NewBackend(records ...Record) *Backend {
	parsed, err := abi.JSON(bytes.NewReader(ledger.CrowdfundingABI))
	if err != nil {
		panic(fmt.Sprintf("ledgertest: embedded ABI does not parse: %v", err))
	}
	return &Backend{
		abi:       parsed,
		records:   records,
		failures:  make(map[uint64]error),
		corrupted: make(map[uint64]bool),
	}
}

// SetRecords replaces the registry contents
func (b *Backend) SetRecords(records ...Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = records
}

// SetCount makes campaignCount report n instead of the number of records
func (b *Backend) SetCount(n *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count = n
}

// FailCount makes campaignCount fail with err (nil clears it)
func (b *Backend) FailCount(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.countErr = err
}

// FailIndex makes the read of index fail with err
func (b *Backend) FailIndex(index uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[index] = err
}

// CorruptIndex makes the read of index return undecodable bytes
func (b *Backend) CorruptIndex(index uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.corrupted[index] = true
}

// SetBlock sets the block number and the error returned by BlockNumber
func (b *Backend) SetBlock(number uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.block = number
	b.blockErr = err
}

// FailSend makes SendTransaction fail with err (nil clears it)
func (b *Backend) FailSend(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendErr = err
}

// Submissions returns every createCampaign call received so far
func (b *Backend) Submissions() []Submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Submission(nil), b.submissions...)
}

// Reads returns the indices read so far, in the order they were issued
func (b *Backend) Reads() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint64(nil), b.reads...)
}

// CountReads returns how many times campaignCount was called
func (b *Backend) CountReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countReads
}

// MaxInFlight returns the highest number of concurrent indexed reads seen
func (b *Backend) MaxInFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

// Closed reports whether Close was called
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method, args, err := b.decode(msg.Data)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case ledger.MethodCampaignCount:
		return b.campaignCount(method)
	case ledger.MethodCampaigns:
		return b.campaign(method, args[0].(*big.Int).Uint64())
	default:
		return nil, fmt.Errorf("ledgertest: %s is not a view method", method.Name)
	}
}

func (b *Backend) campaignCount(method *abi.Method) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.countReads++
	if b.countErr != nil {
		return nil, b.countErr
	}
	count := big.NewInt(int64(len(b.records)))
	if b.count != nil {
		count = b.count
	}
	return method.Outputs.Pack(count)
}

func (b *Backend) campaign(method *abi.Method, index uint64) ([]byte, error) {
	b.mu.Lock()
	b.reads = append(b.reads, index)
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	hook := b.OnRead
	b.mu.Unlock()

	if hook != nil {
		hook(index)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--

	if err, ok := b.failures[index]; ok {
		return nil, err
	}
	if b.corrupted[index] {
		return []byte{0x01, 0x02}, nil
	}
	if index >= uint64(len(b.records)) {
		return nil, ErrReverted
	}

	r := b.records[index]
	return method.Outputs.Pack(r.Creator, r.Title, r.Description, orZero(r.Goal), orZero(r.FundsRaised), r.Completed)
}

func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, b.blockErr
}

// SendTransaction records createCampaign calls and appends the new campaign
// to the registry, as the deployed contract does
func (b *Backend) SendTransaction(ctx context.Context, args ledger.TxArgs) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}

	method, values, err := b.decode(args.Data)
	if err != nil {
		return common.Hash{}, err
	}
	if method.Name != ledger.MethodCreateCampaign {
		return common.Hash{}, fmt.Errorf("ledgertest: unexpected transaction %s", method.Name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sendErr != nil {
		return common.Hash{}, b.sendErr
	}

	sub := Submission{
		From:        args.From,
		To:          args.To,
		Title:       values[0].(string),
		Description: values[1].(string),
		Goal:        values[2].(*big.Int),
	}
	b.submissions = append(b.submissions, sub)
	b.records = append(b.records, Record{
		Creator:     sub.From,
		Title:       sub.Title,
		Description: sub.Description,
		Goal:        sub.Goal,
		FundsRaised: new(big.Int),
	})

	return common.BigToHash(big.NewInt(int64(len(b.submissions)))), nil
}

func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Backend) decode(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("ledgertest: calldata too short")
	}
	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
