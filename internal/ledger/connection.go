package ledger

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"

	"afunding/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// CrowdfundingABI is the interface schema of the campaign registry contract
//
//go:embed crowdfunding.abi.json
var CrowdfundingABI []byte

// Contract methods
const (
	MethodCampaignCount  = "campaignCount"
	MethodCampaigns      = "campaigns"
	MethodCreateCampaign = "createCampaign"
)

var requiredMethods = []string{MethodCampaignCount, MethodCampaigns, MethodCreateCampaign}

// TxArgs is the payload of an eth_sendTransaction request.
// The node signs with its own unlocked account for From.
type TxArgs struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Backend abstracts the JSON-RPC surface used by the mirror
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error)
	Close()
}

// ethBackend implements Backend on top of go-ethereum's ethclient
type ethBackend struct {
	client *ethclient.Client
}

func (b *ethBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return b.client.CallContract(ctx, msg, blockNumber)
}

func (b *ethBackend) BlockNumber(ctx context.Context) (uint64, error) {
	return b.client.BlockNumber(ctx)
}

// SendTransaction goes through the raw RPC client because ethclient only
// exposes eth_sendRawTransaction
func (b *ethBackend) SendTransaction(ctx context.Context, args TxArgs) (common.Hash, error) {
	var hash common.Hash
	err := b.client.Client().CallContext(ctx, &hash, "eth_sendTransaction", args)
	return hash, err
}

func (b *ethBackend) Close() {
	b.client.Close()
}

// Connection owns the transport to the RPC endpoint
type Connection struct {
	backend Backend
}

// Connect opens an HTTP JSON-RPC transport to endpoint.
// Nothing is sent until the first call, so an unreachable endpoint only
// fails there.
func Connect(ctx context.Context, endpoint string) (*Connection, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint url: %w", ErrTransport, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported endpoint scheme %q", ErrTransport, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint url has no host", ErrTransport)
	}

	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	slog.Debug("RPC transport opened", "endpoint", u.Redacted())

	return NewConnection(&ethBackend{client: ethclient.NewClient(client)}), nil
}

// NewConnection wraps an existing backend
func NewConnection(backend Backend) *Connection {
	return &Connection{backend: backend}
}

// BlockNumber returns the most recent block number known to the endpoint
func (c *Connection) BlockNumber(ctx context.Context) (uint64, error) {
	metrics.RPCCalls.WithLabelValues("eth_blockNumber").Inc()
	number, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, callError("eth_blockNumber", err)
	}
	return number, nil
}

// Close releases the transport
func (c *Connection) Close() {
	c.backend.Close()
}

// Bind returns a handle to the contract at address described by schema.
// The address may carry a 0x prefix or not.
func (c *Connection) Bind(address string, schema []byte) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: malformed contract address %q", ErrContractLoad, address)
	}

	parsed, err := abi.JSON(bytes.NewReader(schema))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid interface schema: %w", ErrContractLoad, err)
	}
	for _, name := range requiredMethods {
		if _, ok := parsed.Methods[name]; !ok {
			return nil, fmt.Errorf("%w: interface schema has no method %q", ErrContractLoad, name)
		}
	}

	return &Contract{
		conn:    c,
		address: common.HexToAddress(address),
		abi:     parsed,
	}, nil
}

// Contract is a read-only handle bound to one deployed contract.
// It is safe for concurrent use.
type Contract struct {
	conn    *Connection
	address common.Address
	abi     abi.ABI
}

// Address returns the bound contract address
func (c *Contract) Address() common.Address {
	return c.address
}

// Connection returns the connection the contract is bound to
func (c *Contract) Connection() *Connection {
	return c.conn
}

// Call performs a read-only call of method and returns the decoded outputs
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrParse, method, err)
	}

	metrics.RPCCalls.WithLabelValues(method).Inc()
	out, err := c.conn.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, callError(method, err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrParse, method, err)
	}
	return values, nil
}

// Transact submits a state-changing call of method on behalf of from
func (c *Contract) Transact(ctx context.Context, from common.Address, method string, args ...interface{}) (common.Hash, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: encode %s: %w", ErrParse, method, err)
	}

	metrics.RPCCalls.WithLabelValues(method).Inc()
	hash, err := c.conn.backend.SendTransaction(ctx, TxArgs{From: from, To: c.address, Data: data})
	if err != nil {
		return common.Hash{}, callError(method, err)
	}
	return hash, nil
}

// ParseAddress parses a hex address with or without the 0x prefix
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: malformed address %q", ErrParse, s)
	}
	return common.HexToAddress(s), nil
}
