package campaigns

import (
	"context"
	"fmt"
	"math/big"

	"afunding/internal/ledger"
)

// Caller is the read side of a bound contract
type Caller interface {
	Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
}

// CountReader reads the number of campaigns held by the registry
type CountReader struct {
	contract Caller
}

// NewCountReader creates a CountReader for contract
func NewCountReader(contract Caller) *CountReader {
	return &CountReader{contract: contract}
}

// Read returns the current campaign count
func (r *CountReader) Read(ctx context.Context) (uint64, error) {
	out, err := r.contract.Call(ctx, ledger.MethodCampaignCount)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: campaignCount returned %d values", ledger.ErrParse, len(out))
	}

	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%w: campaignCount returned %T", ledger.ErrParse, out[0])
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("%w: campaign count %s does not fit in 64 bits", ledger.ErrParse, count)
	}
	return count.Uint64(), nil
}
