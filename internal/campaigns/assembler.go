package campaigns

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"afunding/internal/ledger"
	"afunding/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

// tupleSize is the number of outputs of campaigns(uint256)
const tupleSize = 6

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// Assemble decodes the raw campaigns(uint256) outputs read at index into a
// Campaign. Strings are taken as-is.
func Assemble(index uint64, raw []interface{}) (models.Campaign, error) {
	if len(raw) != tupleSize {
		return models.Campaign{}, fmt.Errorf("%w: campaign tuple has %d fields, want %d", ledger.ErrParse, len(raw), tupleSize)
	}

	creator, ok := raw[0].(common.Address)
	if !ok {
		return models.Campaign{}, fieldError("creator", raw[0])
	}
	title, ok := raw[1].(string)
	if !ok {
		return models.Campaign{}, fieldError("title", raw[1])
	}
	description, ok := raw[2].(string)
	if !ok {
		return models.Campaign{}, fieldError("description", raw[2])
	}
	goal, ok := raw[3].(*big.Int)
	if !ok {
		return models.Campaign{}, fieldError("goal", raw[3])
	}
	raised, ok := raw[4].(*big.Int)
	if !ok {
		return models.Campaign{}, fieldError("fundsRaised", raw[4])
	}
	completed, ok := raw[5].(bool)
	if !ok {
		return models.Campaign{}, fieldError("completed", raw[5])
	}

	return models.Campaign{
		ID:          index,
		Creator:     FormatAddress(creator),
		Title:       title,
		Description: description,
		Goal:        AmountToFloat(goal),
		FundsRaised: AmountToFloat(raised),
		Completed:   completed,
	}, nil
}

// FormatAddress renders addr as 0x followed by 40 lowercase hex digits.
// common.Address.Hex is checksummed (mixed case) and is not used here.
func FormatAddress(addr common.Address) string {
	return "0x" + hex.EncodeToString(addr.Bytes())
}

// AmountToFloat keeps the low 64 bits of v and converts them to float64.
// Amounts above 2^53 lose precision.
func AmountToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	low := new(big.Int).And(v, maxUint64)
	return float64(low.Uint64())
}

func fieldError(name string, v interface{}) error {
	return fmt.Errorf("%w: campaign field %s has type %T", ledger.ErrParse, name, v)
}
