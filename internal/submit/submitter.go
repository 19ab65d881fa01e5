package submit

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"afunding/internal/ledger"
	"afunding/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
)

// SuccessMessage is the status shown after a createCampaign call was accepted
const SuccessMessage = "Campaign created successfully!"

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Transactor is the write side of a bound contract
type Transactor interface {
	Transact(ctx context.Context, from common.Address, method string, args ...interface{}) (common.Hash, error)
}

// Submitter forwards campaign creation forms to the registry.
//
// Calls are sent from a fixed, node-managed sender account. Nothing is
// signed locally and the caller is not authenticated.
type Submitter struct {
	contract Transactor
	sender   common.Address

	mu     sync.Mutex
	status *string
}

// NewSubmitter creates a Submitter sending as sender
func NewSubmitter(contract Transactor, sender common.Address) *Submitter {
	return &Submitter{
		contract: contract,
		sender:   sender,
	}
}

// Submit sends createCampaign(title, description, goal) and records the
// outcome as the current status. A goal that is not a decimal uint256 is
// sent as zero.
func (s *Submitter) Submit(ctx context.Context, title, description, goal string) string {
	amount := ParseGoal(goal)

	slog.Info("Submitting campaign",
		"sender", s.sender.Hex(),
		"title", title,
		"goal", amount.String(),
	)

	var status string
	hash, err := s.contract.Transact(ctx, s.sender, ledger.MethodCreateCampaign, title, description, amount)
	if err != nil {
		slog.Error("Campaign submission failed", "error", err)
		metrics.Submissions.WithLabelValues(metrics.ResultFailed).Inc()
		status = fmt.Sprintf("Error: %v", err)
	} else {
		slog.Info("Campaign submitted", "tx_hash", hash.Hex())
		metrics.Submissions.WithLabelValues(metrics.ResultOK).Inc()
		status = SuccessMessage
	}

	s.mu.Lock()
	s.status = &status
	s.mu.Unlock()

	return status
}

// Status returns the message of the last submission, or nil if there has
// been none
func (s *Submitter) Status() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return nil
	}
	msg := *s.status
	return &msg
}

// ParseGoal parses a decimal uint256. Anything else, including an empty
// string, a sign, or an out of range value, yields zero.
func ParseGoal(s string) *big.Int {
	for _, r := range s {
		if r < '0' || r > '9' {
			return new(big.Int)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Cmp(maxUint256) > 0 {
		return new(big.Int)
	}
	return v
}
