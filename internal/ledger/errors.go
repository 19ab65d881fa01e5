package ledger

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrTransport reports an endpoint that is malformed or cannot be reached
	ErrTransport = errors.New("transport error")

	// ErrContractLoad reports a malformed contract address or interface schema
	ErrContractLoad = errors.New("contract load error")

	// ErrParse reports numeric or address input that could not be decoded
	ErrParse = errors.New("parse error")

	// ErrRPCCall reports a failed remote call
	ErrRPCCall = errors.New("rpc call error")
)

// callError wraps a failed remote call. Network level failures are tagged
// with ErrTransport as well so callers can tell an unreachable endpoint apart.
func callError(method string, err error) error {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w: %s: %w", ErrRPCCall, ErrTransport, method, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrRPCCall, method, err)
}
