package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure a request can end in. Detection sites
// wrap them with context (fmt.Errorf("...: %w", ErrX)); CodeFor maps a
// wrapped chain back to its wire code.
var (
	// ErrTransport covers connection failures: dial, read, write, close.
	ErrTransport = errors.New("protocol: transport failure")

	// ErrProtocol is a malformed or truncated request.
	ErrProtocol = errors.New("protocol: malformed request")

	// ErrUnsupportedStrategy is a strategy code outside the code table.
	ErrUnsupportedStrategy = errors.New("protocol: unsupported strategy")

	// ErrComputeFailure is a worker that terminated abnormally, or a result
	// that failed verification.
	ErrComputeFailure = errors.New("protocol: compute failure")

	// ErrSizeLimit is a request larger than the server accepts.
	ErrSizeLimit = errors.New("protocol: size above server limit")
)

// Code is the status sent at the head of every response.
// Zero is success; every failure is negative.
type Code int32

const (
	CodeOK                  Code = 0
	CodeTransport           Code = -1
	CodeProtocol            Code = -2
	CodeUnsupportedStrategy Code = -3
	CodeComputeFailure      Code = -4
	CodeSizeLimit           Code = -5
)

var codeErrors = map[Code]error{
	CodeTransport:           ErrTransport,
	CodeProtocol:            ErrProtocol,
	CodeUnsupportedStrategy: ErrUnsupportedStrategy,
	CodeComputeFailure:      ErrComputeFailure,
	CodeSizeLimit:           ErrSizeLimit,
}

// CodeFor maps an error to its wire code. nil is CodeOK; errors outside the
// taxonomy are reported as compute failures, the most generic server-side
// failure.
func CodeFor(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, code := range []Code{CodeProtocol, CodeUnsupportedStrategy, CodeSizeLimit, CodeComputeFailure, CodeTransport} {
		if errors.Is(err, codeErrors[code]) {
			return code
		}
	}
	return CodeComputeFailure
}

// Err returns the sentinel for a failure code, or nil for CodeOK.
// Unknown negative codes map to a generic error carrying the number.
func (c Code) Err() error {
	if c == CodeOK {
		return nil
	}
	if err, ok := codeErrors[c]; ok {
		return err
	}
	return fmt.Errorf("protocol: unknown error code %d", int32(c))
}

// OK reports whether c is CodeOK.
func (c Code) OK() bool { return c == CodeOK }

func (c Code) String() string {
	if c == CodeOK {
		return "ok"
	}
	return fmt.Sprintf("%d (%v)", int32(c), c.Err())
}
