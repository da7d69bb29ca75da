package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/dreamware/matrixd/internal/matrix"
	"github.com/dreamware/matrixd/internal/partition"
)

// Version is the protocol revision implemented here. It names the strategy
// code table below; codes are never renumbered, new strategies get new codes.
const Version = 1

// RequestLen is the fixed size of an encoded request in bytes.
const RequestLen = 4 + 4 + 1

var order = binary.BigEndian

var strategyCodes = map[int32]partition.Strategy{
	0: partition.CyclicElement,
	1: partition.CyclicRow,
	2: partition.Block,
}

// StrategyFromCode resolves a wire code.
func StrategyFromCode(code int32) (partition.Strategy, error) {
	if s, ok := strategyCodes[code]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("strategy code %d: %w", code, ErrUnsupportedStrategy)
}

// StrategyCode returns the wire code of s.
func StrategyCode(s partition.Strategy) (int32, error) {
	for code, known := range strategyCodes {
		if known == s {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%s has no wire code: %w", s, ErrUnsupportedStrategy)
}

// Request asks for the product of two fresh size×size matrices.
type Request struct {
	Size       int
	Strategy   partition.Strategy
	WantMatrix bool
}

// Response carries the status code and, when the request asked for it and
// the computation succeeded, the result matrix.
type Response struct {
	Matrix *matrix.Matrix
	Code   Code
}

// WriteRequest encodes req: int32 size, int32 strategy code, one byte flag.
func WriteRequest(w io.Writer, req Request) error {
	code, err := StrategyCode(req.Strategy)
	if err != nil {
		return err
	}
	if req.Size < 0 || req.Size > math.MaxInt32 {
		return fmt.Errorf("size %d: %w", req.Size, ErrProtocol)
	}
	var buf [RequestLen]byte
	order.PutUint32(buf[0:4], uint32(int32(req.Size)))
	order.PutUint32(buf[4:8], uint32(code))
	if req.WantMatrix {
		buf[8] = 1
	}
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write request: %v: %w", err, ErrTransport)
	}
	return nil
}

// ReadRequest decodes one request.
//
// A short read (the peer closed before sending all nine bytes) and a
// negative size are ErrProtocol; an unknown strategy code is
// ErrUnsupportedStrategy; any other read failure is ErrTransport. Any
// non-zero flag byte means true.
func ReadRequest(r io.Reader) (Request, error) {
	var buf [RequestLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Request{}, fmt.Errorf("read request: %v: %w", err, ErrProtocol)
		}
		return Request{}, fmt.Errorf("read request: %v: %w", err, ErrTransport)
	}

	size := int32(order.Uint32(buf[0:4]))
	if size < 0 {
		return Request{}, fmt.Errorf("negative size %d: %w", size, ErrProtocol)
	}
	strategy, err := StrategyFromCode(int32(order.Uint32(buf[4:8])))
	if err != nil {
		return Request{}, err
	}
	return Request{
		Size:       int(size),
		Strategy:   strategy,
		WantMatrix: buf[8] != 0,
	}, nil
}

// WriteResponse encodes resp: int32 code, then the matrix row by row as
// IEEE-754 float64 values, only when the code is CodeOK and a matrix is set.
func WriteResponse(w io.Writer, resp Response) error {
	var head [4]byte
	order.PutUint32(head[:], uint32(int32(resp.Code)))
	if _, err := w.Write(head[:]); err != nil {
		return fmt.Errorf("write response code: %v: %w", err, ErrTransport)
	}
	if resp.Code != CodeOK || resp.Matrix == nil {
		return nil
	}

	n := resp.Matrix.Size()
	row := make([]byte, 8*n)
	for i := 0; i < n; i++ {
		for j, v := range resp.Matrix.Row(i) {
			order.PutUint64(row[8*j:], math.Float64bits(v))
		}
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("write response row %d: %v: %w", i, err, ErrTransport)
		}
	}
	return nil
}

// ReadResponse decodes the reply to req. The matrix payload is expected only
// when req.WantMatrix is set and the code is CodeOK; its size is req.Size.
func ReadResponse(r io.Reader, req Request) (Response, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Response{}, fmt.Errorf("read response code: %v: %w", err, ErrTransport)
	}
	resp := Response{Code: Code(int32(order.Uint32(head[:])))}
	if resp.Code != CodeOK || !req.WantMatrix {
		return resp, nil
	}

	m, err := matrix.New(req.Size)
	if err != nil {
		return Response{}, fmt.Errorf("read response matrix: %v: %w", err, ErrProtocol)
	}
	row := make([]byte, 8*req.Size)
	for i := 0; i < req.Size; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return Response{}, fmt.Errorf("read response row %d: %v: %w", i, err, ErrTransport)
		}
		dst := m.Row(i)
		for j := range dst {
			dst[j] = math.Float64frombits(order.Uint64(row[8*j:]))
		}
	}
	resp.Matrix = m
	return resp, nil
}
