// Package protocol implements the matrixd wire format and its error
// taxonomy.
//
// One connection carries exactly one exchange. All integers are big-endian.
//
//	client → server   int32 size | int32 strategy code | uint8 wantMatrix
//	server → client   int32 code [ | size*size float64, row-major ]
//
// The matrix follows the code only when the request set wantMatrix and the
// code is CodeOK. Strategy codes (Version 1):
//
//	0  cyclic-element
//	1  cyclic-row
//	2  block
//
// The code table is explicit and independent of partition.Strategy's
// declaration order, so reordering the enum cannot silently change the wire.
//
// Error codes:
//
//	 0  CodeOK
//	-1  CodeTransport            connection failed (reported by the client)
//	-2  CodeProtocol             malformed or truncated request
//	-3  CodeUnsupportedStrategy  unknown strategy code
//	-4  CodeComputeFailure       a worker failed or verification failed
//	-5  CodeSizeLimit            size above the server's limit
package protocol
