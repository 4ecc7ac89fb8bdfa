package model

import "fmt"

// Code is the result code surfaced at the RPC boundary.
type Code int32

const (
	CodeSuccess          Code = 0
	CodeInvalidParameter Code = 1
	CodeInternalError    Code = 2
	CodeFail             Code = 3
)

// ErrKind classifies engine errors.
type ErrKind int

const (
	KindInvalidParameter ErrKind = iota
	KindSymbolNotTradable
	KindOrderNotFound
	KindDuplicateOrderID
	KindRejected
	KindInternalError
)

func (k ErrKind) String() string {
	switch k {
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindSymbolNotTradable:
		return "SymbolNotTradable"
	case KindOrderNotFound:
		return "OrderNotFound"
	case KindDuplicateOrderID:
		return "DuplicateOrderId"
	case KindRejected:
		return "Rejected"
	case KindInternalError:
		return "InternalError"
	}
	return "Unknown"
}

// Code maps the error kind to its RPC result code. Order-level
// rejections (LimitMaker, FOK) are a normal outcome and never reach
// this mapping; they return success with the rejected order state.
func (k ErrKind) Code() Code {
	switch k {
	case KindInvalidParameter, KindDuplicateOrderID:
		return CodeInvalidParameter
	case KindInternalError:
		return CodeInternalError
	default:
		return CodeFail
	}
}

// EngineError is a classified engine failure.
type EngineError struct {
	Kind ErrKind
	Msg  string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// NewError builds a classified engine error.
func NewError(kind ErrKind, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from err, defaulting to
// InternalError for anything the engine did not produce itself.
func KindOf(err error) ErrKind {
	if ee, ok := err.(*EngineError); ok {
		return ee.Kind
	}
	return KindInternalError
}
