package model

import (
	"errors"
	"fmt"
)

// CommandTag identifies a command in the replicated log. Tags are part
// of the wire format and must never be renumbered.
type CommandTag uint8

const (
	TagCreateSymbol CommandTag = 1
	TagRemoveSymbol CommandTag = 2
	TagPauseSymbol  CommandTag = 3
	TagResumeSymbol CommandTag = 4
	TagPlaceOrder   CommandTag = 5
	TagCancelOrder  CommandTag = 6
	TagUpdateSymbol CommandTag = 7
)

func (t CommandTag) String() string {
	switch t {
	case TagCreateSymbol:
		return "CreateSymbol"
	case TagRemoveSymbol:
		return "RemoveSymbol"
	case TagPauseSymbol:
		return "PauseSymbol"
	case TagResumeSymbol:
		return "ResumeSymbol"
	case TagPlaceOrder:
		return "PlaceOrder"
	case TagCancelOrder:
		return "CancelOrder"
	case TagUpdateSymbol:
		return "UpdateSymbol"
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

var ErrUnknownCommandTag = errors.New("unknown command tag")

// Command is one state-changing request. ApplyTime is stamped by the
// leader at proposal time; replicas never read their own clocks while
// applying.
type Command struct {
	Tag       CommandTag
	ApplyTime int64

	// Payload, populated per tag.
	Symbol     *Symbol // CreateSymbol, UpdateSymbol
	SymbolName string  // RemoveSymbol, PauseSymbol, ResumeSymbol, CancelOrder
	Order      *Order  // PlaceOrder
	OrderID    string  // CancelOrder
}

// EncodeCommand serializes a command as a log entry:
// {apply_time u64, tag u8, payload}.
func EncodeCommand(c *Command) ([]byte, error) {
	w := NewWriter()
	w.U64(uint64(c.ApplyTime))
	w.U8(uint8(c.Tag))
	switch c.Tag {
	case TagCreateSymbol, TagUpdateSymbol:
		if c.Symbol == nil {
			return nil, fmt.Errorf("%s: missing symbol", c.Tag)
		}
		EncodeSymbol(w, c.Symbol)
	case TagRemoveSymbol, TagPauseSymbol, TagResumeSymbol:
		w.Str(c.SymbolName)
	case TagPlaceOrder:
		if c.Order == nil {
			return nil, fmt.Errorf("%s: missing order", c.Tag)
		}
		EncodeOrder(w, c.Order)
	case TagCancelOrder:
		w.Str(c.SymbolName)
		w.Str(c.OrderID)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommandTag, uint8(c.Tag))
	}
	return w.Bytes(), nil
}

// DecodeCommand parses a log entry. Unknown tags are rejected so that
// replicas running older code fail loudly instead of diverging.
func DecodeCommand(data []byte) (*Command, error) {
	r := NewReader(data)
	c := &Command{
		ApplyTime: int64(r.U64()),
		Tag:       CommandTag(r.U8()),
	}
	switch c.Tag {
	case TagCreateSymbol, TagUpdateSymbol:
		c.Symbol = DecodeSymbol(r)
	case TagRemoveSymbol, TagPauseSymbol, TagResumeSymbol:
		c.SymbolName = r.Str()
	case TagPlaceOrder:
		c.Order = DecodeOrder(r)
	case TagCancelOrder:
		c.SymbolName = r.Str()
		c.OrderID = r.Str()
	default:
		if r.Err() != nil {
			return nil, r.Err()
		}
		return nil, fmt.Errorf("%w: %d", ErrUnknownCommandTag, uint8(c.Tag))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return c, nil
}
