// Package types holds the JSON wire protocol spoken over the websocket.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> Server message types.
const (
	TypeJoin      = "join"
	TypeAddAI     = "add_ai"
	TypeRemoveAI  = "remove_ai"
	TypeStart     = "start"
	TypeSubmitBid = "submit_bid"
	TypeLeave     = "leave"
)

var ErrUnknownType = errors.New("unknown message type")
var ErrBadPayload = errors.New("bad payload")

// ClientMessage is the raw frame a client sends. Which fields matter depends on Type.
type ClientMessage struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name,omitempty"`
	Level       int    `json:"level,omitempty"`
	SeatID      *int   `json:"seat_id,omitempty"`
	Value       int    `json:"value,omitempty"`
}

// Command is a decoded, validated client request.
type Command interface{ isCommand() }

type JoinCmd struct{ DisplayName string }

type AddAICmd struct{ Level int }

type RemoveAICmd struct{ SeatID int }

type StartCmd struct{}

// SubmitBidCmd always bids for the sender's own seat.
type SubmitBidCmd struct{ Value int }

type LeaveCmd struct{}

func (JoinCmd) isCommand()      {}
func (AddAICmd) isCommand()     {}
func (RemoveAICmd) isCommand()  {}
func (StartCmd) isCommand()     {}
func (SubmitBidCmd) isCommand() {}
func (LeaveCmd) isCommand()     {}

func DecodeCommand(data []byte) (Command, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return ToCommand(m)
}

func ToCommand(m ClientMessage) (Command, error) {
	switch m.Type {
	case TypeJoin:
		return JoinCmd{DisplayName: m.DisplayName}, nil
	case TypeAddAI:
		if m.Level < 1 || m.Level > 10 {
			return nil, fmt.Errorf("%w: level %d not in 1..10", ErrBadPayload, m.Level)
		}
		return AddAICmd{Level: m.Level}, nil
	case TypeRemoveAI:
		if m.SeatID == nil {
			return nil, fmt.Errorf("%w: seat_id required", ErrBadPayload)
		}
		return RemoveAICmd{SeatID: *m.SeatID}, nil
	case TypeStart:
		return StartCmd{}, nil
	case TypeSubmitBid:
		if m.Value <= 0 {
			return nil, fmt.Errorf("%w: value must be positive", ErrBadPayload)
		}
		return SubmitBidCmd{Value: m.Value}, nil
	case TypeLeave:
		return LeaveCmd{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}
