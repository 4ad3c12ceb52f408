package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Inbound event names.
const (
	EventAuthenticate    = "authenticate"
	EventJoinRoom        = "join_room"
	EventLeaveRoom       = "leave_room"
	EventSendMessage     = "send_message"
	EventTyping          = "typing"
	EventStopTyping      = "stop_typing"
	EventCallOffer       = "call_offer"
	EventCallAnswer      = "call_answer"
	EventICECandidate    = "ice_candidate"
	EventCallEnd         = "call_end"
	EventCanvasDraw      = "canvas_draw"
	EventCanvasClear     = "canvas_clear"
	EventVideoSync       = "video_sync"
	EventWatchPartyStart = "watch_party_start"
)

// Outbound event names. Relayed events reuse their inbound name.
const (
	EventAuthError       = "auth_error"
	EventAuthenticated   = "authenticated"
	EventNewMessage      = "new_message"
	EventUserTyping      = "user_typing"
	EventUserStopTyping  = "user_stop_typing"
	EventNewNotification = "new_notification"
	EventMatchFound      = "match_found"
)

var ErrUnknownEvent = errors.New("unknown event")

// InboundEvent is a raw frame received from a connection.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is the closed set of decoded inbound payloads.
type Inbound interface {
	inbound()
}

type Authenticate struct {
	Token string `json:"token"`
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

type SendMessage struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type Typing struct {
	RoomID string `json:"roomId"`
}

type StopTyping struct {
	RoomID string `json:"roomId"`
}

// Relay covers call signaling and canvas events. The payload is forwarded
// untouched.
type Relay struct {
	Event   string          `json:"-"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type VideoSync struct {
	PartyID     string  `json:"partyId"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

type WatchPartyStart struct {
	RoomID  string `json:"roomId"`
	VideoID string `json:"videoId"`
}

func (Authenticate) inbound()    {}
func (JoinRoom) inbound()        {}
func (LeaveRoom) inbound()       {}
func (SendMessage) inbound()     {}
func (Typing) inbound()          {}
func (StopTyping) inbound()      {}
func (Relay) inbound()           {}
func (VideoSync) inbound()       {}
func (WatchPartyStart) inbound() {}

// Decode turns the raw frame into its typed payload.
func (e InboundEvent) Decode() (Inbound, error) {
	switch e.Event {
	case EventAuthenticate:
		token, err := stringOrField(e.Data, "token")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Event, err)
		}
		return Authenticate{Token: token}, nil
	case EventJoinRoom:
		roomID, err := stringOrField(e.Data, "roomId")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Event, err)
		}
		return JoinRoom{RoomID: roomID}, nil
	case EventLeaveRoom:
		roomID, err := stringOrField(e.Data, "roomId")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Event, err)
		}
		return LeaveRoom{RoomID: roomID}, nil
	case EventSendMessage:
		var p SendMessage
		if err := decodeInto(e, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventTyping:
		var p Typing
		if err := decodeInto(e, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventStopTyping:
		var p StopTyping
		if err := decodeInto(e, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventCallOffer, EventCallAnswer, EventICECandidate, EventCallEnd,
		EventCanvasDraw, EventCanvasClear:
		p := Relay{Event: e.Event}
		if err := decodeInto(e, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventVideoSync:
		var p VideoSync
		if err := decodeInto(e, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventWatchPartyStart:
		var p WatchPartyStart
		if err := decodeInto(e, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}
}

func decodeInto(e InboundEvent, v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}
	return nil
}

// stringOrField accepts either a bare JSON string or an object carrying the
// value under field.
func stringOrField(data json.RawMessage, field string) (string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", errors.New("missing data")
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", err
	}
	raw, ok := obj[field]
	if !ok {
		return "", fmt.Errorf("missing %s", field)
	}
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

// Envelope is an outbound frame.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type AuthErrorPayload struct {
	Message string `json:"message"`
}

type AuthenticatedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type UserStopTypingPayload struct {
	UserID string `json:"userId"`
}

type RelayPayload struct {
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload,omitempty"`
	UserID  string          `json:"userId"`
}

type VideoSyncPayload struct {
	PartyID     string  `json:"partyId"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
	UserID      string  `json:"userId"`
}

type WatchPartyStartPayload struct {
	RoomID  string `json:"roomId"`
	VideoID string `json:"videoId"`
	UserID  string `json:"userId"`
}

type MatchFoundPayload struct {
	RoomID  string     `json:"roomId"`
	Partner PublicUser `json:"partner"`
}
