package models

import "encoding/json"

// MessageKind is the normalized classification of an inbound feed message.
// The feed itself overloads a single "type" field both as the message
// discriminator and, for subscription confirmations, as the literal value
// "type", so raw values are mapped to this enum exactly once.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindTrade
	KindPing
	KindSubscriptionAck
)

const (
	rawTypeTrade = "trade"
	rawTypePing  = "ping"
	// The feed reports subscription confirmations with the literal
	// discriminator value "type".
	rawTypeSubscriptionAck = "type"
)

// KindFromType maps the feed's raw discriminator value to a MessageKind.
func KindFromType(raw string) MessageKind {
	switch raw {
	case rawTypeTrade:
		return KindTrade
	case rawTypePing:
		return KindPing
	case rawTypeSubscriptionAck:
		return KindSubscriptionAck
	default:
		return KindUnknown
	}
}

func (k MessageKind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindPing:
		return "ping"
	case KindSubscriptionAck:
		return "subscription_ack"
	default:
		return "unknown"
	}
}

// FeedTrade is a single trade entry as emitted by the feed.
type FeedTrade struct {
	Symbol    string  `json:"s"`
	Price     float64 `json:"p"`
	Timestamp int64   `json:"t"`
	Volume    float64 `json:"v"`
	Exchange  string  `json:"x,omitempty"`
}

// FeedEnvelope is the top-level JSON envelope received from the feed.
// Data is only populated for trade messages.
type FeedEnvelope struct {
	Type string          `json:"type"`
	Data []FeedTrade     `json:"data,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

// SubscribeRequest is sent to the feed once per watched symbol on connect.
type SubscribeRequest struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}
