package model

import (
	"encoding/json"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// Event type keys the server pushes over the channel.
const (
	EventPriceUpdate      = "price_update"
	EventBalanceUpdate    = "balance_update"
	EventBotStatus        = "bot_status"
	EventPositionUpdate   = "position_update"
	EventConnectionStatus = "connection_status"
)

// Connection statuses published under EventConnectionStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusFailed       = "failed"
)

// Envelope is one inbound message: a type tag and an opaque payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a raw frame into an envelope.
// An envelope without a type tag is not considered valid.
func ParseEnvelope(payload []byte) (Envelope, bool) {
	var ev Envelope
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Envelope{}, false
	}
	if ev.Type == "" {
		return Envelope{}, false
	}
	return ev, true
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return errors.New("empty envelope payload")
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return errors.Wrap(err, "decode envelope payload")
	}
	return nil
}

// PriceTick is the payload of EventPriceUpdate.
type PriceTick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
}

// BalanceChange is the payload of EventBalanceUpdate.
type BalanceChange struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// BotStatus is the payload of EventBotStatus.
type BotStatus struct {
	BotID     string `json:"botId"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updatedAt"`
}

// PositionUpdate is the payload of EventPositionUpdate.
type PositionUpdate struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
}

// ConnectionStatus is the payload dispatched under EventConnectionStatus.
// It is synthesized by the channel itself, never received from the wire.
type ConnectionStatus struct {
	Status     string `json:"status"`
	Attempt    int    `json:"attempt"`
	MaxRetries int    `json:"maxRetries"`
}
