package model

import (
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	ev, ok := ParseEnvelope([]byte(`{"type":"price_update","data":{"symbol":"BTCUSDT","price":90000}}`))
	if !ok {
		t.Fatal("valid frame rejected")
	}
	if ev.Type != EventPriceUpdate {
		t.Fatalf("type: got %s want %s", ev.Type, EventPriceUpdate)
	}

	var tick PriceTick
	if err := ev.Decode(&tick); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tick.Symbol != "BTCUSDT" {
		t.Fatalf("symbol: got %s", tick.Symbol)
	}
}

func TestParseEnvelopeRejectsInvalidFrames(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"broken`},
		{"missing type", `{"data":{"symbol":"BTCUSDT"}}`},
		{"empty type", `{"type":"","data":{}}`},
		{"bare string", `"pong"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ParseEnvelope([]byte(tc.payload)); ok {
				t.Fatalf("accepted invalid frame %q", tc.payload)
			}
		})
	}
}

func TestEnvelopeDecodeEmptyPayload(t *testing.T) {
	ev := Envelope{Type: EventBotStatus}
	var status BotStatus
	if err := ev.Decode(&status); err == nil {
		t.Fatal("decoding an empty payload should fail")
	}
}

func TestBotStatusDecode(t *testing.T) {
	ev, ok := ParseEnvelope([]byte(`{"type":"bot_status","data":{"botId":"bot-7","status":"running","updatedAt":1712000000}}`))
	if !ok {
		t.Fatal("valid frame rejected")
	}
	var status BotStatus
	if err := ev.Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.BotID != "bot-7" || status.Status != "running" {
		t.Fatalf("got %+v", status)
	}
}
