package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeBalanceUpdated MessageType = "balance_updated"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type BalanceUpdatedPayload struct {
	Credits int `json:"credits"`
}
