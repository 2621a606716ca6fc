package ws

import (
	"encoding/json"
	"fmt"
)

// Upstream message types for internal routing
type (
	joinGroupRequest struct {
		group string
		ackID *uint64
	}
	leaveGroupRequest struct {
		group string
		ackID *uint64
	}
	pingRequest struct{}
)

type upstreamMessage struct {
	Type  string  `json:"type"`
	Group string  `json:"group"`
	AckID *uint64 `json:"ackId"`
}

// parseUpstreamMessage parses a JSON control message from a client.
func parseUpstreamMessage(data []byte) (any, error) {
	var msg upstreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal upstream message: %w", err)
	}

	switch msg.Type {
	case "joinGroup":
		return &joinGroupRequest{group: msg.Group, ackID: msg.AckID}, nil
	case "leaveGroup":
		return &leaveGroupRequest{group: msg.Group, ackID: msg.AckID}, nil
	case "ping":
		return &pingRequest{}, nil
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

// buildConnectedMessage creates the system message sent on connect.
func buildConnectedMessage(connectionID string, encoding Encoding) []byte {
	msg := map[string]interface{}{
		"type":         "system",
		"event":        "connected",
		"connectionId": connectionID,
		"encoding":     encoding,
	}
	data, _ := json.Marshal(msg)
	return data
}

// buildAckMessage creates an acknowledgment message.
func buildAckMessage(ackID uint64, success bool) []byte {
	msg := map[string]interface{}{
		"type":    "ack",
		"ackId":   ackID,
		"success": success,
	}
	data, _ := json.Marshal(msg)
	return data
}

// buildDataMessage wraps a raw JSON payload for text-frame clients.
func buildDataMessage(group string, rawJSON json.RawMessage) []byte {
	msg := map[string]interface{}{
		"type":     "message",
		"from":     "group",
		"group":    group,
		"dataType": "json",
		"data":     rawJSON,
	}
	data, _ := json.Marshal(msg)
	return data
}

// buildPongMessage creates a pong response to a client ping.
func buildPongMessage() []byte {
	data, _ := json.Marshal(map[string]interface{}{"type": "pong"})
	return data
}
