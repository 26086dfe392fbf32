package store

import (
	"encoding/json"

	"github.com/desertthunder/podplay/internal/models"
)

// MessageType names a bus message.
type MessageType string

const (
	MessageGet        MessageType = "get"
	MessageSet        MessageType = "set"
	MessageDeleteFeed MessageType = "deleteFeed"
	MessageDestroy    MessageType = "destroy"
)

// Message is the wire form of every request and response crossing the bus.
//
//	{type:"get", queryId}              -> {type:"get", queryId, model}
//	{type:"set", name, data}           (no response)
//	{type:"deleteFeed", data: feed}    (no response)
//	{type:"destroy"}                   (no response)
type Message struct {
	Type    MessageType     `json:"type"`
	QueryID string          `json:"queryId,omitempty"`
	Name    models.Table    `json:"name,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Model   *models.Model   `json:"model,omitempty"`
}
