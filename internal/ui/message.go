package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podplay/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgModelLoaded MsgKind = iota
	MsgPlayerEvent
	MsgSaved
)

type modelLoaded struct {
	model *models.Model
	err   error
}

// modelLoadedMsg is the constructor for [MsgModelLoaded]
func modelLoadedMsg(model *models.Model, err error) Msg {
	return Msg{kind: MsgModelLoaded, data: modelLoaded{model, err}}
}

// playerEventMsg is the constructor for [MsgPlayerEvent]
func playerEventMsg(event models.Event) Msg {
	return Msg{kind: MsgPlayerEvent, data: event}
}

// savedMsg is the constructor for [MsgSaved]
func savedMsg(err error) Msg {
	return Msg{kind: MsgSaved, data: err}
}
