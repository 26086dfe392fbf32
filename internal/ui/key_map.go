package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	play     key.Binding
	toggle   key.Binding
	stop     key.Binding
	back     key.Binding
	forward  key.Binding
	volUp    key.Binding
	volDown  key.Binding
	mute     key.Binding
	slower   key.Binding
	faster   key.Binding
	quit     key.Binding
	showHelp key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		toggle:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause/resume")),
		stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		back:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-15s")),
		forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+15s")),
		volUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		mute:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		slower:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "slower")),
		faster:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "faster")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		showHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.play, k.toggle, k.stop, k.showHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.play, k.toggle, k.stop},
		{k.back, k.forward},
		{k.volUp, k.volDown, k.mute},
		{k.slower, k.faster, k.quit},
	}
}
