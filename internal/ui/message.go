package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/sonicvision/internal/formatter"
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
	MsgSectionFetched MsgKind = iota
	MsgCollectionFetched
)

type sectionFetched struct {
	section Section
	items   []list.Item
	err     error
}

type collectionFetched struct {
	collection *formatter.Collection
	err        error
}

// sectionFetchedMsg is the constructor for [MsgSectionFetched]
func sectionFetchedMsg(section Section, items []list.Item, err error) Msg {
	return Msg{kind: MsgSectionFetched, data: sectionFetched{section, items, err}}
}

// collectionFetchedMsg is the constructor for [MsgCollectionFetched]
func collectionFetchedMsg(c *formatter.Collection, err error) Msg {
	return Msg{kind: MsgCollectionFetched, data: collectionFetched{c, err}}
}
