// Package ui implements an interactive terminal browser using bubbletea's Elm architecture.
//
// The TUI is a thin list viewer over the API clients and providers:
//  1. [HomeView] : Pick a section (playlists, watchlists, trending music, trending movies)
//  2. [SectionView] : Browse the items of a section
//  3. [EntriesView] : Read the tracks or movies of an opened collection
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving fetch results via the [Msg] union type.
// When a request fails with an expired session the browser quits and [Model.Expired] reports it so the
// caller can print the login hint.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help from charmbracelet/bubbles/help.
package ui
