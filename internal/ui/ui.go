package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/sonicvision/internal/formatter"
	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/pipeline"
	"github.com/desertthunder/sonicvision/internal/services"
	"github.com/desertthunder/sonicvision/internal/shared"
	"github.com/desertthunder/sonicvision/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	HomeView ViewState = iota
	SectionView
	EntriesView
)

// Section is a top level entry of the home menu.
type Section int

const (
	SectionPlaylists Section = iota
	SectionWatchlists
	SectionTrendingMusic
	SectionTrendingMovies
)

func (s Section) String() string {
	switch s {
	case SectionPlaylists:
		return "Playlists"
	case SectionWatchlists:
		return "Watchlists"
	case SectionTrendingMusic:
		return "Trending Music"
	case SectionTrendingMovies:
		return "Trending Movies"
	default:
		return ""
	}
}

// Backend is the subset of the API client the browser reads from.
type Backend interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	Playlist(ctx context.Context, id int) (*models.Playlist, error)
	Watchlists(ctx context.Context) ([]models.Watchlist, error)
	Watchlist(ctx context.Context, id int) (*models.Watchlist, error)
}

// Options configures the optional data sources of the browser.
type Options struct {
	Music         services.MusicProvider // Enables the trending music section
	Movies        services.MovieProvider // Enables the trending movies section
	ResolveTracks tasks.TrackResolver    // Fills in track titles when opening a playlist
}

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	view       ViewState
	backend    Backend
	opts       Options
	width      int
	height     int
	home       list.Model
	section    Section
	items      list.Model
	entries    list.Model
	collection *formatter.Collection
	spinner    spinner.Model
	loading    bool
	expired    bool
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model reading from backend.
func NewModel(ctx context.Context, backend Backend, opts Options) *Model {
	sections := []list.Item{sectionItem{SectionPlaylists}, sectionItem{SectionWatchlists}}
	if opts.Music != nil {
		sections = append(sections, sectionItem{SectionTrendingMusic})
	}
	if opts.Movies != nil {
		sections = append(sections, sectionItem{SectionTrendingMovies})
	}

	home := list.New(sections, list.NewDefaultDelegate(), 0, 0)
	home.Title = "SonicVision"
	home.SetShowStatusBar(false)
	home.SetFilteringEnabled(false)

	return &Model{
		ctx:     ctx,
		view:    HomeView,
		backend: backend,
		opts:    opts,
		home:    home,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.warn)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Expired reports whether the browser quit because the session ended.
func (m *Model) Expired() bool { return m.expired }

// Err returns the last error shown by the browser.
func (m *Model) Err() error { return m.err }

// State returns the current view.
func (m *Model) State() ViewState { return m.view }

// Init implements [tea.Model]. The home menu is built eagerly so there is nothing to fetch.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgSectionFetched:
			return m.onSection(msg.data.(sectionFetched))
		case MsgCollectionFetched:
			return m.onCollection(msg.data.(collectionFetched))
		}
	}

	return m.updateList(msg)
}

func (m *Model) onSection(res sectionFetched) (tea.Model, tea.Cmd) {
	m.loading = false
	if res.err != nil {
		return m.fail(res.err)
	}
	m.err = nil
	m.section = res.section
	m.items = m.newList(res.section.String(), res.items)
	m.view = SectionView
	return m, nil
}

func (m *Model) onCollection(res collectionFetched) (tea.Model, tea.Cmd) {
	m.loading = false
	if res.err != nil {
		return m.fail(res.err)
	}
	m.err = nil
	m.collection = res.collection
	items := make([]list.Item, len(res.collection.Entries))
	for i, e := range res.collection.Entries {
		items[i] = entryItem{entry: e}
	}
	m.entries = m.newList(res.collection.Name, items)
	m.view = EntriesView
	return m, nil
}

// fail records err. An expired session ends the program.
func (m *Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	if pipeline.IsAuthExpired(err) {
		m.expired = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering() {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case m.loading:
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.back()
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.reload()
	case key.Matches(msg, m.keys.enter):
		return m, m.open()
	}
	return m.updateList(msg)
}

func (m *Model) back() {
	m.err = nil
	switch m.view {
	case EntriesView:
		m.view = SectionView
		m.collection = nil
	case SectionView:
		m.view = HomeView
	}
}

// open descends into the selected row. Trending rows are leaves.
func (m *Model) open() tea.Cmd {
	switch m.view {
	case HomeView:
		if it, ok := m.home.SelectedItem().(sectionItem); ok {
			return m.load(m.fetchSection(it.section))
		}
	case SectionView:
		switch it := m.items.SelectedItem().(type) {
		case playlistItem:
			return m.load(m.fetchPlaylist(it.playlist.ID))
		case watchlistItem:
			return m.load(m.fetchWatchlist(it.watchlist.ID))
		}
	}
	return nil
}

func (m *Model) reload() tea.Cmd {
	switch m.view {
	case SectionView:
		return m.load(m.fetchSection(m.section))
	case EntriesView:
		if m.collection == nil {
			return nil
		}
		if m.collection.Kind == formatter.KindPlaylist {
			return m.load(m.fetchPlaylist(m.collection.ID))
		}
		return m.load(m.fetchWatchlist(m.collection.ID))
	}
	return nil
}

func (m *Model) load(fetch tea.Cmd) tea.Cmd {
	m.loading = true
	return tea.Batch(m.spinner.Tick, fetch)
}

func (m *Model) filtering() bool {
	switch m.view {
	case SectionView:
		return m.items.FilterState() == list.Filtering
	case EntriesView:
		return m.entries.FilterState() == list.Filtering
	}
	return false
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HomeView:
		m.home, cmd = m.home.Update(msg)
	case SectionView:
		m.items, cmd = m.items.Update(msg)
	case EntriesView:
		m.entries, cmd = m.entries.Update(msg)
	}
	return m, cmd
}

func (m *Model) newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	if m.width > 0 {
		l.SetSize(m.width-4, m.height-8)
	}
	return l
}

func (m *Model) resize() {
	w, h := m.width-4, m.height-8
	m.home.SetSize(w, h)
	if m.view >= SectionView {
		m.items.SetSize(w, h)
	}
	if m.view == EntriesView {
		m.entries.SetSize(w, h)
	}
}

func (m *Model) fetchSection(s Section) tea.Cmd {
	return func() tea.Msg {
		var items []list.Item
		switch s {
		case SectionPlaylists:
			pls, err := m.backend.Playlists(m.ctx)
			if err != nil {
				return sectionFetchedMsg(s, nil, err)
			}
			for _, pl := range pls {
				items = append(items, playlistItem{playlist: pl})
			}
		case SectionWatchlists:
			wls, err := m.backend.Watchlists(m.ctx)
			if err != nil {
				return sectionFetchedMsg(s, nil, err)
			}
			for _, wl := range wls {
				items = append(items, watchlistItem{watchlist: wl})
			}
		case SectionTrendingMusic:
			tracks, err := m.opts.Music.TrendingMusic(m.ctx)
			if err != nil {
				return sectionFetchedMsg(s, nil, err)
			}
			for _, t := range tracks {
				items = append(items, musicItem{music: t})
			}
		case SectionTrendingMovies:
			movies, err := m.opts.Movies.TrendingMovies(m.ctx)
			if err != nil {
				return sectionFetchedMsg(s, nil, err)
			}
			for _, mv := range movies {
				items = append(items, movieItem{movie: mv})
			}
		}
		return sectionFetchedMsg(s, items, nil)
	}
}

func (m *Model) fetchPlaylist(id int) tea.Cmd {
	return func() tea.Msg {
		pl, err := m.backend.Playlist(m.ctx, id)
		if err != nil {
			return collectionFetchedMsg(nil, err)
		}
		var resolved map[string]models.Music
		if m.opts.ResolveTracks != nil {
			ids := make([]string, len(pl.Tracks))
			for i, t := range pl.Tracks {
				ids[i] = t.TrackID
			}
			resolved = m.opts.ResolveTracks(m.ctx, ids)
		}
		return collectionFetchedMsg(formatter.FromPlaylist(pl, resolved), nil)
	}
}

func (m *Model) fetchWatchlist(id int) tea.Cmd {
	return func() tea.Msg {
		wl, err := m.backend.Watchlist(m.ctx, id)
		if err != nil {
			return collectionFetchedMsg(nil, err)
		}
		return collectionFetchedMsg(formatter.FromWatchlist(wl), nil)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.expired {
		return styles.err.Render("Session expired. Run `sv auth login` to sign in again.") + "\n"
	}

	var body string
	switch m.view {
	case HomeView:
		body = m.home.View()
	case SectionView:
		body = m.items.View()
	case EntriesView:
		body = m.renderEntries()
	}

	status := ""
	switch {
	case m.loading:
		status = m.spinner.View() + " Loading..."
	case m.err != nil:
		status = styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}

	helpView := styles.help.Render(m.help.ShortHelpView(m.helpKeys()))
	if status != "" {
		return fmt.Sprintf("%s\n%s\n\n%s", body, status, helpView)
	}
	return fmt.Sprintf("%s\n\n%s", body, helpView)
}

func (m *Model) renderEntries() string {
	if m.collection == nil {
		return m.entries.View()
	}
	c := m.collection
	header := fmt.Sprintf("%s • %d entries", shared.VisibilityString(c.Public), len(c.Entries))
	if c.Owner != "" {
		header = fmt.Sprintf("by %s • %s", c.Owner, header)
	}
	return fmt.Sprintf("%s\n%s", styles.box.Render(header), m.entries.View())
}

func (m *Model) helpKeys() []key.Binding {
	switch m.view {
	case HomeView:
		return []key.Binding{m.keys.enter, m.keys.quit}
	case SectionView:
		return []key.Binding{m.keys.enter, m.keys.back, m.keys.refresh, m.keys.quit}
	default:
		return []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}
	}
}
