package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/podplay/internal/formatter"
	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/player"
)

const (
	seekStep   = 15.0
	volumeStep = 0.1
	rateStep   = 0.25
	minRate    = 0.5
	maxRate    = 3.0
)

// DefaultLoadTimeout bounds the initial model query.
const DefaultLoadTimeout = 5 * time.Second

// Player is the subset of [player.Controller] the TUI drives.
type Player interface {
	Play(req models.PlaybackRequest) error
	Pause()
	Resume()
	Stop()
	Seek(position float64)
	SetRate(rate float64)
	SetVolume(volume float64)
	SetMute(muted bool)
	Status() player.Status
}

// Store is the subset of the model store the TUI reads and writes.
type Store interface {
	Query(ctx context.Context) (*models.Model, error)
	Set(table models.Table, data any) error
}

// preferences is the setting document the TUI owns.
type preferences struct {
	Rate   float64 `json:"rate"`
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

func defaultPreferences() preferences {
	return preferences{Rate: 1, Volume: 1}
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	player   Player
	store    Store
	sink     *Sink
	timeout  time.Duration
	width    int
	height   int
	list     list.Model
	episodes []episodeItem
	current  int
	state    models.State
	progress models.ProgressSample
	prefs    preferences
	status   string
	err      error
	loaded   bool
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model. The sink must be the one the controller emits to.
func NewModel(ctx context.Context, p Player, store Store, sink *Sink) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Episodes"
	l.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		player:  p,
		store:   store,
		sink:    sink,
		timeout: DefaultLoadTimeout,
		list:    l,
		current: -1,
		prefs:   defaultPreferences(),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads the stored model and starts listening for controller events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadModel(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgModelLoaded:
			return m.handleModelLoaded(msg.data.(modelLoaded))
		case MsgPlayerEvent:
			cmd := m.handleEvent(msg.data.(models.Event))
			return m, tea.Batch(cmd, m.waitForEvent())
		case MsgSaved:
			if err, _ := msg.data.(error); err != nil {
				m.status = fmt.Sprintf("save failed: %v", err)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleModelLoaded(msg modelLoaded) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}

	m.loaded = true
	if len(msg.model.Setting) > 0 {
		prefs := defaultPreferences()
		if err := json.Unmarshal(msg.model.Setting, &prefs); err == nil {
			m.prefs = prefs
		}
	}

	m.episodes = episodes(msg.model)
	cmd := m.list.SetItems(listItems(m.episodes))
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Sequence(m.saveProgress(), tea.Quit)
	case key.Matches(msg, m.keys.showHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.play):
		return m, m.playIndex(m.list.Index())
	case key.Matches(msg, m.keys.toggle):
		switch m.state {
		case models.Playing:
			m.player.Pause()
			m.refresh()
			return m, m.saveProgress()
		case models.Paused:
			m.player.Resume()
		}
	case key.Matches(msg, m.keys.stop):
		save := m.saveProgress()
		m.player.Stop()
		m.current = -1
		m.refresh()
		return m, save
	case key.Matches(msg, m.keys.back):
		m.player.Seek(max(m.progress.Progress-seekStep, 0))
	case key.Matches(msg, m.keys.forward):
		m.player.Seek(m.progress.Progress + seekStep)
	case key.Matches(msg, m.keys.volUp):
		return m, m.setVolume(m.prefs.Volume + volumeStep)
	case key.Matches(msg, m.keys.volDown):
		return m, m.setVolume(m.prefs.Volume - volumeStep)
	case key.Matches(msg, m.keys.mute):
		m.prefs.Muted = !m.prefs.Muted
		m.player.SetMute(m.prefs.Muted)
		return m, m.savePreferences()
	case key.Matches(msg, m.keys.slower):
		return m, m.setRate(m.prefs.Rate - rateStep)
	case key.Matches(msg, m.keys.faster):
		return m, m.setRate(m.prefs.Rate + rateStep)
	default:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	m.refresh()
	return m, nil
}

// handleEvent applies one controller event and returns any follow-up command.
func (m *Model) handleEvent(event models.Event) tea.Cmd {
	switch event.Kind {
	case models.SoundLoaded:
		m.status = ""
	case models.UpdateProgress:
		m.progress = event.Sample
		if ep := m.currentEpisode(); ep != nil {
			ep.item.Progress = event.Sample.Progress
			if event.Sample.Duration > 0 {
				ep.item.Duration = event.Sample.Duration
			}
		}
	case models.PlayError:
		m.status = fmt.Sprintf("failed to play %s", event.URL)
		if m.isCurrent(event.URL) {
			m.current = -1
		}
	case models.PlayEnd:
		i := m.indexOf(event.URL)
		if i < 0 {
			break
		}
		ep := &m.episodes[i]
		ep.item.Played = true
		ep.item.Progress = 0
		m.list.SetItem(i, *ep)
		save := m.saveItem(ep.item)

		// An end queued for an earlier stream must not replace the episode playing now.
		if i != m.current {
			m.refresh()
			return save
		}

		m.current = -1
		m.refresh()
		if next := i + 1; next < len(m.episodes) {
			m.list.Select(next)
			return tea.Batch(save, m.playIndex(next))
		}
		return save
	}

	m.refresh()
	return nil
}

func (m *Model) indexOf(url string) int {
	for i, ep := range m.episodes {
		if ep.item.URL == url {
			return i
		}
	}
	return -1
}

func (m *Model) isCurrent(url string) bool {
	ep := m.currentEpisode()
	return ep != nil && ep.item.URL == url
}

func (m *Model) currentEpisode() *episodeItem {
	if m.current < 0 || m.current >= len(m.episodes) {
		return nil
	}
	return &m.episodes[m.current]
}

// playIndex starts the episode at i, resuming from its stored progress unless it was played.
func (m *Model) playIndex(i int) tea.Cmd {
	if i < 0 || i >= len(m.episodes) {
		return nil
	}

	save := m.saveProgress()
	item := m.episodes[i].item
	seek := -1.0
	if !item.Played && item.Progress > 0 {
		seek = item.Progress
	}

	req := models.PlaybackRequest{
		URL:    item.URL,
		Seek:   models.Float(seek),
		Rate:   models.Float(m.prefs.Rate),
		Volume: models.Float(m.prefs.Volume),
		Muted:  models.Bool(m.prefs.Muted),
	}
	if err := m.player.Play(req); err != nil {
		m.status = err.Error()
		return save
	}

	m.current = i
	m.progress = models.ProgressSample{Progress: max(seek, 0), Duration: item.Duration}
	m.status = ""
	m.refresh()
	return save
}

func (m *Model) setVolume(v float64) tea.Cmd {
	m.prefs.Volume = min(max(v, 0), 1)
	m.player.SetVolume(m.prefs.Volume)
	return m.savePreferences()
}

func (m *Model) setRate(r float64) tea.Cmd {
	m.prefs.Rate = min(max(r, minRate), maxRate)
	m.player.SetRate(m.prefs.Rate)
	return m.savePreferences()
}

func (m *Model) refresh() {
	st := m.player.Status()
	m.state = st.State
	if st.State != models.Idle {
		m.progress = models.ProgressSample{Progress: st.Progress, Duration: st.Duration}
	}
}

// saveProgress persists the current episode's position.
func (m *Model) saveProgress() tea.Cmd {
	ep := m.currentEpisode()
	if ep == nil || ep.item.Progress <= 0 {
		return nil
	}
	m.list.SetItem(m.current, *ep)
	return m.saveItem(ep.item)
}

func (m *Model) saveItem(item models.Item) tea.Cmd {
	return func() tea.Msg {
		return savedMsg(m.store.Set(models.TableItems, []models.Item{item}))
	}
}

func (m *Model) savePreferences() tea.Cmd {
	prefs := m.prefs
	return func() tea.Msg {
		return savedMsg(m.store.Set(models.TableSetting, prefs))
	}
}

func (m *Model) loadModel() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
		defer cancel()

		model, err := m.store.Query(ctx)
		return modelLoadedMsg(model, err)
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := m.sink.Next(m.ctx)
		if !ok {
			return nil
		}
		return playerEventMsg(event)
	}
}

// View renders the episode list, the now-playing line and help.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	if !m.loaded {
		return styles.help.Render("Loading episodes...")
	}

	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderNowPlaying())
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderNowPlaying() string {
	settings := fmt.Sprintf("vol %d%%  rate %.2fx", int(m.prefs.Volume*100+0.5), m.prefs.Rate)
	if m.prefs.Muted {
		settings += "  " + styles.warn.Render("muted")
	}

	ep := m.currentEpisode()
	if ep == nil || m.state == models.Idle {
		return styles.help.Render("Stopped") + "  " + settings
	}

	var icon string
	switch m.state {
	case models.Loading:
		icon = "…"
	case models.Paused:
		icon = "⏸"
	default:
		icon = "▶"
	}

	title := styles.ok.Render(fmt.Sprintf("%s %s", icon, ep.Title()))
	position := fmt.Sprintf("%s / %s",
		formatter.FormatDuration(m.progress.Progress),
		formatter.FormatDuration(m.progress.Duration))
	return fmt.Sprintf("%s  %s  %s", title, position, settings)
}
