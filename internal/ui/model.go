// Package ui renders the terminal interface. The bubbletea model owns the
// orchestrator and forwards engine and worker events into it as messages.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"shelfplayer/internal/api"
	"shelfplayer/internal/app"
	"shelfplayer/internal/player"
)

// Model is the bubbletea model.
type Model struct {
	width  int
	height int

	app    *app.App
	engine *player.Engine
	worker *api.Worker

	theme Theme
}

// TickMsg drives periodic redraws so notifications expire on screen.
type TickMsg time.Time

// playerEventMsg wraps one engine event.
type playerEventMsg struct {
	event player.Event
}

// apiEventMsg wraps one worker event.
type apiEventMsg struct {
	event api.Event
}

// NewModel creates the model. The engine and worker must already be
// started.
func NewModel(a *app.App, engine *player.Engine, worker *api.Worker, theme Theme) Model {
	return Model{
		width:  80,
		height: 24,
		app:    a,
		engine: engine,
		worker: worker,
		theme:  theme,
	}
}

// Init starts the tick loop and both event listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.listenForPlayerEvents(),
		m.listenForAPIEvents(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.engine.Events()
		if !ok {
			return nil
		}
		return playerEventMsg{event: ev}
	}
}

func (m Model) listenForAPIEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.worker.Events()
		if !ok {
			return nil
		}
		return apiEventMsg{event: ev}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		cmds = append(cmds, tickCmd())

	case playerEventMsg:
		m.handlePlayerEvent(msg.event)
		cmds = append(cmds, m.listenForPlayerEvents())

	case apiEventMsg:
		m.handleAPIEvent(msg.event)
		cmds = append(cmds, m.listenForAPIEvents())

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if m.app.ShouldQuit {
		cmds = append(cmds, tea.Quit)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handlePlayerEvent(ev player.Event) {
	switch e := ev.(type) {
	case player.StateChanged:
		m.app.OnPlayerStateChanged(e.State)
	case player.PositionUpdate:
		m.app.OnPositionUpdate(e.Position)
	case player.DurationChanged:
		m.app.OnDurationChanged(e.Duration)
	case player.TrackEnded:
		m.app.OnTrackEnded()
	case player.Error:
		m.app.OnPlayerError(e.Message)
	}
}

func (m Model) handleAPIEvent(ev api.Event) {
	switch e := ev.(type) {
	case api.LibrariesLoaded:
		m.app.OnLibrariesLoaded(e.Libraries)
	case api.ItemsLoaded:
		m.app.OnItemsLoaded(e.Items)
	case api.ChaptersLoaded:
		m.app.OnChaptersLoaded(e.Chapters)
	case api.DownloadFinished:
		m.app.OnDownloadFinished(e.Path, e.LocalPosition, e.Track)
	case api.ContinueListeningLoaded:
		m.app.OnContinueListeningLoaded(e.Item, e.Position)
	case api.CoverLoaded:
		m.app.OnCoverLoaded(e.ItemID, e.Path)
	case api.Err:
		m.app.OnAPIError(e.Message)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.app.Quit()
		return tea.Quit

	case "tab":
		m.app.CycleFocus(false)
	case "shift+tab":
		m.app.CycleFocus(true)

	case "L":
		m.app.NextLibrary()
	case "H":
		m.app.PreviousLibrary()

	case " ":
		m.app.TogglePlayback()
	case "s":
		m.app.StopPlayback()

	case "+", "=":
		m.app.AdjustSpeed(0.1)
	case "-":
		m.app.AdjustSpeed(-0.1)

	case "enter":
		if m.app.Focus == app.FocusChapters {
			m.app.PlaySelectedChapter()
		} else if m.app.Focus == app.FocusLibraries {
			m.app.SelectItem()
		}

	case "j", "down":
		switch m.app.Focus {
		case app.FocusLibraries:
			m.app.NextItem()
		case app.FocusChapters:
			m.app.NextChapter()
		}
	case "k", "up":
		switch m.app.Focus {
		case app.FocusLibraries:
			m.app.PreviousItem()
		case app.FocusChapters:
			m.app.PreviousChapter()
		}
	case "l", "right":
		if m.app.Focus == app.FocusControls {
			m.app.SeekForward()
		}
	case "h", "left":
		if m.app.Focus == app.FocusControls {
			m.app.SeekBackward()
		}
	}

	return nil
}

// Run starts the bubbletea program and blocks until it exits.
func Run(a *app.App, engine *player.Engine, worker *api.Worker, theme Theme) error {
	model := NewModel(a, engine, worker, theme)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
