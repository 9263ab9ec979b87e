// Package tui provides a Bubble Tea terminal user interface for bandcamp-dl.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/download"
	"github.com/tralbum/bandcamp-dl/internal/event"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs        = 10
	maxActiveFiles = 5
	eventBuffer    = 64
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model

	svc      *download.Service
	settings config.Settings

	logs    []event.Log
	table   *event.ProgressTable
	summary *download.Summary
	err     error

	// Options
	discography bool
	playlist    bool
	showFiles   bool

	width int
}

// NewModel creates a TUI model running downloads through svc with settings
// as the base configuration.
func NewModel(svc *download.Service, settings config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "https://artist.bandcamp.com/album/name"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	return Model{
		state:       StateInput,
		textInput:   ti,
		spinner:     sp,
		progress:    prog,
		svc:         svc,
		settings:    settings,
		table:       event.NewProgressTable(),
		discography: settings.DownloadArtistDiscography,
		playlist:    settings.CreatePlaylist,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// EventMsg carries one event of the running download.
	EventMsg struct {
		Event  event.Event
		events <-chan event.Event
	}

	// EventsClosedMsg is sent once the event channel is drained.
	EventsClosedMsg struct{}

	// DownloadDoneMsg is sent when the run is over.
	DownloadDoneMsg struct {
		Summary *download.Summary
	}
)

// Update handles messages and updates the model.
//
//nolint:cyclop,funlen // Message dispatch.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-20, 20), 80)

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.svc.Cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}

			if m.running() {
				m.svc.Cancel()
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				events := make(chan event.Event, eventBuffer)

				return m, tea.Batch(m.startDownload(events), waitForEvent(events), m.spinner.Tick)
			}

		case "ctrl+d":
			if m.state == StateInput {
				m.discography = !m.discography
				return m, nil
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
				return m, nil
			}

		case "f":
			if m.state != StateInput {
				m.showFiles = !m.showFiles
			}

		case "q":
			if m.finished() {
				return m, tea.Quit
			}

		case "r":
			if m.finished() {
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case EventMsg:
		cmds = append(cmds, m.handleEvent(msg.Event), waitForEvent(msg.events))

	case EventsClosedMsg:
		return m, nil

	case DownloadDoneMsg:
		m.summary = msg.Summary

		switch {
		case msg.Summary.Cancelled:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Summary.Err != nil:
			m.state = StateError
			m.err = msg.Summary.Err
		default:
			m.state = StateComplete
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(ev event.Event) tea.Cmd {
	switch ev := ev.(type) {
	case event.Log:
		m.logs = append(m.logs, ev)
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}
	case event.Progress:
		m.table.Update(ev)

		if m.state == StateInitializing {
			m.state = StateDownloading
		}

		return m.progress.SetPercent(m.percent())
	}

	return nil
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.table = event.NewProgressTable()
	m.summary = nil
	m.err = nil
	m.textInput.SetValue("")
	m.textInput.Focus()
}

func (m Model) running() bool {
	return m.state == StateInitializing || m.state == StateDownloading
}

func (m Model) finished() bool {
	return m.state == StateComplete || m.state == StateError
}

func (m Model) percent() float64 {
	complete, total := m.table.Totals()
	if total == 0 {
		return 0
	}

	return min(float64(complete)/float64(total), 1)
}

// runSettings applies the toggles to a copy of the base settings.
func (m Model) runSettings() config.Settings {
	settings := m.settings
	settings.DownloadArtistDiscography = m.discography
	settings.CreatePlaylist = m.playlist

	return settings
}

// startDownload runs the downloads in the background and closes events
// once the run is over.
func (m Model) startDownload(events chan event.Event) tea.Cmd {
	svc, settings := m.svc, m.runSettings()
	urls := strings.ReplaceAll(m.textInput.Value(), ",", "\n")

	return func() tea.Msg {
		defer close(events)

		return DownloadDoneMsg{Summary: svc.StartDownloads(context.Background(), urls, settings, events)}
	}
}

func waitForEvent(events <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}

		return EventMsg{Event: ev, events: events}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♫ Bandcamp Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download music from Bandcamp"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}

	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter Bandcamp URL(s), comma separated:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Download discography (ctrl+d)\n", checkbox(m.discography))
	fmt.Fprintf(&b, "  %s Create playlist (ctrl+p)\n", checkbox(m.playlist))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download path: " + m.settings.DownloadsPath))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching album info..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	complete, total := m.table.Totals()

	b.WriteString(m.progress.View())
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %d | Received: %s / %s",
		m.table.Len(), humanize.Bytes(complete), humanize.Bytes(total))))
	b.WriteString("\n\n")

	if m.showFiles {
		b.WriteString(m.renderActive())
		b.WriteString("\n")
	}

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	s := m.summary
	if s == nil {
		return ""
	}

	style := successStyle
	title := "Download complete"

	if !s.OK() {
		style = warningStyle
		title = "Download finished with errors"
	}

	body := fmt.Sprintf("%s\n\nAlbums: %d\nDownloaded: %d\nAlready present: %d\nFailed: %d\nSize: %s\nTime: %s",
		style.Render(title),
		s.AlbumsFound,
		s.TracksDownloaded,
		s.TracksExisting,
		s.TracksFailed,
		humanize.Bytes(uint64(max(s.Bytes, 0))),
		s.Duration().Round(100*time.Millisecond),
	)

	return boxStyle.Render(body) + "\n\n" + m.renderLogs()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString("  " + m.err.Error())
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderActive() string {
	var b strings.Builder

	active := m.table.Active()
	for i, p := range active {
		if i == maxActiveFiles {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(active)-maxActiveFiles)))
			b.WriteString("\n")

			break
		}

		percent, ok := p.Percent()
		status := humanize.Bytes(p.Complete)

		if ok {
			status = fmt.Sprintf("%3.0f%%", percent)
		}

		b.WriteString(fileStyle.Render(fmt.Sprintf("  ♪ %s %s", status, filepath.Base(p.Path))))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, l := range m.logs {
		style, prefix := infoStyle, "›"

		switch l.Level {
		case event.LevelError:
			style, prefix = errorStyle, "✗"
		case event.LevelWarn:
			style, prefix = warningStyle, "!"
		}

		b.WriteString(style.Render(prefix + " " + l.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+d: discography • ctrl+p: playlist • esc: quit"
	case StateInitializing, StateDownloading:
		return "f: show files • esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}

	return ""
}

// Run starts the TUI application.
func Run(svc *download.Service, settings config.Settings) error {
	p := tea.NewProgram(NewModel(svc, settings), tea.WithAltScreen())
	_, err := p.Run()

	return err
}
