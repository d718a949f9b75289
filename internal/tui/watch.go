package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mark3labs/arbitr/internal/ledger"
	"github.com/mark3labs/arbitr/internal/logger"
	natspkg "github.com/mark3labs/arbitr/internal/nats"
	"github.com/nats-io/nats.go"
)

// eventMsg wraps a ledger event received from the broker.
type eventMsg ledger.Event

// subErrMsg reports a dropped subscription.
type subErrMsg struct{ err error }

// WatchModel is the BubbleTea model for the live ledger view. It tails the
// session's event subjects and renders one color-coded line per event.
type WatchModel struct {
	session  string
	viewport viewport.Model
	events   []ledger.Event
	eventCh  chan ledger.Event
	width    int
	height   int
	err      error
}

// RunWatch subscribes to a session's events and runs the watch UI until the
// user quits. The subscription sees live core messages, so JetStream
// publishes from other processes connected to the same server show up as
// they happen.
func RunWatch(nc *nats.Conn, session string) error {
	m := &WatchModel{
		session:  session,
		viewport: viewport.New(),
		eventCh:  make(chan ledger.Event, 64),
	}

	sub, err := nc.Subscribe(natspkg.SubjectForSession(session), func(msg *nats.Msg) {
		var event ledger.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("Skipping malformed event on %s: %v", msg.Subject, err)
			return
		}
		select {
		case m.eventCh <- event:
		default:
			logger.Warn("Watch event buffer full, dropping event")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to session events: %w", err)
	}
	defer sub.Unsubscribe()

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

// waitForEvent returns a command that blocks on the event channel.
func (m *WatchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.eventCh
		if !ok {
			return subErrMsg{err: fmt.Errorf("event stream closed")}
		}
		return eventMsg(event)
	}
}

// Init starts listening for events.
func (m *WatchModel) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles messages for the watch view.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(msg.Height - 2) // header + footer
		m.updateContent()
		return m, nil

	case eventMsg:
		m.events = append(m.events, ledger.Event(msg))
		m.updateContent()
		m.viewport.GotoBottom()
		return m, m.waitForEvent()

	case subErrMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the watch screen.
func (m *WatchModel) View() tea.View {
	var view tea.View
	view.AltScreen = true

	header := styleHeader.Render(fmt.Sprintf(" arbitr watch - %s ", m.session))
	footer := styleFooter.Render(fmt.Sprintf(" %d events | q to quit ", len(m.events)))
	content := header + "\n" + m.viewport.View() + "\n" + footer

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(content).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})

	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

// updateContent rebuilds the viewport content from received events.
func (m *WatchModel) updateContent() {
	if len(m.events) == 0 {
		m.viewport.SetContent(styleEmpty.Render("Waiting for events..."))
		return
	}

	var b strings.Builder
	for _, event := range m.events {
		b.WriteString(m.renderEvent(event))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderEvent renders a single ledger event with type-specific styling.
func (m *WatchModel) renderEvent(event ledger.Event) string {
	timestamp := styleTimestamp.Render(event.Timestamp.Format("15:04:05"))

	var typeStyle lipgloss.Style
	var typeLabel string
	switch event.Type {
	case natspkg.EventTypeDomain:
		typeStyle = styleEventDomain
		typeLabel = "DOMN"
	case natspkg.EventTypeClaim:
		typeStyle = styleEventClaim
		typeLabel = "CLAM"
	case natspkg.EventTypeConflict:
		typeStyle = styleEventConflict
		typeLabel = "CNFL"
	case natspkg.EventTypeDecision:
		typeStyle = styleEventDecision
		typeLabel = "DECN"
	case natspkg.EventTypeSignal:
		typeStyle = styleEventSignal
		typeLabel = "SGNL"
	case natspkg.EventTypeControl:
		typeStyle = styleEventControl
		typeLabel = "CTRL"
	default:
		typeStyle = styleContent
		typeLabel = "EVNT"
	}
	typeStr := typeStyle.Render(fmt.Sprintf("[%s]", typeLabel))

	actionStr := styleDim.Render(event.Action)

	content := event.Data
	maxContentWidth := m.width - 30 // timestamp, type and action take the rest
	if maxContentWidth > 3 && len(content) > maxContentWidth {
		content = content[:maxContentWidth-3] + "..."
	}

	return fmt.Sprintf("%s %s %-10s %s", timestamp, typeStr, actionStr, styleContent.Render(content))
}

// Err returns the error that terminated the watch, if any.
func (m *WatchModel) Err() error {
	return m.err
}
