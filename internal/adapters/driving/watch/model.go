// Package watch provides a terminal viewer for the live run event
// stream. It follows the Elm architecture via Bubbletea: events arrive
// as messages, the model keeps a scrollback of rendered lines.
package watch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// maxScrollback bounds how many rendered lines the model retains.
const maxScrollback = 500

// Model is the event watcher's Bubbletea model.
type Model struct {
	events <-chan domain.Event
	styles *Styles

	lines []string
	err   error

	width  int
	height int
	ready  bool
}

// Ensure Model implements tea.Model.
var _ tea.Model = (*Model)(nil)

// eventMsg wraps a received run event.
type eventMsg domain.Event

// streamClosedMsg signals the event source has ended.
type streamClosedMsg struct{}

// errMsg carries a stream failure into the model.
type errMsg struct{ err error }

// NewModel creates a watcher over the given event channel.
func NewModel(events <-chan domain.Event) *Model {
	return &Model{
		events: events,
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("quill - run events"),
		m.waitForEvent(),
	)
}

// waitForEvent blocks on the event channel and converts the result into
// a Bubbletea message.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(event)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m.appendLine(m.renderEvent(domain.Event(msg)))
		return m, m.waitForEvent()

	case streamClosedMsg:
		m.appendLine(m.styles.Help.Render("stream closed"))
		return m, nil

	case errMsg:
		m.err = msg.err
		m.appendLine(m.styles.Error.Render("error: " + msg.err.Error()))
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Run Events"))
	b.WriteString("\n\n")

	visible := m.lines
	if m.ready && m.height > 4 && len(visible) > m.height-4 {
		visible = visible[len(visible)-(m.height-4):]
	}
	for _, line := range visible {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("q to quit"))
	return b.String()
}

// Err returns the last stream error, if any.
func (m *Model) Err() error {
	return m.err
}

// Lines returns the rendered scrollback.
func (m *Model) Lines() []string {
	return m.lines
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxScrollback {
		m.lines = m.lines[len(m.lines)-maxScrollback:]
	}
}

// renderEvent formats one event as a single scrollback line.
func (m *Model) renderEvent(e domain.Event) string {
	ts := time.UnixMilli(e.Timestamp).Format("15:04:05")
	prefix := fmt.Sprintf("%s %s", ts, m.styles.RunID.Render(shortRunID(e.RunID)))

	switch data := e.Data.(type) {
	case domain.PhaseData:
		style := m.styles.Phase
		if data.Status == domain.PhaseCancelled {
			style = m.styles.Cancelled
		}
		return fmt.Sprintf("%s %s", prefix, style.Render(fmt.Sprintf("phase %s %s", data.Phase, data.Status)))

	case domain.MetricData:
		names := make([]string, 0, len(data))
		for name := range data {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = fmt.Sprintf("%s=%g", name, data[name])
		}
		return fmt.Sprintf("%s %s", prefix, m.styles.Metric.Render(strings.Join(parts, " ")))

	case domain.LogData:
		return fmt.Sprintf("%s %s", prefix, m.styles.Log.Render(strings.TrimRight(data.Message, "\n")))

	case domain.AnswerData:
		return fmt.Sprintf("%s %s", prefix, m.styles.Answer.Render("answer ready ("+byteCount(len(data.Markdown))+")"))

	default:
		return fmt.Sprintf("%s %s", prefix, m.styles.Log.Render(string(e.Type)))
	}
}

// shortRunID abbreviates a run ID for display.
func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

func byteCount(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
