package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/modwatch/pkg/modwatch/scanner"
)

// ProgressMsg is sent before each archive is fetched.
type ProgressMsg scanner.Progress

// DoneMsg is sent when the run finishes.
type DoneMsg struct {
	Err error
}

// ProgressModel shows a spinner and the archive currently being read.
type ProgressModel struct {
	spinner   spinner.Model
	source    string
	progress  scanner.Progress
	started   bool
	startTime time.Time
	done      bool
	err       error
}

// NewProgressModel creates a progress model for a run against source.
func NewProgressModel(source string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = titleStyle

	return ProgressModel{
		spinner:   s,
		source:    source,
		startTime: time.Now(),
	}
}

// SetProgress records the archive being fetched.
func (m *ProgressModel) SetProgress(p scanner.Progress) {
	m.progress = p
	m.started = true
}

// SetDone marks the run as finished.
func (m *ProgressModel) SetDone(err error) {
	m.done = true
	m.err = err
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles progress, completion and spinner ticks.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.SetProgress(scanner.Progress(msg))
		return m, nil

	case DoneMsg:
		m.SetDone(msg.Err)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders a single status line.
func (m ProgressModel) View() string {
	var b strings.Builder

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Run failed: %v", m.err)))
	case m.done:
		b.WriteString(successTextStyle.Render(fmt.Sprintf("  Checked %d archives in %s",
			m.progress.Total, time.Since(m.startTime).Round(100*time.Millisecond))))
	case !m.started:
		b.WriteString(fmt.Sprintf("  %s Connecting to %s", m.spinner.View(), nameStyle.Render(m.source)))
	default:
		b.WriteString(fmt.Sprintf("  %s Reading %s %s %s",
			m.spinner.View(),
			nameStyle.Render(m.progress.Name),
			mutedTextStyle.Render(humanize.IBytes(uint64(max(m.progress.Size, 0)))),
			mutedTextStyle.Render(fmt.Sprintf("(%d/%d)", m.progress.Index+1, m.progress.Total)),
		))
	}

	b.WriteString("\n")
	return b.String()
}

// Run displays progress on out while work executes. work receives a
// callback that forwards scanner progress to the display. The returned
// error is work's.
func Run(ctx context.Context, out io.Writer, source string, work func(progress func(scanner.Progress)) error) error {
	p := tea.NewProgram(
		NewProgressModel(source),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	errCh := make(chan error, 1)
	go func() {
		err := work(func(pr scanner.Progress) {
			p.Send(ProgressMsg(pr))
		})
		p.Send(DoneMsg{Err: err})
		errCh <- err
	}()

	// A display failure must not hide the run result.
	_, _ = p.Run()
	return <-errCh
}
