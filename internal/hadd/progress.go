package hadd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seutils/seu/internal/lfn"
)

type eventMsg Event

type finishedMsg struct{ err error }

type progressModel struct {
	bar      progress.Model
	event    Event
	total    int
	err      error
	finished bool
	style    lipgloss.Style
}

func newProgressModel(total int, style lipgloss.Style) progressModel {
	return progressModel{
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total: total,
		style: style,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.event = Event(msg)
		if m.event.Total > 0 {
			m.total = m.event.Total
		}
		return m, nil
	case finishedMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			m.finished = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-20))
	}
	return m, nil
}

func (m progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.event.Done) / float64(m.total)
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&b, " %d/%d", m.event.Done, m.total)
	if m.event.Message != "" {
		b.WriteString("  " + m.style.Render(m.event.Message))
	}
	b.WriteString("\n")
	return b.String()
}

// RunWithProgress runs fn while drawing a progress bar on out. fn receives
// the callback to report its events through.
func RunWithProgress(ctx context.Context, out io.Writer, total int, style lipgloss.Style, fn func(report func(Event)) error) error {
	p := tea.NewProgram(newProgressModel(total, style),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)
	errCh := make(chan error, 1)
	go func() {
		err := fn(func(e Event) { p.Send(eventMsg(e)) })
		errCh <- err
		p.Send(finishedMsg{err: err})
	}()
	if _, err := p.Run(); err != nil {
		// the program is gone; still wait for the work to stop
		if werr := <-errCh; werr != nil {
			return werr
		}
		return err
	}
	return <-errCh
}

// Steps returns the number of progress steps Merge reports for n inputs.
func Steps(n int, dst string, opts Options) int {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := (n + size - 1) / size
	total := 1
	if chunks > 1 {
		total += chunks
	}
	if lfn.HasProtocol(dst) {
		total++
	}
	return total
}
