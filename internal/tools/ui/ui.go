package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const runTimeout = 3 * time.Minute

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingLeft(2)

	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

type tickMsg time.Time

type doneMsg struct {
	details []string
	err     error
}

type model struct {
	title   string
	run     func(context.Context) ([]string, error)
	ctx     context.Context
	cancel  context.CancelFunc
	frame   int
	started time.Time
	done    bool
	details []string
	err     error
}

func newModel(ctx context.Context, title string, fn func(context.Context) ([]string, error)) *model {
	ctx, cancel := context.WithCancel(ctx)
	return &model{title: title, run: fn, ctx: ctx, cancel: cancel, started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(tick(), func() tea.Msg {
		details, err := m.run(m.ctx)
		return doneMsg{details: details, err: err}
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		if m.done {
			return m, nil
		}
		m.done = true
		m.details = msg.details
		m.err = msg.err
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m *model) View() string {
	if !m.done {
		return fmt.Sprintf("%s %s %s\n", spinnerFrames[m.frame], titleStyle.Render(m.title), detailStyle.Render(time.Since(m.started).Truncate(time.Second).String()))
	}
	return RenderResult(m.title, m.details, m.err)
}

// RenderResult formats a finished task the same way Run leaves it on screen.
func RenderResult(title string, details []string, err error) string {
	var b strings.Builder
	if err != nil {
		b.WriteString(failStyle.Render("✗ " + title))
	} else {
		b.WriteString(okStyle.Render("✓ " + title))
	}
	b.WriteString("\n")
	for _, d := range details {
		b.WriteString(detailStyle.Render(d))
		b.WriteString("\n")
	}
	if err != nil {
		b.WriteString(detailStyle.Render("error: " + err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// Run executes fn behind a spinner and returns its result once it finishes
// or the user interrupts it.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	m := newModel(ctx, title, fn)
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("run ui: %w", err)
	}
	fm, ok := final.(*model)
	if !ok {
		return nil, errors.New("unexpected ui model")
	}
	return fm.details, fm.err
}
