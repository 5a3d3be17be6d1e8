// Package tui renders a live view of a running scheduler.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/crunch/internal/scheduler"
	"github.com/roach88/crunch/internal/work"
)

// Source tags submissions made from the keyboard.
const Source = "tui"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginLeft(1)

	tickStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			MarginLeft(1).
			MarginTop(1)

	bodyStyle = lipgloss.NewStyle().
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginLeft(1).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			MarginLeft(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			MarginLeft(1)
)

// Backend is the part of the scheduler the view drives.
type Backend interface {
	Snapshot() scheduler.Snapshot
	Submit(sub work.Submission) error
	AddWorker(spec scheduler.WorkerSpec) error
}

// Model is the Bubble Tea model for the scheduler view.
type Model struct {
	backend  Backend
	rng      work.Rand
	interval time.Duration

	items    table.Model
	snap     scheduler.Snapshot
	notice   string
	err      error
	hired    int
	quitting bool
}

type tickMsg time.Time
type snapshotMsg scheduler.Snapshot

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// New creates a model polling backend every interval. rng draws the traits
// of workers added with the w key.
func New(backend Backend, interval time.Duration, rng work.Rand) Model {
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Kind", Width: 14},
		{Title: "Variant", Width: 10},
		{Title: "Progress", Width: 10},
		{Title: "Contributors", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("12"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return Model{
		backend:  backend,
		rng:      rng,
		interval: interval,
		items:    t,
	}
}

// Init starts polling.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.interval),
		m.refresh(),
	)
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.backend.Snapshot())
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "n":
			m.submit(work.KindCreateChange)
			return m, m.refresh()
		case "b":
			m.submit(work.KindShortBreak)
			return m, m.refresh()
		case "w":
			m.hire()
			return m, m.refresh()
		}

	case tea.WindowSizeMsg:
		// Header, stats, history, workers, and help take the rest.
		m.items.SetHeight(max(3, msg.Height-24))
		return m, nil

	case tickMsg:
		return m, tea.Batch(
			tickCmd(m.interval),
			m.refresh(),
		)

	case snapshotMsg:
		m.snap = scheduler.Snapshot(msg)
		rows := make([]table.Row, len(m.snap.OpenItems))
		for i, item := range m.snap.OpenItems {
			rows[i] = table.Row{
				fmt.Sprintf("%d", item.ID),
				string(item.Kind),
				item.Variant,
				fmt.Sprintf("%3.0f%%", item.Progress*100),
				strings.Join(item.Contributors, ", "),
			}
		}
		m.items.SetRows(rows)
		return m, nil
	}

	m.items, cmd = m.items.Update(msg)
	return m, cmd
}

func (m *Model) submit(kind work.Kind) {
	err := m.backend.Submit(work.Submission{Kind: kind, Variant: work.VariantStandard, Source: Source})
	if err != nil {
		m.err = fmt.Errorf("submit %s: %w", kind, err)
		m.notice = ""
		return
	}
	m.err = nil
	m.notice = fmt.Sprintf("submitted %s", kind)
}

func (m *Model) hire() {
	m.hired++
	name := fmt.Sprintf("worker-%d", m.hired)
	spec := scheduler.WorkerSpec{
		Name:            name,
		Characteristics: work.RandomCharacteristics(m.rng),
		Resources:       work.DefaultResources(),
	}
	if err := m.backend.AddWorker(spec); err != nil {
		m.err = fmt.Errorf("add %s: %w", name, err)
		m.notice = ""
		return
	}
	m.err = nil
	m.notice = fmt.Sprintf("%s joins next tick", name)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleStyle.Render("crunch"),
		strings.Repeat(" ", 5),
		tickStyle.Render(fmt.Sprintf("tick %d", m.snap.Tick)),
	)
	b.WriteString(header)
	b.WriteString("\n")

	st := m.snap.Stats
	b.WriteString(bodyStyle.Render(fmt.Sprintf(
		"open=%d completed=%d dispatched=%d dropped=%d stale=%d",
		len(m.snap.OpenItems), st.Completed, st.Dispatched, st.DroppedDispatches+st.DroppedBuffs, st.StaleReports,
	)))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Open items"))
	b.WriteString("\n")
	b.WriteString(m.items.View())
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Recently completed"))
	b.WriteString("\n")
	if len(m.snap.History) == 0 {
		b.WriteString(bodyStyle.Render("nothing yet"))
		b.WriteString("\n")
	}
	for _, e := range m.snap.History {
		b.WriteString(bodyStyle.Render(fmt.Sprintf("#%-4d %-14s tick %-6d %s",
			e.ID, e.Kind, e.Tick, strings.Join(e.Contributors, ", "))))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Workers"))
	b.WriteString("\n")
	for _, w := range m.snap.Workers {
		b.WriteString(bodyStyle.Render(fmt.Sprintf("%-12s energy %6.1f  focus %6.1f  stress %5.1f  ticks %d",
			w.Name, w.Resources.Energy, w.Resources.Focus, w.Resources.Stress, w.Processed)))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("n: new change • b: break • w: add worker • ↑/↓: scroll • q: quit"))
	b.WriteString("\n")

	return b.String()
}
