// Package tui renders the live traffic dashboard.
//
// DESIGN: The dashboard never touches aggregator state. It receives
// read-only snapshots from a conflated watch channel, so it can redraw at
// its own pace and only ever shows the newest state.
//
// Layout (top to bottom):
//   - Header:      title plus the most recent provider
//   - Fuel gauge:  cumulative tokens against the configured limit
//   - Request log: most recent requests first
//   - Last prompt: preview of the last user message
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/monitoring"
	"github.com/compresr/sherlock/internal/utils"
)

const (
	title          = "SHERLOCK - LLM Traffic Inspector"
	modelColumnMax = 30
	defaultWidth   = 80
	// Header, gauge, prompt panel, and help line, with borders.
	chromeHeight = 18
)

// Gauge colors.
const (
	colorGreen  = lipgloss.Color("42")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("196")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51")).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true)

	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Source supplies snapshots. Implemented by monitoring.Aggregator.
type Source interface {
	Watch() (<-chan monitoring.Snapshot, func())
}

type snapshotMsg monitoring.Snapshot

type sourceClosedMsg struct{}

// Model is the dashboard's bubbletea model.
type Model struct {
	cfg      config.DashboardConfig
	snap     monitoring.Snapshot
	updates  <-chan monitoring.Snapshot
	bar      progress.Model
	width    int
	height   int
	quitting bool
}

// NewModel creates a dashboard fed by updates.
func NewModel(cfg config.DashboardConfig, updates <-chan monitoring.Snapshot) Model {
	bar := progress.New(progress.WithSolidFill(string(colorGreen)), progress.WithoutPercentage())
	bar.Width = defaultWidth - 6
	return Model{cfg: cfg, updates: updates, bar: bar, width: defaultWidth}
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg config.DashboardConfig, source Source) error {
	updates, cancel := source.Watch()
	defer cancel()

	fps := cfg.RefreshRateHz
	if fps <= 0 {
		fps = config.DefaultRefreshRateHz
	}
	p := tea.NewProgram(
		NewModel(cfg, updates),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithFPS(fps),
	)
	if _, err := p.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func waitForSnapshot(updates <-chan monitoring.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return sourceClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-6, 10)
	case snapshotMsg:
		m.snap = monitoring.Snapshot(msg)
		return m, waitForSnapshot(m.updates)
	case sourceClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.gaugeView(),
		m.requestLogView(),
		m.promptView(),
		helpStyle.Render(" q/esc: quit"),
	)
}

func (m Model) innerWidth() int {
	return max(m.width-2, 20)
}

func (m Model) headerView() string {
	text := title
	if m.snap.LastProvider != "" {
		text += " (" + strings.ToUpper(m.snap.LastProvider) + ")"
	}
	return headerStyle.Width(m.innerWidth()).Render(text)
}

// usagePercent is total/limit as a percentage, capped at 100.
func usagePercent(total, limit uint64) float64 {
	if limit == 0 {
		return 100
	}
	return min(float64(total)/float64(limit)*100, 100)
}

// gaugeColor is green below 50%, yellow below 80%, red from there.
func gaugeColor(percent float64) lipgloss.Color {
	switch {
	case percent < 50:
		return colorGreen
	case percent < 80:
		return colorYellow
	default:
		return colorRed
	}
}

func gaugeLabel(total, limit uint64) string {
	return fmt.Sprintf("%s / %s tokens (%.1f%%)",
		utils.FormatNumber(total), utils.FormatNumber(limit), usagePercent(total, limit))
}

func (m Model) gaugeView() string {
	percent := usagePercent(m.snap.TotalTokens, m.cfg.TokenLimit)
	bar := m.bar
	bar.FullColor = string(gaugeColor(percent))

	body := lipgloss.JoinVertical(lipgloss.Left,
		panelTitleStyle.Render("Context Usage"),
		bar.ViewAs(percent/100),
		lipgloss.NewStyle().Foreground(gaugeColor(percent)).Render(gaugeLabel(m.snap.TotalTokens, m.cfg.TokenLimit)),
		helpStyle.Render(fmt.Sprintf("%d requests, est. input cost $%.4f", m.snap.Requests, m.snap.EstimatedCostUSD)),
	)
	return panelStyle.Width(m.innerWidth()).Render(body)
}

// visibleRows is how many log rows fit the terminal height.
func (m Model) visibleRows() int {
	rows := len(m.snap.Recent)
	if m.height > 0 {
		rows = min(rows, max(m.height-chromeHeight, 1))
	}
	if m.cfg.MaxLogEntries > 0 {
		rows = min(rows, m.cfg.MaxLogEntries)
	}
	return rows
}

func (m Model) requestLogView() string {
	rows := make([][]string, 0, m.visibleRows())
	for _, r := range m.snap.Recent[:m.visibleRows()] {
		rows = append(rows, []string{
			r.Time,
			r.Provider,
			utils.Truncate(r.Model, modelColumnMax),
			utils.FormatNumber(uint64(max(r.Tokens, 0))),
		})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("Time", "Provider", "Model", "Tokens").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				s = s.Bold(true)
			}
			if col == 3 {
				s = s.Align(lipgloss.Right)
			}
			return s
		})

	heading := panelTitleStyle.Render(fmt.Sprintf("Request Log (%d)", len(m.snap.Recent)))
	return panelStyle.Width(m.innerWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, heading, t.Render()))
}

func (m Model) promptView() string {
	var preview string
	if m.snap.LastPrompt == "" {
		preview = placeholderStyle.Render("No prompts yet...")
	} else {
		preview = utils.Truncate(m.snap.LastPrompt, m.cfg.PromptPreviewLength)
	}
	return panelStyle.Width(m.innerWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, panelTitleStyle.Render("Last Prompt"), preview))
}
