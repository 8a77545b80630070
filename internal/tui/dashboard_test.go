package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/sherlock/internal/config"
	"github.com/compresr/sherlock/internal/monitoring"
)

func testDashboardConfig() config.DashboardConfig {
	return config.DashboardConfig{
		Enabled:             true,
		TokenLimit:          200_000,
		MaxLogEntries:       100,
		RefreshRateHz:       4,
		PromptPreviewLength: 20,
	}
}

func TestUsagePercentAndColor(t *testing.T) {
	tests := []struct {
		total   uint64
		limit   uint64
		percent float64
		color   string
	}{
		{0, 200_000, 0, string(colorGreen)},
		{99_999, 200_000, 49.9995, string(colorGreen)},
		{100_000, 200_000, 50, string(colorYellow)},
		{159_999, 200_000, 79.9995, string(colorYellow)},
		{160_000, 200_000, 80, string(colorRed)},
		{500_000, 200_000, 100, string(colorRed)},
	}
	for _, tt := range tests {
		p := usagePercent(tt.total, tt.limit)
		assert.InDelta(t, tt.percent, p, 0.0001)
		assert.Equal(t, tt.color, string(gaugeColor(p)))
	}
}

func TestGaugeLabel(t *testing.T) {
	assert.Equal(t, "12,345 / 200,000 tokens (6.2%)", gaugeLabel(12_345, 200_000))
	assert.Equal(t, "300,000 / 200,000 tokens (100.0%)", gaugeLabel(300_000, 200_000))
}

func TestModel_EmptyView(t *testing.T) {
	m := NewModel(testDashboardConfig(), nil)
	view := m.View()

	assert.Contains(t, view, "SHERLOCK - LLM Traffic Inspector")
	assert.NotContains(t, view, "(ANTHROPIC)")
	assert.Contains(t, view, "0 / 200,000 tokens (0.0%)")
	assert.Contains(t, view, "Request Log (0)")
	assert.Contains(t, view, "No prompts yet...")
}

func TestModel_SnapshotUpdatesView(t *testing.T) {
	updates := make(chan monitoring.Snapshot, 1)
	m := NewModel(testDashboardConfig(), updates)

	next, cmd := m.Update(snapshotMsg(monitoring.Snapshot{
		TotalTokens:      1_234,
		Requests:         2,
		EstimatedCostUSD: 0.0031,
		LastProvider:     "anthropic",
		LastPrompt:       "explain the difference between channels and mutexes",
		Recent: []monitoring.RequestSummary{
			{Time: "09:26:53", Provider: "Anthropic", Model: "claude-3-5-sonnet-20241022-with-a-very-long-suffix", Tokens: 1_000},
			{Time: "09:26:40", Provider: "Openai", Model: "gpt-4o", Tokens: 234},
		},
	}))
	require.NotNil(t, cmd, "the model keeps listening for snapshots")

	view := next.View()
	assert.Contains(t, view, "(ANTHROPIC)")
	assert.Contains(t, view, "1,234 / 200,000 tokens (0.6%)")
	assert.Contains(t, view, "2 requests, est. input cost $0.0031")
	assert.Contains(t, view, "Request Log (2)")
	assert.Contains(t, view, "claude-3-5-sonnet-20241022-...")
	assert.NotContains(t, view, "very-long-suffix")
	assert.Contains(t, view, "1,000")
	assert.Contains(t, view, "gpt-4o")
	assert.Contains(t, view, "explain the diffe...")
	assert.Less(t, strings.Index(view, "claude-3-5"), strings.Index(view, "gpt-4o"), "newest request first")
}

func TestModel_VisibleRowsFollowHeight(t *testing.T) {
	m := NewModel(testDashboardConfig(), nil)
	for i := 0; i < 50; i++ {
		m.snap.Recent = append(m.snap.Recent, monitoring.RequestSummary{Model: "m"})
	}

	assert.Equal(t, 50, m.visibleRows())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: chromeHeight + 5})
	assert.Equal(t, 5, next.(Model).visibleRows())
}

func TestModel_QuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		m := NewModel(testDashboardConfig(), nil)
		next, cmd := m.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.Equal(t, tea.QuitMsg{}, cmd())
		assert.Empty(t, next.View())
	}
}

func TestModel_OtherKeysIgnored(t *testing.T) {
	m := NewModel(testDashboardConfig(), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
}

func TestWaitForSnapshot(t *testing.T) {
	updates := make(chan monitoring.Snapshot, 1)
	updates <- monitoring.Snapshot{Requests: 7}

	msg := waitForSnapshot(updates)()
	assert.Equal(t, uint64(7), monitoring.Snapshot(msg.(snapshotMsg)).Requests)

	close(updates)
	assert.Equal(t, sourceClosedMsg{}, waitForSnapshot(updates)())
	assert.Nil(t, waitForSnapshot(nil))
}
