// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/pyrometer/pkg/linktest"
)

// Dashboard messages
type snapshotTickMsg time.Time
type sessionDoneMsg struct{}

// dashboardModel is the live run view: a progress bar over the configured
// duration plus the running counters and latency figures.
type dashboardModel struct {
	engine *linktest.Engine
	id     linktest.SessionID
	cfg    linktest.Config

	snap     *linktest.Snapshot
	bar      progress.Model
	width    int
	height   int
	quitting bool
}

func newDashboardModel(engine *linktest.Engine, id linktest.SessionID, cfg linktest.Config) dashboardModel {
	return dashboardModel{
		engine: engine,
		id:     id,
		cfg:    cfg,
		bar:    progress.New(progress.WithDefaultGradient()),
		width:  80,
		height: 24,
	}
}

// runDashboard drives the TUI until the session reaches a terminal status
// and returns the final summary.
func runDashboard(engine *linktest.Engine, id linktest.SessionID, cfg linktest.Config) (linktest.Summary, error) {
	m := newDashboardModel(engine, id, cfg)
	p := tea.NewProgram(m)

	// Unblock the TUI the moment the session ends on its own
	go func() {
		engine.Wait(id)
		p.Send(sessionDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		engine.Stop(id)
		engine.Wait(id)
		return linktest.Summary{}, fmt.Errorf("TUI error: %v", err)
	}

	return engine.Wait(id)
}

func snapshotTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return snapshotTickMsg(t)
	})
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(
		snapshotTickCmd(),
		tea.EnterAltScreen,
	)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.engine.Stop(m.id)
			return m, tea.Quit
		case "p":
			m.engine.Pause(m.id)
		case "r":
			m.engine.Resume(m.id)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8

	case snapshotTickMsg:
		if snap, err := m.engine.Snapshot(m.id); err == nil {
			m.snap = snap
		}
		return m, snapshotTickCmd()

	case sessionDoneMsg:
		m.quitting = true
		if snap, err := m.engine.Snapshot(m.id); err == nil {
			m.snap = snap
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.quitting {
		return "Finishing...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("PYROMETER - LINK TEST"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | Press 'q' to stop, 'p' pause, 'r' resume",
		m.cfg.Mode, describeConnection())))
	s.WriteString("\n\n")

	if m.snap == nil {
		s.WriteString(warningStyle.Render("Connecting..."))
		s.WriteString("\n")
		return s.String()
	}
	sum := m.snap.Summary

	// Progress over the configured duration
	pct := float64(sum.Elapsed) / float64(m.cfg.Duration)
	if pct > 1 {
		pct = 1
	}
	s.WriteString(m.bar.ViewAs(pct))
	s.WriteString(headerStyle.Render(fmt.Sprintf("  %s / %s",
		sum.Elapsed.Round(time.Second), m.cfg.Duration)))
	if sum.Status == linktest.StatusPaused {
		s.WriteString(warningStyle.Render("  [PAUSED]"))
	}
	s.WriteString("\n\n")

	// Counters
	counters := strings.Builder{}
	counters.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Sent:"), valueStyle.Render(fmt.Sprintf("%d", sum.PacketsSent)),
		labelStyle.Render("Acked:"), valueStyle.Render(fmt.Sprintf("%d", sum.PacketsAcked)),
		labelStyle.Render("Received:"), valueStyle.Render(fmt.Sprintf("%d", sum.PacketsReceived)),
	))
	counters.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Lost:"), func() string {
			if sum.PacketsLost > 0 {
				return errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", sum.PacketsLost, sum.LossRate*100))
			}
			return valueStyle.Render("0")
		}(),
		labelStyle.Render("Retransmits:"), func() string {
			if sum.Retransmits > 0 {
				return warningStyle.Render(fmt.Sprintf("%d", sum.Retransmits))
			}
			return valueStyle.Render("0")
		}(),
		labelStyle.Render("Framing:"), func() string {
			if sum.FramingErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", sum.FramingErrors))
			}
			return valueStyle.Render("0")
		}(),
	))
	s.WriteString(boxStyle.Render(counters.String()))
	s.WriteString("\n\n")

	// Latency and bandwidth
	perf := strings.Builder{}
	if sum.LatencySamples > 0 {
		perf.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Latency:"), valueStyle.Render(fmt.Sprintf("%.1f ms", sum.MeanLatencyMs)),
			labelStyle.Render("p95:"), valueStyle.Render(fmt.Sprintf("%.1f ms", sum.P95LatencyMs)),
			labelStyle.Render("Jitter:"), valueStyle.Render(fmt.Sprintf("%.1f ms", sum.JitterMs)),
		))
	}
	perf.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Bandwidth:"), valueStyle.Render(fmt.Sprintf("%.0f B/s", sum.AvgBandwidthBps)),
		labelStyle.Render("Peak:"), valueStyle.Render(fmt.Sprintf("%.0f B/s", sum.PeakBandwidthBps)),
	))
	s.WriteString(boxStyle.Render(perf.String()))
	s.WriteString("\n\n")

	// Recent loss and error events from the sample window
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 18
	if logHeight < 3 {
		logHeight = 3
	}

	events := make([]linktest.Sample, 0, logHeight)
	for i := len(m.snap.Window) - 1; i >= 0 && len(events) < logHeight; i-- {
		sm := m.snap.Window[i]
		if sm.Kind == linktest.SampleLoss || sm.Kind == linktest.SampleError {
			events = append(events, sm)
		}
	}

	logContent := strings.Builder{}
	if len(events) == 0 {
		logContent.WriteString(headerStyle.Render("  (no loss or errors)"))
	} else {
		for i := len(events) - 1; i >= 0; i-- {
			sm := events[i]
			timestamp := sm.Time.Format("15:04:05.000")
			if sm.Kind == linktest.SampleLoss {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render(fmt.Sprintf("✗ packet lost (seq %d)", sm.Sequence)),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render(fmt.Sprintf("! protocol error (seq %d)", sm.Sequence)),
				))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
