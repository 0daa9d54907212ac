package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/devalang/core/internal/collector"
	"github.com/devalang/core/internal/engine"
	"github.com/devalang/core/internal/statement"
)

type progressTickMsg float64
type renderDoneMsg struct {
	result engine.Result
	diags  []collector.Diagnostic
	err    error
}

type progressModel struct {
	bar    progress.Model
	width  int
	height int
	done   bool
	result engine.Result
	diags  []collector.Diagnostic
	err    error
	done2  chan renderDoneMsg
}

func newProgressModel(done chan renderDoneMsg) progressModel {
	start, _ := colorful.Hex("#5A56E0")
	end, _ := colorful.Hex("#EE6FF8")
	bar := progress.New(progress.WithGradient(start.Hex(), end.Hex()))
	bar.Width = 50
	return progressModel{bar: bar, done2: done}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(waitForRender(m.done2), tickProgress())
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 10
		return m, nil

	case progressTickMsg:
		cmd := m.bar.SetPercent(float64(msg))
		if m.done {
			return m, cmd
		}
		return m, tea.Batch(cmd, tickProgress())

	case renderDoneMsg:
		m.done = true
		m.result = msg.result
		m.diags = msg.diags
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	detail := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
		return errStyle.Render("render failed: "+m.err.Error()) + "\n"
	}
	if m.done {
		okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
		return okStyle.Render(fmt.Sprintf("wrote %s (%.2fs)", m.result.OutputPath, m.result.DurationSeconds)) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title.Render("Rendering..."),
		"",
		m.bar.View(),
		"",
		detail.Render("Ctrl+C to cancel"),
	) + "\n"
}

func tickProgress() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		v := 0.5 + 0.45*math.Sin(float64(time.Now().UnixMilli())/300.0)
		return progressTickMsg(v)
	})
}

func waitForRender(done chan renderDoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}

func runWithProgressView(ctx context.Context, program []statement.Statement, opts engine.Options) error {
	done := make(chan renderDoneMsg, 1)
	go func() {
		result, diags, err := engine.Render(ctx, program, opts)
		done <- renderDoneMsg{result: result, diags: diags, err: err}
	}()

	p := tea.NewProgram(newProgressModel(done))
	finalModel, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(progressModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
