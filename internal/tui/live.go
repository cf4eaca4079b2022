// Package tui shows a running simulation in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/netsim/internal/report"
	"github.com/san-kum/netsim/internal/sim"
)

// Feed forwards step events to the view. It never blocks the
// simulation; events arriving while the buffer is full are dropped.
type Feed struct {
	ch      chan sim.StepInfo
	dropped atomic.Int64
}

func NewFeed(buffer int) *Feed {
	return &Feed{ch: make(chan sim.StepInfo, max(buffer, 1))}
}

func (f *Feed) OnStep(info sim.StepInfo) {
	select {
	case f.ch <- info:
	default:
		f.dropped.Add(1)
	}
}

func (f *Feed) Dropped() int64 { return f.dropped.Load() }

type (
	stepMsg sim.StepInfo
	doneMsg struct {
		res *sim.Result
		err error
	}
	tickMsg time.Time
)

func waitStep(ch <-chan sim.StepInfo) tea.Cmd {
	return func() tea.Msg {
		info, ok := <-ch
		if !ok {
			return nil
		}
		return stepMsg(info)
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the live run view.
type Model struct {
	title string
	steps int
	axis  int
	feed  *Feed

	last    sim.StepInfo
	force   []float64
	edges   []float64
	initial int
	broken  int

	started time.Time
	elapsed time.Duration
	done    bool
	res     *sim.Result
	err     error
	quit    bool

	width, height int
}

func NewModel(title string, steps, axis int, feed *Feed) Model {
	return Model{
		title:   title,
		steps:   steps,
		axis:    axis,
		feed:    feed,
		started: time.Now(),
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitStep(m.feed.ch), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case stepMsg:
		m.observe(sim.StepInfo(msg))
		return m, waitStep(m.feed.ch)
	case doneMsg:
		m.done = true
		m.res, m.err = msg.res, msg.err
		m.elapsed = time.Since(m.started)
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.elapsed = time.Since(m.started)
		return m, tick()
	}
	return m, nil
}

func (m *Model) observe(info sim.StepInfo) {
	if m.initial == 0 {
		m.initial = info.Edges + info.Broken
	}
	m.broken += info.Broken
	m.last = info
	m.edges = append(m.edges, float64(info.Edges))
	if m.axis < len(info.Force) {
		m.force = append(m.force, info.Force[m.axis])
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(report.Title.Render(m.title))
	b.WriteString("  " + m.status() + "\n\n")

	frac := 0.0
	if m.steps > 0 {
		frac = float64(m.last.Step) / float64(m.steps)
	}
	b.WriteString(report.ProgressBar(frac, 40))
	b.WriteString(fmt.Sprintf(" %d/%d\n\n", m.last.Step, m.steps))

	metrics := [][2]string{
		{"displacement", fmt.Sprintf("%.4g", m.last.Displacement)},
		{"bonds", fmt.Sprintf("%d", m.last.Edges)},
		{"broken", fmt.Sprintf("%d", m.broken)},
		{"iterations", fmt.Sprintf("%d", m.last.Iters)},
		{"residual", fmt.Sprintf("%.3g", m.last.Residual)},
		{"elapsed", m.elapsed.Round(100 * time.Millisecond).String()},
	}
	for _, kv := range metrics {
		b.WriteString(report.Label.Render(kv[0]) + report.Value.Render(kv[1]) + "\n")
	}
	b.WriteString("\n")

	plotWidth := max(m.width-12, 20)
	if len(m.force) > 1 {
		b.WriteString(report.Plot(m.force, "plate force", plotWidth, 8) + "\n\n")
	}
	if len(m.edges) > 1 {
		b.WriteString(report.Plot(m.edges, "remaining bonds", plotWidth, 6) + "\n\n")
	}
	if m.done && m.res != nil && m.res.Final != nil && m.res.Final.Dim >= 2 {
		c := NewCanvas(min(plotWidth, 60), 16)
		c.DrawNetwork(m.res.Final)
		b.WriteString(report.Panel.Render(c.String()) + "\n")
	}
	if d := m.feed.Dropped(); d > 0 {
		b.WriteString(report.Subtle.Render(fmt.Sprintf("%d step events not shown", d)) + "\n")
	}
	b.WriteString(report.KeyHint.Render("q quit"))
	return b.String()
}

func (m Model) status() string {
	switch {
	case !m.done:
		return report.Good.Render("running")
	case m.err != nil:
		return report.Bad.Render("failed: " + m.err.Error())
	case m.res == nil:
		return report.Subtle.Render("finished")
	case m.res.Aborted:
		return report.Bad.Render("aborted: " + m.res.StopReason)
	case m.res.Stopped:
		return report.Warn.Render("halted: " + m.res.StopReason)
	}
	return report.Good.Render("completed")
}

// Run starts start in the background and shows its progress until the
// user quits. Quitting early cancels the simulation.
func Run(ctx context.Context, title string, steps, axis int,
	start func(context.Context, sim.Observer) (*sim.Result, error)) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := NewFeed(256)
	p := tea.NewProgram(NewModel(title, steps, axis, feed), tea.WithContext(ctx))

	type outcome struct {
		res *sim.Result
		err error
	}
	results := make(chan outcome, 1)
	go func() {
		res, err := start(ctx, feed)
		results <- outcome{res, err}
		p.Send(doneMsg{res, err})
	}()

	_, runErr := p.Run()
	cancel()
	out := <-results
	if out.err == nil && runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return out.res, runErr
	}
	return out.res, out.err
}
