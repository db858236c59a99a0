package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/route"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Width(14)

	statusBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginLeft(2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

var tuiLevels = []constraints.AccessLevel{
	constraints.LevelPublic,
	constraints.LevelStudent,
	constraints.LevelStaff,
	constraints.LevelAdmin,
}

type keyMap struct {
	Next     key.Binding
	Enter    key.Binding
	Level    key.Binding
	StepFree key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "switch field"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "find route"),
	),
	Level: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "access level"),
	),
	StepFree: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "step-free"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Enter, k.Level, k.StepFree, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Enter},
		{k.Level, k.StepFree},
		{k.Quit},
	}
}

// tuiModel is an interactive route explorer over one navigator.
type tuiModel struct {
	ctx        context.Context
	nav        *navigator.Navigator
	inputs     []textinput.Model
	focus      int
	level      int
	stepFree   bool
	legs       table.Model
	help       help.Model
	keys       keyMap
	width      int
	route      *route.Route
	message    string
	messageErr bool
}

func newTUIModel(ctx context.Context, nav *navigator.Navigator) tuiModel {
	inputs := make([]textinput.Model, 2)
	for i, placeholder := range []string{"origin node ID", "destination node ID"} {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 128
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[0].Focus()

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Layer", Width: 10},
			{Title: "Cost", Width: 8},
			{Title: "Instruction", Width: 50},
		}),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	t.SetStyles(s)

	return tuiModel{
		ctx:    ctx,
		nav:    nav,
		inputs: inputs,
		legs:   t,
		help:   help.New(),
		keys:   keys,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus()
		case key.Matches(msg, m.keys.Level):
			m.level = (m.level + 1) % len(tuiLevels)
			return m, nil
		case key.Matches(msg, m.keys.StepFree):
			m.stepFree = !m.stepFree
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			m.findRoute()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *tuiModel) requester() constraints.RequesterContext {
	return constraints.RequesterContext{AccessLevel: tuiLevels[m.level], StepFree: m.stepFree}
}

func (m *tuiModel) findRoute() {
	origin := strings.TrimSpace(m.inputs[0].Value())
	dest := strings.TrimSpace(m.inputs[1].Value())
	if origin == "" || dest == "" {
		m.setError(errors.New("origin and destination are required"))
		return
	}

	rt, err := m.nav.FindPath(m.ctx, navigator.Request{
		OriginID:  origin,
		DestID:    dest,
		Requester: m.requester(),
	})
	if err != nil {
		m.route = nil
		m.legs.SetRows(nil)
		m.setError(err)
		return
	}

	m.route = rt
	rows := make([]table.Row, len(rt.Legs))
	for i, leg := range rt.Legs {
		rows[i] = table.Row{fmt.Sprint(i + 1), string(leg.Layer), leg.Cost.String(), leg.Instruction}
	}
	m.legs.SetRows(rows)
	m.message = fmt.Sprintf("%d legs, total cost %s (graph v%d)", len(rt.Legs), rt.TotalCost, rt.GraphVersion)
	m.messageErr = false
}

func (m *tuiModel) setError(err error) {
	m.message = err.Error()
	m.messageErr = true
}

func (m tuiModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Campus Navigator"))
	s.WriteString("\n\n")

	stats := m.nav.Stats()
	s.WriteString(statusBoxStyle.Render(fmt.Sprintf(
		"graph v%d  %d nodes  %d edges  %d constraints\nlevel %s  step-free %t",
		stats.GraphVersion, stats.Nodes, stats.Edges, stats.Constraints,
		tuiLevels[m.level], m.stepFree)))
	s.WriteString("\n")

	var form strings.Builder
	for i, label := range []string{"From", "To"} {
		form.WriteString(labelStyle.Render(label))
		form.WriteString(m.inputs[i].View())
		form.WriteString("\n")
	}
	s.WriteString(contentStyle.Render(form.String()))

	if m.route != nil {
		s.WriteString("\n")
		s.WriteString(contentStyle.Render(m.legs.View()))
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return s.String()
}
