package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
	"github.com/dd0wney/cluso-hbcn/pkg/output"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

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

type view int

const (
	summaryView view = iota
	cyclesView
	placesView
	constrainView
	numViews
)

var viewNames = []string{"Summary", "Cycles", "Places", "Constrain"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select / solve"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down},
		{k.Quit},
	}
}

type model struct {
	path        string
	network     *hbcn.Network
	report      *analyse.Report
	engine      *constrain.Engine
	currentView view
	cycleTable  table.Model
	placeTable  table.Model
	selected    int
	input       textinput.Model
	result      *constrain.Result
	solving     bool
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
}

// solvedMsg carries the outcome of a constraint run.
type solvedMsg struct {
	result  *constrain.Result
	err     error
	elapsed time.Duration
}

func newTable(columns []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)
	return t
}

func cycleRows(rep *analyse.Report) []table.Row {
	rows := make([]table.Row, 0, len(rep.Cycles))
	for i, c := range rep.Cycles {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(c.Ratio(), 'g', 6, 64),
			strconv.Itoa(c.Len()),
			strconv.Itoa(c.Tokens),
			c.Transitions[0].String(),
		})
	}
	return rows
}

// placeRows lists the places of cycle c, or of the whole network when c is
// nil.
func placeRows(n *hbcn.Network, sched *analyse.Schedule, c *analyse.Cycle) []table.Row {
	ids := make([]int, 0, n.NumPlaces())
	if c != nil {
		ids = c.Places()
	} else {
		for i := 0; i < n.NumPlaces(); i++ {
			ids = append(ids, i)
		}
	}

	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		p := n.Place(id)
		slack := ""
		if sched != nil {
			slack = strconv.FormatFloat(sched.Slack[id], 'g', 6, 64)
		}
		token := ""
		if p.Marked {
			token = "*"
		}
		rows = append(rows, table.Row{
			token,
			p.Src.String(),
			p.Dst.String(),
			output.Kind(p),
			strconv.FormatFloat(p.Weight(), 'g', 6, 64),
			slack,
		})
	}
	return rows
}

func initialModel(path string, n *hbcn.Network, rep *analyse.Report, engine *constrain.Engine) model {
	ti := textinput.New()
	ti.Placeholder = "50 pseudoclock"
	ti.CharLimit = 40
	ti.Width = 30

	cycles := newTable([]table.Column{
		{Title: "#", Width: 4},
		{Title: "Ratio", Width: 10},
		{Title: "Places", Width: 7},
		{Title: "Tokens", Width: 7},
		{Title: "Start", Width: 30},
	}, cycleRows(rep))

	places := newTable([]table.Column{
		{Title: "T", Width: 2},
		{Title: "Source", Width: 24},
		{Title: "Target", Width: 24},
		{Title: "Kind", Width: 10},
		{Title: "Delay", Width: 10},
		{Title: "Slack", Width: 10},
	}, placeRows(n, rep.Schedule, nil))

	return model{
		path:        path,
		network:     n,
		report:      rep,
		engine:      engine,
		currentView: summaryView,
		cycleTable:  cycles,
		placeTable:  places,
		selected:    -1,
		input:       ti,
		help:        help.New(),
		keys:        keys,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case solvedMsg:
		m.solving = false
		if msg.err != nil {
			m.result = nil
			m.message = msg.err.Error()
			m.messageErr = true
			return m, nil
		}
		m.result = msg.result
		m.message = fmt.Sprintf("Solved with %s in %s", msg.result.Backend, msg.elapsed.Round(time.Millisecond))
		m.messageErr = false
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % numViews)
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.setView((m.currentView + numViews - 1) % numViews)
			return m, nil

		case key.Matches(msg, m.keys.Enter):
			switch m.currentView {
			case cyclesView:
				m.selectCycle(m.cycleTable.Cursor())
				return m, nil
			case constrainView:
				if m.solving {
					return m, nil
				}
				return m, m.solve()
			}
		}
	}

	// Update focused component
	switch m.currentView {
	case cyclesView:
		m.cycleTable, cmd = m.cycleTable.Update(msg)
		cmds = append(cmds, cmd)
	case placesView:
		m.placeTable, cmd = m.placeTable.Update(msg)
		cmds = append(cmds, cmd)
	case constrainView:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) setView(v view) {
	m.currentView = v
	if v == constrainView {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

// selectCycle narrows the place table to cycle i, or resets it when i is
// already selected.
func (m *model) selectCycle(i int) {
	if i < 0 || i >= len(m.report.Cycles) || i == m.selected {
		m.selected = -1
		m.placeTable.SetRows(placeRows(m.network, m.report.Schedule, nil))
		m.message = "Showing all places"
		m.messageErr = false
		return
	}
	m.selected = i
	m.placeTable.SetRows(placeRows(m.network, m.report.Schedule, m.report.Cycles[i]))
	m.placeTable.SetCursor(0)
	m.currentView = placesView
	m.message = fmt.Sprintf("Showing cycle %d", i+1)
	m.messageErr = false
}

// parseRequest reads "<cycle time> [algorithm]".
func parseRequest(s string) (constrain.Params, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return constrain.Params{}, fmt.Errorf("enter a cycle time and optionally an algorithm")
	}
	t, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return constrain.Params{}, fmt.Errorf("invalid cycle time %q", fields[0])
	}
	params := constrain.Params{CycleTime: t, Algorithm: constrain.Proportional}
	if len(fields) == 2 {
		params.Algorithm = constrain.Algorithm(fields[1])
	}
	return params, nil
}

func (m *model) solve() tea.Cmd {
	params, err := parseRequest(m.input.Value())
	if err != nil {
		m.message = err.Error()
		m.messageErr = true
		return nil
	}
	m.solving = true
	m.message = fmt.Sprintf("Solving for cycle time %g...", params.CycleTime)
	m.messageErr = false

	engine, n := m.engine, m.network
	return func() tea.Msg {
		start := time.Now()
		res, err := engine.Constrain(context.Background(), n, params)
		return solvedMsg{result: res, err: err, elapsed: time.Since(start)}
	}
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("HBCN Browser: " + m.path))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case summaryView:
		s.WriteString(m.renderSummary())
	case cyclesView:
		s.WriteString(m.renderTable("Cycles by criticality", m.cycleTable))
	case placesView:
		title := "Places"
		if m.selected >= 0 {
			title = fmt.Sprintf("Places of cycle %d", m.selected+1)
		}
		s.WriteString(m.renderTable(title, m.placeTable))
	case constrainView:
		s.WriteString(m.renderConstrain())
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

func (m model) renderTabs() string {
	rendered := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		if view(i) == m.currentView {
			rendered = append(rendered, activeTabStyle.Render(name))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m model) renderSummary() string {
	critical := "none (acyclic)"
	if m.report.Critical != nil {
		critical = fmt.Sprintf("%g", m.report.CycleTime)
	}

	network := fmt.Sprintf(`Network
───────────────
Transitions: %d
Places:      %d
Tokens:      %d`,
		m.network.NumTransitions(),
		m.network.NumPlaces(),
		m.network.MarkedPlaces(),
	)

	cycles := fmt.Sprintf(`Cycles
───────────────
Critical ratio: %s
Enumerated:     %d
Listed:         %d
Cyclic regions: %d`,
		critical,
		m.report.TotalCycles,
		len(m.report.Cycles),
		m.report.Regions.Cyclic,
	)

	return contentStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Top, statsBoxStyle.Render(network), statsBoxStyle.Render(cycles)),
	)
}

func (m model) renderTable(title string, t table.Model) string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(title))
	s.WriteString("\n\n")
	s.WriteString(t.View())
	return contentStyle.Render(s.String())
}

func (m model) renderConstrain() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Constraint Generation"))
	s.WriteString("\n\n")
	s.WriteString("Cycle time and algorithm (proportional or pseudoclock):\n\n")
	s.WriteString(m.input.View())

	if res := m.result; res != nil {
		stretch := fmt.Sprintf("Stretch factor: %.3f", res.Stretch)
		if res.Algorithm == constrain.Pseudoclock {
			stretch = fmt.Sprintf("Pseudoclock period: %.3f", res.Stretch)
		}
		s.WriteString("\n\n")
		s.WriteString(statsBoxStyle.Render(fmt.Sprintf("Cycle time: %g\nAlgorithm: %s\n%s\nPath constraints: %d",
			res.Params.CycleTime, res.Algorithm, stretch, len(res.PathConstraints()))))
	}
	return contentStyle.Render(s.String())
}
