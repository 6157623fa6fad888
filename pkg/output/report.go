package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
)

// Kind names the role of a place by the polarities of its endpoints.
func Kind(p hbcn.Place) string {
	switch {
	case p.Src.Polarity == hbcn.Data && p.Dst.Polarity == hbcn.Data:
		return "Data Prop"
	case p.Src.Polarity == hbcn.Spacer && p.Dst.Polarity == hbcn.Spacer:
		return "Null Prop"
	case p.Src.Polarity == hbcn.Data:
		return "Data Ack"
	default:
		return "Null Ack"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

// styles are bound to the destination so that files and pipes stay free of
// escape sequences.
type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	number lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:  r.NewStyle().Bold(true),
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		number: r.NewStyle().Padding(0, 1).Align(lipgloss.Right),
	}
}

func (s styles) table(headers []string, rows [][]string, numeric func(col int) bool) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.header
			case numeric(col):
				return s.number
			default:
				return s.cell
			}
		}).
		String()
}

func tokenMark(p hbcn.Place) string {
	if p.Marked {
		return "*"
	}
	return " "
}

// WriteAnalysisReport prints the critical cycle time followed by a table
// per ranked cycle.
func WriteAnalysisReport(w io.Writer, n *hbcn.Network, rep *analyse.Report) error {
	st := newStyles(w)

	label := "Worst cycle-time"
	if rep.Depth {
		label = "Critical cycle (depth/tokens)"
	}
	if rep.Critical == nil {
		if _, err := fmt.Fprintf(w, "%s\n", st.title.Render(label+": none, the network is acyclic")); err != nil {
			return err
		}
	} else if _, err := fmt.Fprintf(w, "%s\n", st.title.Render(fmt.Sprintf("%s: %g", label, rep.CycleTime))); err != nil {
		return err
	}
	fmt.Fprintf(w, "Cycles: %d (showing %d), regions: %d cyclic of %d\n",
		rep.TotalCycles, len(rep.Cycles), rep.Regions.Cyclic, rep.Regions.Regions)

	headers := []string{"T", "Node", "Transition", "Delay", "Slack", "Time"}
	if rep.Depth {
		headers = []string{"T", "Node", "Transition", "Slack", "Time"}
	}
	numeric := func(col int) bool { return col >= 3 }

	for i, c := range rep.Cycles {
		var rows [][]string
		slack := 0.0
		for _, a := range c.Arcs {
			p := n.Place(a.ID)
			s := rep.Schedule.Slack[a.ID]
			slack += s
			row := []string{tokenMark(p), p.Src.Node, Kind(p)}
			if !rep.Depth {
				row = append(row, strconv.FormatFloat(p.Weight(), 'g', -1, 64))
			}
			row = append(row,
				strconv.FormatFloat(s, 'g', -1, 64),
				strconv.FormatFloat(rep.Schedule.Times[a.From], 'g', -1, 64))
			rows = append(rows, row)
		}
		_, err := fmt.Fprintf(w, "\nCycle %d: ratio %g, slack %g (%s / %s):\n%s\n",
			i, c.Ratio(), slack, plural(c.Len(), "transition"), plural(c.Tokens, "token"),
			st.table(headers, rows, numeric))
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteConstraintReport prints the constraint parameters and the cycles of
// the solved network, tightest first.
func WriteConstraintReport(w io.Writer, res *constrain.Result, opts analyse.Options) error {
	st := newStyles(w)
	n := res.Network()

	cycles, err := analyse.EnumerateCycles(n, opts)
	if err != nil {
		return err
	}

	type ranked struct {
		cycle *analyse.Cycle
		slack float64
	}
	list := make([]ranked, len(cycles))
	for i, c := range cycles {
		list[i].cycle = c
		for _, a := range c.Arcs {
			list[i].slack += res.Slack(a.ID)
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		if list[a].slack != list[b].slack {
			return list[a].slack < list[b].slack
		}
		return analyse.Less(list[a].cycle, list[b].cycle)
	})
	top := opts.TopCycles
	if top == 0 {
		top = analyse.DefaultTopCycles
	}
	if top > 0 && len(list) > top {
		list = list[:top]
	}

	fmt.Fprintf(w, "%s\n", st.title.Render(fmt.Sprintf("Cycle time constraint: %.3f ns", res.Params.CycleTime)))
	fmt.Fprintf(w, "Algorithm: %s, back-end: %s\n", res.Algorithm, res.Backend)
	if res.Algorithm == constrain.Pseudoclock {
		fmt.Fprintf(w, "Pseudoclock period: %.3f ns\n", res.Stretch)
	} else {
		fmt.Fprintf(w, "Stretch factor: %.3f\n", res.Stretch)
	}
	if res.Critical != nil {
		fmt.Fprintf(w, "Critical ratio: %.3f ns\n", res.Critical.Ratio())
	}
	if _, err := fmt.Fprintf(w, "Cycles: %d\n", len(cycles)); err != nil {
		return err
	}

	headers := []string{"T", "Node", "Transition", "Cost", "Min Delay", "Max Delay", "Slack", "Time"}
	numeric := func(col int) bool { return col >= 3 }
	source := res.Source()

	for i, r := range list {
		var rows [][]string
		for _, a := range r.cycle.Arcs {
			p := source.Place(a.ID)
			d := res.Delays[a.ID]
			min := 0.0
			if d.HasMin {
				min = d.Min
			}
			t := 0.0
			if res.Schedule != nil {
				t = res.Schedule.Times[a.From]
			}
			rows = append(rows, []string{
				tokenMark(p), p.Src.Node, Kind(p),
				fixed3(p.Weight()), fixed3(min), fixed3(d.Max),
				fixed3(res.Slack(a.ID)), fixed3(t),
			})
		}
		_, err := fmt.Fprintf(w, "\nCycle %d: total slack = %.3f ns (%s / %s)\n%s\n",
			i, r.slack, plural(r.cycle.Len(), "transition"), plural(r.cycle.Tokens, "token"),
			st.table(headers, rows, numeric))
		if err != nil {
			return err
		}
	}
	return nil
}
