package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"

	"github.com/dd0wney/cluso-hbcn/pkg/analyse"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
)

var unsafeIdent = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// vcdCode returns the short identifier of the i-th variable, drawn from the
// printable ASCII range.
func vcdCode(i int) string {
	const first, span = '!', '~' - '!' + 1
	code := []byte{byte(first + i%span)}
	for i /= span; i > 0; i /= span {
		i--
		code = append(code, byte(first+i%span))
	}
	return string(code)
}

// WriteVCD dumps one period of the schedule as a waveform: every circuit
// node is a wire that rises on its data transition and falls on its spacer
// transition. Times are written in picoseconds, the schedule's unit being
// nanoseconds.
func WriteVCD(w io.Writer, n *hbcn.Network, s *analyse.Schedule) error {
	if s == nil {
		return errors.New("vcd: no schedule")
	}
	if len(s.Times) != n.NumTransitions() {
		return fmt.Errorf("vcd: schedule has %d times for %d transitions", len(s.Times), n.NumTransitions())
	}

	codes := make(map[string]string)
	var nodes []string
	for _, t := range n.Transitions() {
		if _, ok := codes[t.Node]; !ok {
			codes[t.Node] = vcdCode(len(nodes))
			nodes = append(nodes, t.Node)
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "$timescale 1 ps $end")
	fmt.Fprintln(bw, "$scope module top $end")
	for _, node := range nodes {
		fmt.Fprintf(bw, "$var wire 1 %s %s $end\n", codes[node], unsafeIdent.ReplaceAllString(node, "_"))
	}
	fmt.Fprintln(bw, "$upscope $end")
	fmt.Fprintln(bw, "$enddefinitions $end")
	fmt.Fprintln(bw, "$dumpvars")
	for _, node := range nodes {
		fmt.Fprintf(bw, "0%s\n", codes[node])
	}
	fmt.Fprintln(bw, "$end")

	order := make([]int, n.NumTransitions())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Times[order[a]] < s.Times[order[b]]
	})

	last := int64(-1)
	for _, i := range order {
		ps := int64(math.Round(math.Abs(s.Times[i]) * 1000))
		if ps != last {
			fmt.Fprintf(bw, "#%d\n", ps)
			last = ps
		}
		t := n.Transition(i)
		value := '0'
		if t.Polarity == hbcn.Data {
			value = '1'
		}
		fmt.Fprintf(bw, "%c%s\n", value, codes[t.Node])
	}
	return bw.Flush()
}
