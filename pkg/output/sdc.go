package output

import (
	"bufio"
	"fmt"
	"io"
	"regexp"

	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
	"github.com/dd0wney/cluso-hbcn/pkg/hbcn"
)

var (
	indexRe    = regexp.MustCompile(`^(.+)(\[[0-9]+\])`)
	instanceRe = regexp.MustCompile(`^port:([^/]+)/(.+)`)
	instIdxRe  = regexp.MustCompile(`^(.+)\[([0-9]+)\]`)
)

// portWildcard matches the rails of a port and, for a bus bit, its
// acknowledge.
func portWildcard(name string) string {
	if m := indexRe.FindStringSubmatch(name); m != nil {
		return fmt.Sprintf("%s_*%s %s_ack", m[1], m[2], m[1])
	}
	return name + "_*"
}

// portInstance names the cell instance that drives a port.
func portInstance(name string) string {
	s := "inst:" + name
	if m := instanceRe.FindStringSubmatch(name); m != nil {
		s = fmt.Sprintf("inst:%s/i%s", m[1], m[2])
	}
	if m := instIdxRe.FindStringSubmatch(s); m != nil {
		s = m[1] + "_" + m[2]
	}
	return s
}

func srcRails(name string, class hbcn.NodeClass) string {
	if class == hbcn.Port {
		return fmt.Sprintf("[get_ports [vfind {%s}] -filter {direction == in}]", portWildcard(name))
	}
	return fmt.Sprintf("[get_pins -of_objects [get_cells [vfind {%s/*}] -filter {is_sequential == true}] -filter {direction == out}]", name)
}

func dstRails(name string, class hbcn.NodeClass) string {
	if class == hbcn.Port {
		return fmt.Sprintf("[list [get_ports [vfind {%s}] -filter {direction == out}] [get_pins -of_objects [get_cells [vfind {%s/*}]] -filter {direction == in}]]",
			portWildcard(name), portInstance(name))
	}
	return fmt.Sprintf("[get_pins -of_objects [get_cells [vfind {%s/*}] -filter {is_sequential == true}] -filter {direction == in}]", name)
}

// WriteSDC writes path constraints as SDC commands. A pseudoclock result
// also declares its clock, and maxima equal to its period are left to the
// clock.
func WriteSDC(w io.Writer, res *constrain.Result) error {
	bw := bufio.NewWriter(w)
	n := res.Source()
	period := res.Period()

	if period > 0 {
		fmt.Fprintf(bw, "create_clock -period %.3f [get_port clk]\n", period)
	}
	for _, pc := range res.PathConstraints() {
		src := srcRails(pc.From, n.Class(pc.From))
		dst := dstRails(pc.To, n.Class(pc.To))
		if pc.Delay.HasMin {
			fmt.Fprintf(bw, "set_min_delay %.3f \\\n\t-through %s \\\n\t-through %s\n", pc.Delay.Min, src, dst)
		}
		if period == 0 || pc.Delay.Max != period {
			fmt.Fprintf(bw, "set_max_delay %.3f \\\n\t-through %s \\\n\t-through %s\n", pc.Delay.Max, src, dst)
		}
	}
	return bw.Flush()
}
