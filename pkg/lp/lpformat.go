package lp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// termsPerLine keeps lines of the LP file short.
const termsPerLine = 8

// columnName is the name of variable v in LP files. Model names are only
// kept as comments because LP syntax restricts identifiers.
func columnName(v VarID) string {
	return "x" + strconv.Itoa(int(v))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteLP writes the model in CPLEX LP format.
func WriteLP(w io.Writer, m *Model) error {
	if m.NumVariables() == 0 {
		return fmt.Errorf("lp: cannot write a model without variables")
	}
	bw := bufio.NewWriter(w)

	if m.Name != "" {
		fmt.Fprintf(bw, "\\ %s\n", m.Name)
	}
	for i, v := range m.vars {
		if v.Name != "" {
			fmt.Fprintf(bw, "\\ %s = %s\n", columnName(VarID(i)), v.Name)
		}
	}

	if m.maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	bw.WriteString(" obj: ")
	writeTerms(bw, m.objective)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	for i, c := range m.constraints {
		fmt.Fprintf(bw, " c%d: ", i)
		writeTerms(bw, c.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNumber(c.RHS))
	}

	bw.WriteString("Bounds\n")
	for i, v := range m.vars {
		name := columnName(VarID(i))
		lower, upper := math.IsInf(v.Lower, -1), math.IsInf(v.Upper, 1)
		switch {
		case lower && upper:
			fmt.Fprintf(bw, " %s free\n", name)
		case v.Lower == v.Upper:
			fmt.Fprintf(bw, " %s = %s\n", name, formatNumber(v.Lower))
		case lower:
			fmt.Fprintf(bw, " -inf <= %s <= %s\n", name, formatNumber(v.Upper))
		case upper:
			if v.Lower != 0 {
				fmt.Fprintf(bw, " %s >= %s\n", name, formatNumber(v.Lower))
			}
		default:
			fmt.Fprintf(bw, " %s <= %s <= %s\n", formatNumber(v.Lower), name, formatNumber(v.Upper))
		}
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeTerms(w *bufio.Writer, terms []Term) {
	if len(terms) == 0 {
		w.WriteString("0 x0")
		return
	}
	for i, t := range terms {
		coef := t.Coef
		switch {
		case i == 0 && coef < 0:
			w.WriteString("- ")
			coef = -coef
		case i == 0:
		case coef < 0:
			w.WriteString(" - ")
			coef = -coef
		default:
			w.WriteString(" + ")
		}
		if i > 0 && i%termsPerLine == 0 {
			w.WriteString("\n   ")
		}
		w.WriteString(formatNumber(coef))
		w.WriteByte(' ')
		w.WriteString(columnName(t.Var))
	}
}

// parseColumnName inverts columnName.
func parseColumnName(s string) (VarID, bool) {
	if !strings.HasPrefix(s, "x") {
		return 0, false
	}
	i, err := strconv.Atoi(s[1:])
	if err != nil || i < 0 {
		return 0, false
	}
	return VarID(i), true
}
