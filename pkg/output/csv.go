// Package output renders constraint and analysis results in the formats
// consumed by synthesis tools, waveform viewers and people.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dd0wney/cluso-hbcn/pkg/constrain"
)

// CSVHeader is the first record of every CSV export.
var CSVHeader = []string{"src", "dst", "cost", "max_delay", "min_delay"}

func fixed3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// WriteCSV writes one record per place: its endpoints, its cost in the
// source network and its solved delays. The minimum is left empty when the
// place has none.
func WriteCSV(w io.Writer, res *constrain.Result) (retErr error) {
	cw := csv.NewWriter(w)
	defer func() {
		cw.Flush()
		if err := cw.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("csv flush: %w", err)
		}
	}()

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, p := range res.Source().Places() {
		d := res.Delays[i]
		min := ""
		if d.HasMin {
			min = fixed3(d.Min)
		}
		record := []string{
			p.Src.String(),
			p.Dst.String(),
			strconv.FormatFloat(p.Weight(), 'f', 0, 64),
			fixed3(d.Max),
			min,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return nil
}
