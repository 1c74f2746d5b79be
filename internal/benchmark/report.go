package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteTable writes rep as an aligned table followed by the summary.
func WriteTable(w io.Writer, rep *Report) error {
	if rep.Source != "" {
		if _, err := fmt.Fprintf(w, "Scenarios file: %s\n\n", rep.Source); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tName\tSex\tR\tP\tkm/h\tGap\tDynDraft%\tLegDraft%\tDynCdA\tLegCdA\tDynW\tLegW\tDiffW\t")
	for _, r := range rep.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f\t%.2f\t%.1f\t%.1f\t%.4f\t%.4f\t%.1f\t%.1f\t%+.1f\t\n",
			r.ID, truncate(r.Name, 28), truncate(r.Sex, 6), r.Riders, r.Position, r.SpeedKmh, r.GapM,
			r.DynDraftPct, r.LegDraftPct, r.DynCdA, r.LegCdA, r.DynPowerW, r.LegPowerW, r.PowerDiffW)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := rep.Summary
	_, err := fmt.Fprintf(w, "%s\nScenario count : %d\nMean dyn power : %.2f W\nMean leg power : %.2f W\n"+
		"Mean diff      : %+.2f W (sd %.2f)\nMin / Max diff : %+.2f W / %+.2f W\nDyn > Leg      : %d\nDyn < Leg      : %d\n",
		strings.Repeat("-", 72), s.ScenarioCount, s.MeanDynPowerW, s.MeanLegPowerW,
		s.MeanDiffW, s.StdDevDiffW, s.MinDiffW, s.MaxDiffW, s.DynGtLegCount, s.DynLtLegCount)
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
