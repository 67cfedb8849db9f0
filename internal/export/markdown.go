// Package export renders the observation and action log as a Markdown
// report or a JSONL dump.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/friction/pkg/types"
)

// ReportTitle heads every Markdown report.
const ReportTitle = "Friction report"

const dateLayout = "2006-01-02"

var titleCaser = cases.Title(language.English)

// DispositionHeading returns the section heading for a disposition,
// e.g. "Wont Fix" for wont_fix.
func DispositionHeading(disposition string) string {
	return titleCaser.String(strings.ReplaceAll(disposition, "_", " "))
}

// Markdown writes a report with one section per disposition in report
// order. Observations keep the order they are given in; each is followed
// by the actions linked to it. Sections without observations are omitted.
func Markdown(w io.Writer, observations []types.Observation, actions []types.ActionWithLinks) error {
	byObservation := make(map[int64][]types.Action)
	for _, a := range actions {
		for _, id := range a.ObservationIDs {
			byObservation[id] = append(byObservation[id], a.Action)
		}
	}

	groups := make(map[string][]types.Observation)
	for _, o := range observations {
		groups[o.Disposition] = append(groups[o.Disposition], o)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n", ReportTitle)
	if len(observations) == 0 {
		fmt.Fprintf(bw, "\nNo observations.\n")
	}

	for _, d := range types.Dispositions {
		group := groups[d]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(bw, "\n## %s (%d)\n\n", DispositionHeading(d), len(group))
		for _, o := range group {
			writeObservation(bw, o, byObservation[o.ID])
		}
	}
	return bw.Flush()
}

func writeObservation(w io.Writer, o types.Observation, actions []types.Action) {
	fmt.Fprintf(w, "- **#%d** %s\n", o.ID, singleLine(o.Text))

	meta := []string{"source: " + o.Source}
	if p := o.ProjectName(); p != "" {
		meta = append(meta, "project: "+p)
	}
	meta = append(meta, "created: "+o.CreatedAt.Format(dateLayout))
	fmt.Fprintf(w, "  - %s\n", strings.Join(meta, ", "))

	for _, a := range actions {
		line := fmt.Sprintf("  - action #%d (%s): %s", a.ID, a.CreatedAt.Format(dateLayout), singleLine(a.Description))
		if a.Reference != nil && *a.Reference != "" {
			line += " [" + *a.Reference + "]"
		}
		fmt.Fprintln(w, line)
	}
}

// singleLine folds line breaks so a value stays inside one list item.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
