package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/friction/internal/scanner"
	"github.com/mesh-intelligence/friction/pkg/types"
)

const timeLayout = "2006-01-02 15:04"

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func printObservation(w io.Writer, o types.Observation) {
	fmt.Fprintf(w, "#%d [%s] %s\n", o.ID, o.Disposition, o.Text)
	meta := "    source: " + o.Source
	if p := o.ProjectName(); p != "" {
		meta += "  project: " + p
	}
	meta += "  created: " + o.CreatedAt.Local().Format(timeLayout)
	if !o.UpdatedAt.Equal(o.CreatedAt) {
		meta += "  updated: " + o.UpdatedAt.Local().Format(timeLayout)
	}
	fmt.Fprintln(w, meta)
}

func printAction(w io.Writer, a types.Action, observationIDs []int64) {
	fmt.Fprintf(w, "action #%d %s\n", a.ID, a.Description)
	meta := "    source: " + a.Source
	if a.Project != nil {
		meta += "  project: " + *a.Project
	}
	if a.Reference != nil {
		meta += "  ref: " + *a.Reference
	}
	if observationIDs != nil {
		meta += "  observations: " + joinIDs(observationIDs)
	}
	meta += "  created: " + a.CreatedAt.Local().Format(timeLayout)
	fmt.Fprintln(w, meta)
}

func printProject(w io.Writer, p types.Project) {
	fmt.Fprintf(w, "%d\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.Local().Format(time.DateOnly))
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// parseID parses a positive integer id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("invalid id %q", arg))
	}
	return id, nil
}

// newScanner builds a repository scanner from the scan.* settings.
func (a *app) newScanner() *scanner.Scanner {
	return scanner.New(
		scanner.WithHost(a.cfg.GetString(cfgKeyScanHost)),
		scanner.WithTimeout(a.cfg.GetDuration(cfgKeyScanTimeout)),
		scanner.WithWorkers(a.cfg.GetInt(cfgKeyScanWorkers)),
		scanner.WithLogger(a.logger),
	)
}
