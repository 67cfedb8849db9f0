package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/friction/pkg/types"
)

// Record kinds written to a JSONL dump.
const (
	KindProject     = "project"
	KindObservation = "observation"
	KindAction      = "action"
)

// Snapshot is the full content of a store.
type Snapshot struct {
	Projects     []types.Project
	Observations []types.Observation
	Actions      []types.ActionWithLinks
}

type record struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// Records encodes a snapshot as one JSON object per entity: projects
// first, then observations, then actions.
func Records(s Snapshot) ([]json.RawMessage, error) {
	records := make([]json.RawMessage, 0, len(s.Projects)+len(s.Observations)+len(s.Actions))
	add := func(kind string, data any) error {
		b, err := json.Marshal(record{Kind: kind, Data: data})
		if err != nil {
			return fmt.Errorf("encoding %s: %w", kind, err)
		}
		records = append(records, b)
		return nil
	}

	for _, p := range s.Projects {
		if err := add(KindProject, p); err != nil {
			return nil, err
		}
	}
	for _, o := range s.Observations {
		if err := add(KindObservation, o); err != nil {
			return nil, err
		}
	}
	for _, a := range s.Actions {
		if err := add(KindAction, a); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// WriteSnapshot encodes s and writes it to path with WriteJSONL.
func WriteSnapshot(path string, s Snapshot) error {
	records, err := Records(s)
	if err != nil {
		return err
	}
	return WriteJSONL(path, records)
}

// WriteJSONL atomically writes records to path, one per line. The data is
// written to a temp file in the same directory, synced, and renamed over
// path, so readers see either the old file or the complete new one.
func WriteJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".friction-*.jsonl.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail(fmt.Errorf("writing newline: %w", err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a dump written by WriteSnapshot. Blank lines are
// ignored; a malformed line or an unknown kind fails the read with its
// line number.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot

	f, err := os.Open(path)
	if err != nil {
		return snap, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := snap.decode(raw); err != nil {
			return Snapshot{}, fmt.Errorf("%s:%d: %w", path, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("scanning %s: %w", path, err)
	}
	return snap, nil
}

// decode appends one {kind, data} record to s.
func (s *Snapshot) decode(raw []byte) error {
	var rec struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	switch rec.Kind {
	case KindProject:
		var p types.Project
		if err := json.Unmarshal(rec.Data, &p); err != nil {
			return fmt.Errorf("decoding project: %w", err)
		}
		s.Projects = append(s.Projects, p)
	case KindObservation:
		var o types.Observation
		if err := json.Unmarshal(rec.Data, &o); err != nil {
			return fmt.Errorf("decoding observation: %w", err)
		}
		s.Observations = append(s.Observations, o)
	case KindAction:
		var a types.ActionWithLinks
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			return fmt.Errorf("decoding action: %w", err)
		}
		s.Actions = append(s.Actions, a)
	default:
		return fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	return nil
}
