package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/friction/pkg/types"
)

func TestWriteSnapshot(t *testing.T) {
	observations, actions := fixture()
	snap := Snapshot{
		Projects:     []types.Project{{ID: 1, Name: "acme/widgets", CreatedAt: day(1)}},
		Observations: observations,
		Actions:      actions,
	}

	path := filepath.Join(t.TempDir(), "friction.jsonl")
	require.NoError(t, WriteSnapshot(path, snap))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, "acme/widgets", got.Projects[0].Name)
	require.Len(t, got.Observations, len(observations))
	for i := range observations {
		assert.Equal(t, observations[i].ID, got.Observations[i].ID)
		assert.Equal(t, observations[i].Text, got.Observations[i].Text)
		assert.Equal(t, observations[i].Disposition, got.Observations[i].Disposition)
	}
	require.Len(t, got.Actions, len(actions))
	last := got.Actions[len(got.Actions)-1]
	assert.Equal(t, []int64{2, 4}, last.ObservationIDs)
	assert.Equal(t, "Split CI jobs", last.Description)
}

func TestWriteSnapshot_RecordOrder(t *testing.T) {
	observations, actions := fixture()
	path := filepath.Join(t.TempDir(), "friction.jsonl")
	require.NoError(t, WriteSnapshot(path, Snapshot{
		Projects:     []types.Project{{ID: 1, Name: "acme/widgets", CreatedAt: day(1)}},
		Observations: observations,
		Actions:      actions,
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	kinds := make([]string, len(lines))
	for i, line := range lines {
		var r struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		kinds[i] = r.Kind
	}
	assert.Equal(t, []string{
		KindProject,
		KindObservation, KindObservation, KindObservation, KindObservation,
		KindAction, KindAction,
	}, kinds)
}

func TestWriteJSONL_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, WriteJSONL(path, []json.RawMessage{
		json.RawMessage(`{"a":1}`),
		json.RawMessage(`{"b":2}`),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteJSONL_MissingDirectory(t *testing.T) {
	err := WriteJSONL(filepath.Join(t.TempDir(), "missing", "dump.jsonl"), nil)
	assert.Error(t, err)
}

func TestReadSnapshot_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.jsonl")
	content := "\n" +
		`{"kind":"project","data":{"id":3,"name":"acme/a"}}` + "\n\n" +
		`{"kind":"observation","data":{"id":7,"text":"slow","source":"human","disposition":"open"}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, snap.Projects, 1)
	require.Len(t, snap.Observations, 1)
	assert.Equal(t, int64(7), snap.Observations[0].ID)
	assert.Empty(t, snap.Actions)
}

func TestReadSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed line", "{\"kind\":\"project\",\"data\":{}}\nnot json\n", ":2: decoding record"},
		{"unknown kind", `{"kind":"ticket","data":{}}`, `unknown record kind "ticket"`},
		{"bad data", `{"kind":"observation","data":{"id":"x"}}`, "decoding observation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dump.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := ReadSnapshot(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
