package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/friction/pkg/types"
)

func strp(s string) *string { return &s }

func TestObservations_Create(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	observations := NewObservations(b)

	obs, err := observations.Create(ctx, "tests are flaky", "", "acme/widgets")
	require.NoError(t, err)

	assert.NotZero(t, obs.ID)
	assert.Equal(t, "tests are flaky", obs.Text)
	assert.Equal(t, types.DefaultSource, obs.Source)
	assert.Equal(t, types.DispositionOpen, obs.Disposition)
	assert.Nil(t, obs.Tags)
	require.NotNil(t, obs.Project)
	assert.Equal(t, "acme/widgets", *obs.Project)
	assert.Equal(t, obs.CreatedAt, obs.UpdatedAt)
	assert.Equal(t, time.UTC, obs.CreatedAt.Location())

	list, err := NewProjects(b).List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "project is registered on create")
	assert.Equal(t, "acme/widgets", list[0].Name)

	agent, err := observations.Create(ctx, "lint is slow", "agent", "")
	require.NoError(t, err)
	assert.Equal(t, "agent", agent.Source)
	assert.Nil(t, agent.Project)

	_, err = observations.Create(ctx, "", "", "")
	assert.ErrorIs(t, err, types.ErrEmptyText)
}

func TestObservations_Get(t *testing.T) {
	ctx := context.Background()
	observations := NewObservations(setupBackend(t))

	created, err := observations.Create(ctx, "docs are stale", "", "")
	require.NoError(t, err)

	got, err := observations.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = observations.Get(ctx, created.ID+100)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestObservations_List(t *testing.T) {
	ctx := context.Background()
	observations := NewObservations(setupBackend(t))

	seed := []struct {
		text, source, project, disposition string
	}{
		{"one", "human", "p/a", ""},
		{"two", "agent", "p/a", ""},
		{"three", "agent", "p/b", ""},
		{"four", "agent", "p/a", types.DispositionDeferred},
		{"five", "agent", "p/a", ""},
	}
	for _, s := range seed {
		obs, err := observations.Create(ctx, s.text, s.source, s.project)
		require.NoError(t, err)
		if s.disposition != "" {
			_, err = observations.Update(ctx, obs.ID, types.ObservationUpdate{Disposition: strp(s.disposition)})
			require.NoError(t, err)
		}
	}

	tests := []struct {
		name   string
		filter types.ObservationFilter
		want   []string
	}{
		{
			name: "no filter returns all newest first",
			want: []string{"five", "four", "three", "two", "one"},
		},
		{
			name:   "combined filters are AND-ed",
			filter: types.ObservationFilter{Disposition: types.DispositionOpen, Source: "agent", Project: "p/a"},
			want:   []string{"five", "two"},
		},
		{
			name:   "single filter",
			filter: types.ObservationFilter{Disposition: types.DispositionDeferred},
			want:   []string{"four"},
		},
		{
			name:   "no match",
			filter: types.ObservationFilter{Project: "p/none"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := observations.List(ctx, tt.filter)
			require.NoError(t, err)
			texts := []string{}
			for _, o := range list {
				texts = append(texts, o.Text)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestObservations_Update(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	observations := NewObservations(b)

	obs, err := observations.Create(ctx, "original", "", "p/a")
	require.NoError(t, err)

	t.Run("applies provided fields only", func(t *testing.T) {
		got, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{
			Text:        strp("revised"),
			Disposition: strp(types.DispositionAddressed),
		})
		require.NoError(t, err)
		assert.Equal(t, "revised", got.Text)
		assert.Equal(t, types.DispositionAddressed, got.Disposition)
		assert.Equal(t, types.DefaultSource, got.Source)
		assert.Equal(t, "p/a", got.ProjectName())
		assert.Equal(t, obs.CreatedAt, got.CreatedAt)
	})

	t.Run("new project is registered", func(t *testing.T) {
		got, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Project: strp("p/b")})
		require.NoError(t, err)
		assert.Equal(t, "p/b", got.ProjectName())

		list, err := NewProjects(b).List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("empty project clears it", func(t *testing.T) {
		got, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Project: strp("")})
		require.NoError(t, err)
		assert.Nil(t, got.Project)
	})

	t.Run("blank source becomes default", func(t *testing.T) {
		_, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Source: strp("agent")})
		require.NoError(t, err)
		got, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Source: strp("")})
		require.NoError(t, err)
		assert.Equal(t, types.DefaultSource, got.Source)
	})

	t.Run("validation errors", func(t *testing.T) {
		_, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Disposition: strp("observed")})
		assert.ErrorIs(t, err, types.ErrInvalidDisposition)
		_, err = observations.Update(ctx, obs.ID, types.ObservationUpdate{Text: strp("")})
		assert.ErrorIs(t, err, types.ErrEmptyText)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := observations.Update(ctx, obs.ID+100, types.ObservationUpdate{Text: strp("x")})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestObservations_UpdateTimestamps(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	observations := NewObservations(b)

	obs, err := observations.Create(ctx, "timestamps", "", "")
	require.NoError(t, err)

	past := "2001-01-01T00:00:00Z"
	future := "2999-01-01T00:00:00Z"

	t.Run("empty update is distinct from not found and writes nothing", func(t *testing.T) {
		setTimestamps(t, b, obs.ID, past)

		_, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{})
		assert.ErrorIs(t, err, types.ErrNoUpdateFields)
		assert.NotErrorIs(t, err, types.ErrNotFound)

		_, err = observations.Update(ctx, obs.ID+100, types.ObservationUpdate{})
		assert.ErrorIs(t, err, types.ErrNoUpdateFields)

		got, err := observations.Get(ctx, obs.ID)
		require.NoError(t, err)
		assert.Equal(t, past, got.UpdatedAt.Format(time.RFC3339))
	})

	t.Run("update refreshes updated_at", func(t *testing.T) {
		setTimestamps(t, b, obs.ID, past)

		got, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Text: strp("refreshed")})
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
		assert.NotEqual(t, past, got.UpdatedAt.Format(time.RFC3339))
	})

	t.Run("updated_at never moves backwards", func(t *testing.T) {
		setTimestamps(t, b, obs.ID, future)

		got, err := observations.Update(ctx, obs.ID, types.ObservationUpdate{Text: strp("later")})
		require.NoError(t, err)
		assert.Equal(t, future, got.UpdatedAt.Format(time.RFC3339))
	})
}

func TestObservations_Delete(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	observations := NewObservations(b)
	actions := NewActions(b)

	keep, err := observations.Create(ctx, "keep", "", "")
	require.NoError(t, err)
	drop, err := observations.Create(ctx, "drop", "", "")
	require.NoError(t, err)

	action, err := actions.Create(ctx, types.NewAction{
		Description:    "fixed both",
		ObservationIDs: []int64{drop.ID, keep.ID},
	})
	require.NoError(t, err)

	removed, err := observations.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = observations.Delete(ctx, drop.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = observations.Get(ctx, drop.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	linked, err := actions.ListForObservation(ctx, drop.ID)
	require.NoError(t, err)
	assert.Empty(t, linked)

	list, err := actions.List(ctx, types.ActionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1, "the action itself is kept")
	assert.Equal(t, action.ID, list[0].ID)
	assert.Equal(t, []int64{keep.ID}, list[0].ObservationIDs)
}

func TestObservations_GetByIDs(t *testing.T) {
	ctx := context.Background()
	observations := NewObservations(setupBackend(t))

	a, err := observations.Create(ctx, "a", "", "")
	require.NoError(t, err)
	bObs, err := observations.Create(ctx, "b", "", "")
	require.NoError(t, err)

	got, err := observations.GetByIDs(ctx, []int64{a.ID, 999, bObs.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bObs.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)

	empty, err := observations.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}
