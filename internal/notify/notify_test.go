package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/questplan/internal/roadmap"
)

type failing struct{ err error }

func (f failing) Notify(context.Context, Event) error { return f.err }

type recorder struct{ events []Event }

func (r *recorder) Notify(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return nil
}

func taskEvent() Event {
	return Event{
		Kind:    KindTaskCompleted,
		UserID:  "u1",
		Project: roadmap.Project{ID: 7, Name: "Launch"},
		Task:    &roadmap.Task{ID: 3, Name: "Write docs", XP: 120, Difficulty: roadmap.DifficultyMedium},
		Stats:   roadmap.Stats{TotalTasks: 4, CompletedTasks: 1, Progress: 25, TotalXP: 400, EarnedXP: 120},
	}
}

func TestEvent_Summary(t *testing.T) {
	assert.Contains(t, taskEvent().Summary(), `"Write docs"`)
	assert.Contains(t, taskEvent().Summary(), "+120 XP")

	e := Event{Kind: KindProjectCompleted, Project: roadmap.Project{Name: "Launch"}, Stats: roadmap.Stats{TotalTasks: 4, EarnedXP: 400}}
	assert.Equal(t, "Project Launch finished: all 4 tasks done, 400 XP earned", e.Summary())
}

func TestMulti(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	m := Multi{NewLog(zerolog.Nop()), nil, failing{err: boom}, rec}

	err := m.Notify(context.Background(), taskEvent())
	assert.ErrorIs(t, err, boom)
	require.Len(t, rec.events, 1, "later notifiers still run")
}

func TestSlack_Notify(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(srv.URL, zerolog.Nop())
	require.NoError(t, s.Notify(context.Background(), taskEvent()))
	assert.Contains(t, got["text"], "Write docs")
	blocks, ok := got["blocks"].([]any)
	require.True(t, ok)
	assert.Len(t, blocks, 3)
}

func TestSlack_NotifyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlack(srv.URL, zerolog.Nop()).Notify(context.Background(), taskEvent())
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▱▱▱▱▱▱▱▱▱▱", progressBar(0))
	assert.Equal(t, "▰▰▰▱▱▱▱▱▱▱", progressBar(38))
	assert.Equal(t, "▰▰▰▰▰▰▰▰▰▰", progressBar(100))
}

func TestCompletion(t *testing.T) {
	snap := &roadmap.Snapshot{
		Project: roadmap.Project{ID: 1, Name: "Docs"},
		Tasks: []roadmap.Task{
			{ID: 1, Name: "Outline", XP: 50, Status: roadmap.StatusCompleted},
			{ID: 2, Name: "Write docs", XP: 100, Status: roadmap.StatusInProgress},
		},
	}
	events := Completion("u1", snap, snap.Tasks[0])
	require.Len(t, events, 1)
	assert.Equal(t, KindTaskCompleted, events[0].Kind)
	assert.Equal(t, "Outline", events[0].Task.Name)
	assert.Equal(t, 50, events[0].Stats.EarnedXP)

	snap.Tasks[1].Status = roadmap.StatusCompleted
	events = Completion("u1", snap, snap.Tasks[1])
	require.Len(t, events, 2)
	assert.Equal(t, KindProjectCompleted, events[1].Kind)
	assert.Nil(t, events[1].Task)
	assert.Equal(t, 150, events[1].Stats.EarnedXP)
}
