package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/claude/liftlog/internal/livestatus"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/snapshot"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/workout"
)

const testAPIKey = "test-key"

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	srv     *Server
	rt      *workout.Runtime
	store   *storage.Memory
	clock   *stepClock
	metrics *metrics.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		store:   storage.NewMemory(),
		clock:   &stepClock{now: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)},
		metrics: metrics.NewTestManager(),
	}
	board := livestatus.NewBoard(env.clock)
	live := livestatus.NewSynchronizer(board, log, env.metrics, time.Second, time.Minute)
	env.rt = workout.NewRuntime(env.store, snapshot.NewMemoryStore(), live, env.metrics, log, workout.Options{Clock: env.clock})
	env.srv = New(env.rt, env.store, board, env.metrics, testAPIKey, log)
	return env
}

// do sends a request through the full router. body may be nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func testPlan() beginRequest {
	return beginRequest{
		Name:        "Push day",
		WorkoutType: "strength",
		Sets: []models.WorkoutSet{
			{ExerciseName: "Bench Press", GroupKey: "bench", SetIndex: 0, TargetReps: 5, TargetWeightKg: 100, Kind: models.SetKindWork, RestSeconds: 90},
			{ExerciseName: "Bench Press", GroupKey: "bench", SetIndex: 1, TargetReps: 5, TargetWeightKg: 100, Kind: models.SetKindWork, RestSeconds: 90},
			{ExerciseName: "Dips", GroupKey: "dips", SetIndex: 2, TargetReps: 12, Kind: models.SetKindWork, RestSeconds: 60},
		},
	}
}

func (e *testEnv) begin(t *testing.T) workout.State {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/sessions", testPlan(), true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("begin status = %d, want 201 (body %q)", rec.Code, rec.Body.String())
	}
	return decode[workout.State](t, rec)
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	info := decode[UserInfo](t, rec)
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

// TestMutationsRequireAPIKey verifies reads are open and writes need X-API-Key.
func TestMutationsRequireAPIKey(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/api/v1/session", nil, false); rec.Code != http.StatusOK {
		t.Errorf("GET session status = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/sessions", testPlan(), false); rec.Code != http.StatusUnauthorized {
		t.Errorf("begin without key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/pause", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key status = %d, want 403", rec.Code)
	}
}

// TestSessionFlow drives one session through rest, selection, pause and end.
func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	st := env.begin(t)
	if !st.Active || st.TotalCount != 3 || st.CurrentSet == nil {
		t.Fatalf("begin state = %+v", st)
	}
	first := st.CurrentSet.ID

	env.clock.Advance(2 * time.Minute)
	rec := env.do(t, http.MethodPost, "/api/v1/session/sets/"+first.String()+"/complete", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d (body %q)", rec.Code, rec.Body.String())
	}
	st = decode[workout.State](t, rec)
	if !st.IsResting || st.RestRemainingSeconds != 90 || st.CompletedCount != 1 {
		t.Errorf("after complete: resting=%v remaining=%d completed=%d, want true 90 1",
			st.IsResting, st.RestRemainingSeconds, st.CompletedCount)
	}

	st = decode[workout.State](t, env.do(t, http.MethodDelete, "/api/v1/session/rest", nil, true))
	if st.IsResting {
		t.Error("still resting after skip")
	}

	rec = env.do(t, http.MethodPut, "/api/v1/session/selection", selectRequest{GroupKey: "dips"}, true)
	st = decode[workout.State](t, rec)
	if st.SelectedGroupKey != "dips" || st.CurrentGroupKey != "dips" {
		t.Errorf("after select: selected=%q current=%q, want dips", st.SelectedGroupKey, st.CurrentGroupKey)
	}
	st = decode[workout.State](t, env.do(t, http.MethodDelete, "/api/v1/session/selection", nil, true))
	if st.SelectedGroupKey != "" || st.CurrentGroupKey != "bench" {
		t.Errorf("after clear: selected=%q current=%q, want automatic bench", st.SelectedGroupKey, st.CurrentGroupKey)
	}

	st = decode[workout.State](t, env.do(t, http.MethodPost, "/api/v1/session/rest", restRequest{Seconds: 45}, true))
	if !st.IsResting || st.RestRemainingSeconds != 45 {
		t.Errorf("manual rest: resting=%v remaining=%d, want true 45", st.IsResting, st.RestRemainingSeconds)
	}

	st = decode[workout.State](t, env.do(t, http.MethodPost, "/api/v1/session/pause", nil, true))
	if !st.IsPaused || st.IsResting || st.ElapsedSeconds != 120 {
		t.Errorf("after pause: paused=%v resting=%v elapsed=%d, want true false 120", st.IsPaused, st.IsResting, st.ElapsedSeconds)
	}
	env.clock.Advance(10 * time.Minute)
	st = decode[workout.State](t, env.do(t, http.MethodPost, "/api/v1/session/resume", nil, true))
	if st.IsPaused || st.ElapsedSeconds != 120 {
		t.Errorf("after resume: paused=%v elapsed=%d, want false 120", st.IsPaused, st.ElapsedSeconds)
	}

	env.clock.Advance(time.Minute)
	rec = env.do(t, http.MethodPost, "/api/v1/session/end", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d (body %q)", rec.Code, rec.Body.String())
	}
	session := decode[models.Session](t, rec)
	if session.Status != models.SessionCompleted || session.DurationSec == nil || *session.DurationSec != 180 {
		t.Errorf("ended session = %+v, want completed with 180s", session)
	}

	st = decode[workout.State](t, env.do(t, http.MethodGet, "/api/v1/session", nil, false))
	if st.Active {
		t.Error("session still active after end")
	}
}

// TestSetEditing verifies appending and removing sets over HTTP.
func TestSetEditing(t *testing.T) {
	env := newTestEnv(t)
	env.begin(t)

	rec := env.do(t, http.MethodPost, "/api/v1/session/sets",
		models.WorkoutSet{ExerciseName: "Push-up", SetIndex: 3, TargetReps: 20}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("append status = %d (body %q)", rec.Code, rec.Body.String())
	}
	added := decode[models.WorkoutSet](t, rec)
	if added.ID == uuid.Nil || added.GroupKey != "Push-up" || added.Kind != models.SetKindWork {
		t.Errorf("appended set = %+v", added)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/session/sets", models.WorkoutSet{}, true); rec.Code != http.StatusBadRequest {
		t.Errorf("append without exercise status = %d, want 400", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/session/sets/"+added.ID.String(), nil, true); rec.Code != http.StatusNoContent {
		t.Errorf("remove status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/session/sets/"+added.ID.String(), nil, true); rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}
}

// TestErrorStatusCodes verifies runtime errors map onto HTTP status codes.
func TestErrorStatusCodes(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"pause without session", http.MethodPost, "/api/v1/session/pause", nil, http.StatusConflict},
		{"end without session", http.MethodPost, "/api/v1/session/end", nil, http.StatusConflict},
		{"open unknown session", http.MethodPost, "/api/v1/sessions/" + uuid.NewString() + "/open", nil, http.StatusNotFound},
		{"open malformed id", http.MethodPost, "/api/v1/sessions/not-a-uuid/open", nil, http.StatusBadRequest},
		{"begin without name", http.MethodPost, "/api/v1/sessions", beginRequest{}, http.StatusBadRequest},
		{"rest without seconds", http.MethodPost, "/api/v1/session/rest", restRequest{}, http.StatusBadRequest},
		{"select without key", http.MethodPut, "/api/v1/session/selection", selectRequest{}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/sessions?limit=x", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.path, tt.body, true); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	env.begin(t)
	if rec := env.do(t, http.MethodPost, "/api/v1/sessions", testPlan(), true); rec.Code != http.StatusConflict {
		t.Errorf("second begin status = %d, want 409", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/session/sets/"+uuid.NewString()+"/complete", nil, true); rec.Code != http.StatusNotFound {
		t.Errorf("complete unknown set status = %d, want 404", rec.Code)
	}
}

// TestSelectUnknownGroupFallsBack verifies a stale group key drops the pin and
// answers with the automatic selection instead of an error.
func TestSelectUnknownGroupFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.begin(t)

	rec := env.do(t, http.MethodPut, "/api/v1/session/selection", selectRequest{GroupKey: "dips"}, true)
	if st := decode[workout.State](t, rec); rec.Code != http.StatusOK || st.SelectedGroupKey != "dips" {
		t.Fatalf("select dips: status=%d selected=%q", rec.Code, st.SelectedGroupKey)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/session/selection", selectRequest{GroupKey: "deleted-group"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("select unknown group status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	st := decode[workout.State](t, rec)
	if st.SelectedGroupKey != "" {
		t.Errorf("selected_group_key = %q, want automatic", st.SelectedGroupKey)
	}
	if st.CurrentGroupKey != "bench" || st.CurrentSet == nil || st.CurrentSet.SetIndex != 0 {
		t.Errorf("current = %q %+v, want first bench set", st.CurrentGroupKey, st.CurrentSet)
	}
}

// TestDiscardAndList verifies discard deletes the session from the picker.
func TestDiscardAndList(t *testing.T) {
	env := newTestEnv(t)
	st := env.begin(t)

	sessions := decode[[]models.Session](t, env.do(t, http.MethodGet, "/api/v1/sessions?status=active", nil, false))
	if len(sessions) != 1 || sessions[0].ID != st.SessionID {
		t.Fatalf("active sessions = %+v, want the begun session", sessions)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/session/discard", nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("discard status = %d, want 204", rec.Code)
	}
	sessions = decode[[]models.Session](t, env.do(t, http.MethodGet, "/api/v1/sessions", nil, false))
	if len(sessions) != 0 {
		t.Errorf("sessions after discard = %+v, want none", sessions)
	}
}

// TestOpenPersistedSession verifies a completed session cannot be reopened.
func TestOpenPersistedSession(t *testing.T) {
	env := newTestEnv(t)
	st := env.begin(t)
	env.do(t, http.MethodPost, "/api/v1/session/end", nil, true)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions/"+st.SessionID.String()+"/open", nil, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("open completed session status = %d, want 409", rec.Code)
	}
}

// TestLiveBoard verifies the live board shows exactly one activity per session.
func TestLiveBoard(t *testing.T) {
	env := newTestEnv(t)
	st := env.begin(t)

	activities := decode[[]livestatus.Activity](t, env.do(t, http.MethodGet, "/api/v1/live", nil, false))
	if len(activities) != 1 || activities[0].SessionID != st.SessionID || activities[0].Ended {
		t.Fatalf("activities = %+v, want one running activity", activities)
	}
	if activities[0].Content.CurrentExerciseName != "Bench Press" {
		t.Errorf("live exercise = %q, want Bench Press", activities[0].Content.CurrentExerciseName)
	}

	env.do(t, http.MethodPost, "/api/v1/session/end", nil, true)
	activities = decode[[]livestatus.Activity](t, env.do(t, http.MethodGet, "/api/v1/live", nil, false))
	if len(activities) != 1 || !activities[0].Ended || activities[0].DismissAt == nil {
		t.Errorf("after end activities = %+v, want one ended activity with dismissal", activities)
	}
}

// TestLiveBoardWithoutBoard verifies an empty list when no board is wired.
func TestLiveBoardWithoutBoard(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	s.handleLive(rec, httptest.NewRequest(http.MethodGet, "/api/v1/live", nil))
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

// TestEventsStream verifies the SSE stream opens with the current state and
// then carries runtime events.
func TestEventsStream(t *testing.T) {
	env := newTestEnv(t)
	env.begin(t)

	ts := httptest.NewServer(env.srv)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/session/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("reading stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, data := readEvent()
	if name != "state_changed" || !strings.Contains(data, `"active":true`) {
		t.Fatalf("first event = %s %s", name, data)
	}

	env.do(t, http.MethodPost, "/api/v1/session/pause", nil, true)
	name, data = readEvent()
	if name != "state_changed" || !strings.Contains(data, `"is_paused":true`) {
		t.Errorf("pause event = %s %s", name, data)
	}
}
