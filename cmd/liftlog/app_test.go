package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/snapshot"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		Snapshot:   config.SnapshotConfig{Backend: backend, Path: filepath.Join(t.TempDir(), "snap", "snapshot.db")},
		LiveStatus: config.LiveStatusConfig{Surface: "board", PushTimeout: time.Second, Grace: time.Minute},
		Session:    config.SessionConfig{TickInterval: 10 * time.Millisecond},
		Metrics:    config.MetricsConfig{Namespace: "liftlog"},
	}
}

// TestNewAppInMemory verifies a config without a database wires a working
// runtime that can run a session end to end.
func TestNewAppInMemory(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(ctx, testConfig(t, "memory"), log)
	if err != nil {
		t.Fatal(err)
	}
	if a.board == nil {
		t.Fatal("board surface not wired")
	}

	a.runtime.Attach(ctx)
	st, err := a.runtime.Begin(ctx, "Test", "strength", []models.WorkoutSet{{ExerciseName: "Squat", TargetReps: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if !a.runtime.Ticking() {
		t.Error("tick loops not running after Begin")
	}
	if got := a.board.List(); len(got) != 1 || got[0].SessionID != st.SessionID {
		t.Errorf("board = %+v, want one activity for the session", got)
	}
	sessions, err := a.sessions.ListSessions(ctx, models.SessionActive, 10)
	if err != nil || len(sessions) != 1 {
		t.Errorf("ListSessions = %d sessions, err %v", len(sessions), err)
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if a.runtime.Ticking() {
		t.Error("tick loops still running after Close")
	}
}

// TestNewAppSQLiteSnapshots verifies the sqlite backend is opened and a
// relaunched app resumes the running session from it.
func TestNewAppSQLiteSnapshots(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig(t, "sqlite")

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	st, err := a.runtime.Begin(ctx, "Test", "strength", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	store, err := snapshot.OpenSQLiteStore(cfg.Snapshot.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.SessionID != st.SessionID {
		t.Errorf("snapshot = %+v, want one for session %s", snap, st.SessionID)
	}
}

// TestNewAppWithoutBoard verifies surface "none" leaves the board unset.
func TestNewAppWithoutBoard(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.LiveStatus.Surface = "none"

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.board != nil {
		t.Error("board wired with surface none")
	}
}

// TestVersionCommand verifies the version subcommand output.
func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "liftlog "+Version {
		t.Errorf("version output = %q", got)
	}
}
