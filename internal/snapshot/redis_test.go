package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
)

// TestRedisStoreSaveLoad verifies the snapshot is written and read under one key.
func TestRedisStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "", time.Hour)

	session := uuid.New()
	snap := sample(session)
	data, err := Encode(snap)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	mock.ExpectSet(DefaultRedisKey, string(data), time.Hour).SetVal("OK")
	mock.ExpectGet(DefaultRedisKey).SetVal(string(data))

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.SessionID != session {
		t.Fatalf("Load = %+v, want snapshot of %s", got, session)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// TestRedisStoreMissingKey verifies redis.Nil means no snapshot.
func TestRedisStoreMissingKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "k", 0)

	mock.ExpectGet("k").SetErr(redis.Nil)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("Load = %+v, want nil", got)
	}
}

// TestRedisStoreErrors verifies connection errors are returned.
func TestRedisStoreErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "k", 0)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))
	mock.ExpectDel("k").SetErr(errors.New("connection refused"))

	if _, err := store.Load(context.Background()); err == nil {
		t.Error("expected Load error")
	}
	if err := store.Clear(context.Background()); err == nil {
		t.Error("expected Clear error")
	}
}

// TestRedisLoadForStaleSession verifies a foreign snapshot is deleted.
func TestRedisLoadForStaleSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "k", 0)

	data, err := Encode(sample(uuid.New()))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	mock.ExpectGet("k").SetVal(string(data))
	mock.ExpectDel("k").SetVal(1)

	got, err := LoadFor(context.Background(), store, uuid.New())
	if err != nil {
		t.Fatalf("LoadFor: %v", err)
	}
	if got != nil {
		t.Errorf("LoadFor = %+v, want nil", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
