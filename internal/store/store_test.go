package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edustack/valsync/internal/models"
)

func sampleQueue(now time.Time) []models.ValidationRequest {
	return []models.ValidationRequest{
		{
			ID:          "vr_a",
			Kind:        models.KindReportCard,
			ItemID:      "rc_101",
			Action:      models.ActionValidate,
			Actor:       models.Actor{UserID: "u_1", UserName: "A. Traore", Role: "teacher"},
			PayloadJSON: `{"comment":"term one","period":"T1"}`,
			EnqueuedAt:  now,
			Status:      models.StatusPending,
		},
		{
			ID:         "vr_b",
			Kind:       models.KindCertificate,
			ItemID:     "cert_7",
			Action:     models.ActionSign,
			Actor:      models.Actor{UserID: "u_2"},
			EnqueuedAt: now.Add(time.Second),
			Status:     models.StatusFailed,
			RetryCount: 3,
			LastError:  "gateway submission failed (status 503): unavailable",
		},
	}
}

func sampleHistory(now time.Time) []models.HistoryRecord {
	return []models.HistoryRecord{
		{
			ID:        "vr_c",
			ItemID:    "jr_3",
			Kind:      models.KindJournalEntry,
			Action:    models.ActionApprove,
			Actor:     models.Actor{UserID: "u_1", Role: "director"},
			Timestamp: now,
			Comment:   "week approved",
			Origin:    models.OriginSynced,
		},
		{
			ID:        "vr_d",
			ItemID:    "pr_9",
			Kind:      models.KindPedagogicalRecord,
			Action:    models.ActionValidate,
			Actor:     models.Actor{UserID: "u_3"},
			Timestamp: now.Add(-time.Hour),
			Origin:    models.OriginSynced,
		},
	}
}

func assertQueueEqual(t *testing.T, expected, actual []models.ValidationRequest) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Fatalf("queue length mismatch: expected %d, got %d", len(expected), len(actual))
	}
	for i := range expected {
		e, a := expected[i], actual[i]
		if a.ID != e.ID || a.Kind != e.Kind || a.ItemID != e.ItemID || a.Action != e.Action ||
			a.Actor != e.Actor || a.PayloadJSON != e.PayloadJSON || a.Status != e.Status ||
			a.RetryCount != e.RetryCount || a.LastError != e.LastError {
			t.Errorf("queue entry %d mismatch\nexpected: %+v\nactual: %+v", i, e, a)
		}
		if !a.EnqueuedAt.Equal(e.EnqueuedAt) {
			t.Errorf("queue entry %d enqueued_at mismatch: expected %v, got %v", i, e.EnqueuedAt, a.EnqueuedAt)
		}
	}
}

func assertHistoryEqual(t *testing.T, expected, actual []models.HistoryRecord) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Fatalf("history length mismatch: expected %d, got %d", len(expected), len(actual))
	}
	for i := range expected {
		e, a := expected[i], actual[i]
		if a.ID != e.ID || a.Kind != e.Kind || a.ItemID != e.ItemID || a.Action != e.Action ||
			a.Actor != e.Actor || a.Comment != e.Comment || a.Origin != e.Origin {
			t.Errorf("history entry %d mismatch\nexpected: %+v\nactual: %+v", i, e, a)
		}
		if !a.Timestamp.Equal(e.Timestamp) {
			t.Errorf("history entry %d timestamp mismatch: expected %v, got %v", i, e.Timestamp, a.Timestamp)
		}
	}
}

func TestInMemoryStoreSnapshots(t *testing.T) {
	s := NewInMemoryStore()
	now := time.Now()

	queue := sampleQueue(now)
	if err := s.SaveQueue(queue); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Mutating the caller's slice must not leak into the store.
	queue[0].Status = models.StatusFailed

	loaded, err := s.LoadQueue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded[0].Status != models.StatusPending {
		t.Error("store snapshot shares memory with caller slice")
	}
}

func TestInMemoryStoreInjectedFailure(t *testing.T) {
	s := NewInMemoryStore()
	boom := errors.New("disk full")
	s.FailNextSave = boom

	if err := s.SaveQueue(nil); !errors.Is(err, boom) {
		t.Errorf("expected injected failure, got %v", err)
	}
	// Failure is one-shot.
	if err := s.SaveQueue(nil); err != nil {
		t.Errorf("unexpected error after injected failure consumed: %v", err)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "valsync.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	now := time.Now().Truncate(time.Second)
	queue := sampleQueue(now)
	history := sampleHistory(now)

	if err := s.SaveQueue(queue); err != nil {
		t.Fatalf("save queue failed: %v", err)
	}
	if err := s.SaveHistory(history); err != nil {
		t.Fatalf("save history failed: %v", err)
	}

	loadedQueue, err := s.LoadQueue()
	if err != nil {
		t.Fatalf("load queue failed: %v", err)
	}
	assertQueueEqual(t, queue, loadedQueue)

	loadedHistory, err := s.LoadHistory()
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	assertHistoryEqual(t, history, loadedHistory)
}

func TestSQLiteStoreSurvivesRestart(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "valsync.db")
	now := time.Now().Truncate(time.Second)
	queue := sampleQueue(now)
	history := sampleHistory(now)

	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	if err := s.SaveQueue(queue); err != nil {
		t.Fatalf("save queue failed: %v", err)
	}
	if err := s.SaveHistory(history); err != nil {
		t.Fatalf("save history failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Reopen the same file: state must reconstruct exactly as last saved.
	reopened, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	defer reopened.Close()

	loadedQueue, err := reopened.LoadQueue()
	if err != nil {
		t.Fatalf("load queue failed: %v", err)
	}
	assertQueueEqual(t, queue, loadedQueue)

	loadedHistory, err := reopened.LoadHistory()
	if err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	assertHistoryEqual(t, history, loadedHistory)
}

func TestSQLiteStoreSnapshotReplaces(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "valsync.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	defer s.Close()

	now := time.Now().Truncate(time.Second)
	if err := s.SaveQueue(sampleQueue(now)); err != nil {
		t.Fatalf("save queue failed: %v", err)
	}
	if err := s.SaveQueue(nil); err != nil {
		t.Fatalf("save empty queue failed: %v", err)
	}

	loaded, err := s.LoadQueue()
	if err != nil {
		t.Fatalf("load queue failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty queue after snapshot replace, got %d entries", len(loaded))
	}
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for missing DSN")
	}
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	pgStore, err := NewPostgresStore(WithDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pgStore.Close()

	now := time.Now().Truncate(time.Second)
	queue := sampleQueue(now)
	if err := pgStore.SaveQueue(queue); err != nil {
		t.Fatalf("save queue failed: %v", err)
	}
	loaded, err := pgStore.LoadQueue()
	if err != nil {
		t.Fatalf("load queue failed: %v", err)
	}
	assertQueueEqual(t, queue, loaded)

	if err := pgStore.SaveQueue(nil); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
