package logsync

import (
	"context"
	"errors"
	"io"
	"testing"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. They validate the
// single-flight guard and the pull bookkeeping; the store-backed apply path
// is covered by integration tests in the models package.

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeApplier struct {
	outcomes map[int64]applyOutcome
	failures map[int64]error
	seen     []int64
}

func (a *fakeApplier) Apply(_ context.Context, entry RemoteLogEntry) (applyOutcome, error) {
	a.seen = append(a.seen, entry.Sequence)
	if err := a.failures[entry.Sequence]; err != nil {
		return outcomeSkipped, err
	}
	return a.outcomes[entry.Sequence], nil
}

func TestRunIsSingleFlight(t *testing.T) {
	engine := NewEngine(quietLogger(), nil)

	engine.mu.Lock()
	defer engine.mu.Unlock()

	_, err := engine.Run(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestApplyEntries_CountsAndMaxSequence(t *testing.T) {
	applier := &fakeApplier{
		outcomes: map[int64]applyOutcome{
			11: outcomeApplied,
			12: outcomeSkipped,
			14: outcomeApplied,
		},
		failures: map[int64]error{
			13: errors.New("boom"),
		},
	}
	engine := NewEngine(quietLogger(), nil)
	engine.applier = applier

	entries := []RemoteLogEntry{
		{Sequence: 11, ActionType: models.ActionTypeInsert, TableName: models.TablePurchaseRecords},
		{Sequence: 12, ActionType: models.ActionTypeUpdate, TableName: models.TablePurchaseRecords},
		{Sequence: 13, ActionType: models.ActionTypeInsert, TableName: models.TablePurchaseRecords},
		{Sequence: 14, ActionType: models.ActionTypeDelete, TableName: models.TableVendors},
	}

	applied, skipped, failed, maxSeen := engine.applyEntries(context.Background(), entries, 10)

	if applied != 2 || skipped != 1 || failed != 1 {
		t.Fatalf("applied/skipped/failed = %d/%d/%d, want 2/1/1", applied, skipped, failed)
	}
	if maxSeen != 14 {
		t.Fatalf("maxSeen = %d, want 14", maxSeen)
	}
	// A failure must not stop later entries.
	if len(applier.seen) != 4 {
		t.Fatalf("applied %d entries, want all 4", len(applier.seen))
	}
}

func TestApplyEntries_EmptyBatchKeepsCheckpoint(t *testing.T) {
	engine := NewEngine(quietLogger(), nil)
	engine.applier = &fakeApplier{}

	applied, skipped, failed, maxSeen := engine.applyEntries(context.Background(), nil, 42)
	if applied != 0 || skipped != 0 || failed != 0 {
		t.Fatalf("counts = %d/%d/%d, want zeros", applied, skipped, failed)
	}
	if maxSeen != 42 {
		t.Fatalf("maxSeen = %d, want 42", maxSeen)
	}
}

func TestStoreApplier_SkipsUnknownTable(t *testing.T) {
	applier := &storeApplier{logger: quietLogger()}

	outcome, err := applier.Apply(context.Background(), RemoteLogEntry{
		Sequence:   1,
		ActionType: models.ActionTypeInsert,
		TableName:  "ledger_entries",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != outcomeSkipped {
		t.Fatalf("outcome = %v, want skipped", outcome)
	}
}

func TestStoreApplier_SkipsUpdateEntries(t *testing.T) {
	applier := &storeApplier{logger: quietLogger()}

	outcome, err := applier.Apply(context.Background(), RemoteLogEntry{
		Sequence:   2,
		ActionType: models.ActionTypeUpdate,
		TableName:  models.TablePurchaseRecords,
		RecordId:   7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != outcomeSkipped {
		t.Fatalf("outcome = %v, want skipped", outcome)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	rec, err := decodeSnapshot(models.TablePurchaseRecords, []byte(`{"id": 3, "component_key": "c-1"}`))
	if err != nil {
		t.Fatalf("decode purchase record: %v", err)
	}
	pr, ok := rec.(*models.PurchaseRecord)
	if !ok {
		t.Fatalf("decoded %T, want *models.PurchaseRecord", rec)
	}
	if pr.ComponentKey != "c-1" {
		t.Fatalf("component key = %q, want c-1", pr.ComponentKey)
	}

	if _, err := decodeSnapshot("ledger_entries", []byte(`{}`)); !errors.Is(err, errUnknownSnapshotTable) {
		t.Fatalf("expected errUnknownSnapshotTable, got %v", err)
	}
}
