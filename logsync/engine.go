package logsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ErrSyncInProgress is returned when a sync invocation overlaps another one.
// Checkpoint advancement spans a read-then-write sequence, so overlapping
// pulls could both read the same checkpoint and lose an update.
var ErrSyncInProgress = errors.New("sync already in progress")

const syncLeaseKey = "purchases:sync:lease"

type applyOutcome int

const (
	outcomeApplied applyOutcome = iota
	outcomeSkipped
)

type entryApplier interface {
	Apply(ctx context.Context, entry RemoteLogEntry) (applyOutcome, error)
}

type Engine struct {
	Logger     *logrus.Logger
	Relay      RelayClient
	Tracer     trace.Tracer
	InstanceID string
	LeaseTTL   time.Duration

	applier entryApplier
	mu      sync.Mutex
}

func NewEngine(logger *logrus.Logger, relay RelayClient) *Engine {
	return &Engine{
		Logger:     logger,
		Relay:      relay,
		Tracer:     otel.Tracer("purchases-backend/logsync"),
		InstanceID: uuid.NewString(),
		LeaseTTL:   30 * time.Second,
		applier:    &storeApplier{logger: logger},
	}
}

type Result struct {
	Sent    int `json:"sent"`
	Fetched int `json:"fetched"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r Result) Summary() string {
	return fmt.Sprintf("sent %d, fetched %d, applied %d, skipped %d, failed %d",
		r.Sent, r.Fetched, r.Applied, r.Skipped, r.Failed)
}

// Run executes one push phase and one pull phase. Invocations are
// single-flight: the in-process mutex is mandatory, the Redis lease adds
// best-effort cross-instance protection and is never load-bearing.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if !e.mu.TryLock() {
		return Result{}, ErrSyncInProgress
	}
	defer e.mu.Unlock()

	if e.Tracer != nil {
		var span trace.Span
		ctx, span = e.Tracer.Start(ctx, "logsync.Run")
		defer span.End()
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, syncLeaseKey, e.LeaseTTL, &redislock.Options{Metadata: e.InstanceID})
		if err == nil {
			defer lock.Release(context.Background())
		} else if errors.Is(err, redislock.ErrNotObtained) {
			return Result{}, ErrSyncInProgress
		}
		// Other Redis errors: continue; the lease is an optimization only.
	}

	var res Result

	sent, pushErr := e.pushOnce(ctx)
	res.Sent = sent

	fetched, applied, skipped, failed, pullErr := e.pullOnce(ctx)
	res.Fetched = fetched
	res.Applied = applied
	res.Skipped = skipped
	res.Failed = failed

	if pushErr != nil {
		return res, pushErr
	}
	return res, pullErr
}

// pushOnce snapshots unsynced outbox rows, delivers them as one batch, and
// flags them synced only on confirmed delivery. No store transaction stays
// open across the relay call.
func (e *Engine) pushOnce(ctx context.Context) (int, error) {
	entries, err := models.GetUnsyncedLogs(ctx)
	if err != nil {
		return 0, &utils.StoreError{Op: "outbox snapshot", Err: err}
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if e.Relay == nil {
		return 0, &utils.RelayError{Phase: "push", Err: errors.New("relay not configured")}
	}

	if err := e.Relay.Send(ctx, entries); err != nil {
		// Nothing is marked; the identical batch is resent next invocation.
		return 0, &utils.RelayError{Phase: "push", Err: err}
	}

	ids := make([]int, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	if err := models.MarkLogsSynced(ctx, ids); err != nil {
		// Delivery succeeded but flags did not stick; the batch is resent
		// and deduplicated by the receiver's idempotent apply.
		return 0, &utils.StoreError{Op: "mark synced", Err: err}
	}
	return len(entries), nil
}

// pullOnce fetches entries past the checkpoint and applies them one by one.
// Per-entry failures are recorded and never stop the batch; the checkpoint
// advances to the highest sequence seen so a poisoned entry cannot stall
// future progress.
func (e *Engine) pullOnce(ctx context.Context) (fetched, applied, skipped, failed int, err error) {
	since, err := models.GetCheckpoint(ctx, models.CheckpointLastAppliedRemoteSequence)
	if err != nil {
		return 0, 0, 0, 0, &utils.StoreError{Op: "read checkpoint", Err: err}
	}
	if e.Relay == nil {
		return 0, 0, 0, 0, &utils.RelayError{Phase: "pull", Err: errors.New("relay not configured")}
	}

	entries, maxSequence, err := e.Relay.FetchSince(ctx, since)
	if err != nil {
		return 0, 0, 0, 0, &utils.RelayError{Phase: "pull", Err: err}
	}
	fetched = len(entries)

	var maxSeen int64
	applied, skipped, failed, maxSeen = e.applyEntries(ctx, entries, since)
	if maxSequence > maxSeen {
		maxSeen = maxSequence
	}

	if maxSeen > since {
		if err := models.AdvanceCheckpoint(ctx, models.CheckpointLastAppliedRemoteSequence, maxSeen); err != nil {
			return fetched, applied, skipped, failed, &utils.StoreError{Op: "advance checkpoint", Err: err}
		}
	}
	return fetched, applied, skipped, failed, nil
}

// applyEntries applies the fetched entries in order. A failing entry is
// counted and logged; the batch keeps going.
func (e *Engine) applyEntries(ctx context.Context, entries []RemoteLogEntry, since int64) (applied, skipped, failed int, maxSeen int64) {
	maxSeen = since
	for _, entry := range entries {
		if entry.Sequence > maxSeen {
			maxSeen = entry.Sequence
		}
		outcome, applyErr := e.applier.Apply(ctx, entry)
		if applyErr != nil {
			failed++
			if e.Logger != nil {
				e.Logger.WithFields(logrus.Fields{
					"sequence":   entry.Sequence,
					"table_name": entry.TableName,
					"record_id":  entry.RecordId,
				}).Error("remote entry apply failed: " + applyErr.Error())
			}
			continue
		}
		if outcome == outcomeApplied {
			applied++
		} else {
			skipped++
		}
	}
	return applied, skipped, failed, maxSeen
}

// storeApplier applies a remote entry to the local store through the same
// write path as local mutations, with replayed origin so no outbound log
// entry is emitted (echo-loop avoidance).
type storeApplier struct {
	logger *logrus.Logger
}

func (a *storeApplier) Apply(ctx context.Context, entry RemoteLogEntry) (applyOutcome, error) {
	switch entry.TableName {
	case models.TablePurchaseRecords, models.TableVendors, models.TableItems:
	default:
		// Forward-compatible ignore: tables this build does not know.
		return outcomeSkipped, nil
	}

	switch entry.ActionType {
	case models.ActionTypeInsert:
		return a.applyInsert(ctx, entry)
	case models.ActionTypeDelete:
		return a.applyDelete(ctx, entry)
	case models.ActionTypeUpdate:
		// No merge policy is defined for concurrent edits; surface the
		// entry instead of silently dropping it.
		if a.logger != nil {
			a.logger.WithFields(logrus.Fields{
				"sequence":   entry.Sequence,
				"table_name": entry.TableName,
				"record_id":  entry.RecordId,
			}).Warn("remote UPDATE entry not applied (no merge policy)")
		}
		return outcomeSkipped, nil
	default:
		return outcomeSkipped, nil
	}
}

func (a *storeApplier) applyInsert(ctx context.Context, entry RemoteLogEntry) (applyOutcome, error) {
	snapshot, err := decodeSnapshot(entry.TableName, entry.NewObj)
	if err != nil {
		return outcomeSkipped, &utils.ApplyError{TableName: entry.TableName, RecordId: entry.RecordId, Err: err}
	}

	db := config.GetDB().WithContext(ctx)
	inserted := false

	err = db.Transaction(func(tx *gorm.DB) error {
		switch rec := snapshot.(type) {
		case *models.PurchaseRecord:
			var existing models.PurchaseRecord
			if findErr := tx.First(&existing, entry.RecordId).Error; findErr == nil {
				return nil
			} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
			rec.ID = entry.RecordId
			if insErr := models.InsertRecordTx(tx, rec, models.OriginReplayed); insErr != nil {
				return insErr
			}
			inserted = true
		case *models.Vendor:
			var existing models.Vendor
			if findErr := tx.First(&existing, entry.RecordId).Error; findErr == nil {
				return nil
			} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
			rec.ID = entry.RecordId
			if insErr := tx.Create(rec).Error; insErr != nil {
				return insErr
			}
			inserted = true
		case *models.Item:
			var existing models.Item
			if findErr := tx.First(&existing, entry.RecordId).Error; findErr == nil {
				return nil
			} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
			rec.ID = entry.RecordId
			if insErr := tx.Create(rec).Error; insErr != nil {
				return insErr
			}
			inserted = true
		}
		return nil
	})
	if err != nil {
		return outcomeSkipped, &utils.ApplyError{TableName: entry.TableName, RecordId: entry.RecordId, Err: err}
	}
	if inserted {
		return outcomeApplied, nil
	}
	return outcomeSkipped, nil
}

func (a *storeApplier) applyDelete(ctx context.Context, entry RemoteLogEntry) (applyOutcome, error) {
	db := config.GetDB().WithContext(ctx)
	deleted := false

	err := db.Transaction(func(tx *gorm.DB) error {
		switch entry.TableName {
		case models.TablePurchaseRecords:
			var rec models.PurchaseRecord
			if findErr := tx.First(&rec, entry.RecordId).Error; findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					// Already deleted is a success case.
					return nil
				}
				return findErr
			}
			if delErr := models.DeleteRecordTx(tx, &rec, models.OriginReplayed); delErr != nil {
				return delErr
			}
			deleted = true
		case models.TableVendors:
			res := tx.Delete(&models.Vendor{}, entry.RecordId)
			if res.Error != nil {
				return res.Error
			}
			deleted = res.RowsAffected > 0
		case models.TableItems:
			res := tx.Delete(&models.Item{}, entry.RecordId)
			if res.Error != nil {
				return res.Error
			}
			deleted = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return outcomeSkipped, &utils.ApplyError{TableName: entry.TableName, RecordId: entry.RecordId, Err: err}
	}
	if deleted {
		return outcomeApplied, nil
	}
	return outcomeSkipped, nil
}
