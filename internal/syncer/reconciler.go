package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"salespulse/backend/internal/cache"
	"salespulse/backend/internal/domain"
	"salespulse/backend/internal/store"
)

// State reports which reconciliation path a synchronize call took.
type State string

const (
	// StateNoData: the remote store holds zero upload batches. Terminal;
	// there is nothing to analyze.
	StateNoData State = "no_data"
	// StateValid: the local snapshot already reflects every remote batch;
	// no page was fetched.
	StateValid State = "valid"
	// StateIncremental: only records newer than the snapshot cursor were
	// fetched and merged.
	StateIncremental State = "incremental"
	// StateFullRebuild: the whole record set was re-fetched page by page.
	StateFullRebuild State = "full_rebuild"
)

// SyncError aborts a whole synchronization. Partial results are discarded,
// never cached; the caller surfaces it for a user-visible retry.
type SyncError struct {
	OwnerID string
	Page    int
	Err     error
}

func (e *SyncError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("sync failed for %s at page %d: %v", e.OwnerID, e.Page, e.Err)
	}
	return fmt.Sprintf("sync failed for %s: %v", e.OwnerID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ProgressFunc receives (fetched, total) after each completed page. Reported
// progress is monotonically increasing for the duration of one call.
type ProgressFunc func(fetched, total int)

// Reconciler keeps a local snapshot cache consistent with the remote record
// store, transferring only what the snapshot is missing. It is the sole
// writer of the snapshot and always replaces it wholesale.
type Reconciler struct {
	store    store.RecordStore
	cache    cache.SnapshotCache
	pageSize int
}

const defaultPageSize = 500

func New(recordStore store.RecordStore, snapshotCache cache.SnapshotCache, pageSize int) *Reconciler {
	if snapshotCache == nil {
		snapshotCache = cache.NoopSnapshotCache{}
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Reconciler{store: recordStore, cache: snapshotCache, pageSize: pageSize}
}

func snapshotKey(ownerID string) string {
	return "salespulse:snapshot:" + ownerID
}

// Synchronize resolves the full record set for an owner. The decision is made
// fresh on every call:
//
//   - no usable snapshot            -> full rebuild
//   - snapshot batches == remote    -> serve cached records, zero fetches
//   - remote batches > snapshot and the snapshot has a genuine cursor
//     -> fetch only records newer than the cursor and merge
//   - anything else (batch count went backwards, corrupt shapes)
//     -> full rebuild
func (r *Reconciler) Synchronize(ctx context.Context, ownerID string, progress ProgressFunc) ([]domain.SalesRecord, State, error) {
	if progress == nil {
		progress = func(int, int) {}
	}

	remoteBatches, err := r.store.CountBatches(ctx, ownerID)
	if err != nil {
		return nil, "", &SyncError{OwnerID: ownerID, Err: err}
	}
	if remoteBatches == 0 {
		return nil, StateNoData, nil
	}

	snapshot := r.loadSnapshot(ctx, ownerID)

	if snapshot != nil && snapshot.SourceBatchCount == remoteBatches {
		return snapshot.Records, StateValid, nil
	}

	if snapshot != nil && remoteBatches > snapshot.SourceBatchCount {
		merged, err := r.topUp(ctx, ownerID, snapshot, remoteBatches, progress)
		if err != nil {
			return nil, "", err
		}
		return merged, StateIncremental, nil
	}

	records, err := r.rebuild(ctx, ownerID, remoteBatches, progress)
	if err != nil {
		return nil, "", err
	}
	return records, StateFullRebuild, nil
}

// loadSnapshot returns a snapshot usable for incremental top-up, or nil.
// Cache trouble is never fatal: a mismatched or unreadable snapshot simply
// forces a rebuild.
func (r *Reconciler) loadSnapshot(ctx context.Context, ownerID string) *domain.CacheSnapshot {
	snapshot, ok, err := r.cache.Get(ctx, snapshotKey(ownerID))
	if err != nil {
		if errors.Is(err, cache.ErrSchemaMismatch) {
			log.Printf("[syncer] snapshot for %s has an unrecognized shape, rebuilding", ownerID)
		} else {
			log.Printf("[syncer] snapshot read failed for %s (%v), rebuilding", ownerID, err)
		}
		return nil
	}
	if !ok || snapshot == nil {
		return nil
	}
	// A legacy snapshot without a genuine cursor cannot support incremental
	// top-up.
	if snapshot.LatestRecordTimestamp.IsZero() {
		return nil
	}
	return snapshot
}

// topUp fetches only records strictly newer than the snapshot cursor and
// merges them into the cached set.
func (r *Reconciler) topUp(ctx context.Context, ownerID string, snapshot *domain.CacheSnapshot, remoteBatches int, progress ProgressFunc) ([]domain.SalesRecord, error) {
	remoteRecords, err := r.store.CountRecords(ctx, ownerID)
	if err != nil {
		return nil, &SyncError{OwnerID: ownerID, Err: err}
	}
	expected := remoteRecords - len(snapshot.Records)
	if expected < 0 {
		expected = 0
	}

	after := snapshot.LatestRecordTimestamp
	fetched := make([]domain.SalesRecord, 0, expected)
	var cursor *store.PageCursor

	for page := 1; ; page++ {
		batch, err := r.store.QueryRecords(ctx, store.QueryFilter{
			OwnerID: ownerID,
			After:   &after,
			Cursor:  cursor,
			Limit:   r.pageSize,
		})
		if err != nil {
			return nil, &SyncError{OwnerID: ownerID, Page: page, Err: err}
		}
		if len(batch) == 0 {
			break
		}
		fetched = append(fetched, batch...)
		last := batch[len(batch)-1]
		cursor = &store.PageCursor{Timestamp: last.Timestamp, LineID: last.LineID}
		progress(len(fetched), expected)
		if len(batch) < r.pageSize {
			break
		}
	}

	merged := make([]domain.SalesRecord, 0, len(snapshot.Records)+len(fetched))
	merged = append(merged, snapshot.Records...)
	merged = append(merged, fetched...)

	r.persistSnapshot(ctx, ownerID, merged, remoteBatches)
	return merged, nil
}

// rebuild re-fetches everything with cursor pagination. The loop stops on an
// empty page or once the originally observed total is reached, so a store
// that grows mid-fetch cannot extend this run (read skew guard); the next
// synchronize picks up the remainder.
func (r *Reconciler) rebuild(ctx context.Context, ownerID string, remoteBatches int, progress ProgressFunc) ([]domain.SalesRecord, error) {
	total, err := r.store.CountRecords(ctx, ownerID)
	if err != nil {
		return nil, &SyncError{OwnerID: ownerID, Err: err}
	}

	records := make([]domain.SalesRecord, 0, total)
	var cursor *store.PageCursor

	for page := 1; len(records) < total; page++ {
		batch, err := r.store.QueryRecords(ctx, store.QueryFilter{
			OwnerID: ownerID,
			Cursor:  cursor,
			Limit:   r.pageSize,
		})
		if err != nil {
			return nil, &SyncError{OwnerID: ownerID, Page: page, Err: err}
		}
		if len(batch) == 0 {
			break
		}
		records = append(records, batch...)
		last := batch[len(batch)-1]
		cursor = &store.PageCursor{Timestamp: last.Timestamp, LineID: last.LineID}
		progress(len(records), total)
	}

	r.persistSnapshot(ctx, ownerID, records, remoteBatches)
	return records, nil
}

// persistSnapshot replaces the cached snapshot after a successful fetch
// sequence. The cursor is recomputed across the whole merged set rather than
// trusting fetch order. A failed write only costs the next sync a rebuild,
// so it is logged, not surfaced.
func (r *Reconciler) persistSnapshot(ctx context.Context, ownerID string, records []domain.SalesRecord, batchCount int) {
	var latest time.Time
	for _, rec := range records {
		if rec.Timestamp.After(latest) {
			latest = rec.Timestamp
		}
	}

	snapshot := &domain.CacheSnapshot{
		Records:               records,
		SourceBatchCount:      batchCount,
		CapturedAt:            time.Now().UTC(),
		LatestRecordTimestamp: latest,
	}
	if err := r.cache.Put(ctx, snapshotKey(ownerID), snapshot); err != nil {
		log.Printf("[syncer] snapshot write failed for %s: %v", ownerID, err)
	}
}
