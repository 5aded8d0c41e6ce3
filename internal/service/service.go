package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"salespulse/backend/internal/analytics"
	"salespulse/backend/internal/domain"
	"salespulse/backend/internal/normalize"
	"salespulse/backend/internal/store"
	"salespulse/backend/internal/syncer"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service orchestrates ingestion, synchronization and dashboard assembly.
// Analysis itself is pure; the service only resolves records and windows.
type Service struct {
	repo         store.RecordStore
	reconciler   *syncer.Reconciler
	defaultOwner string
}

func New(repo store.RecordStore, reconciler *syncer.Reconciler, defaultOwner string) *Service {
	if defaultOwner == "" {
		defaultOwner = "merchant"
	}
	return &Service{
		repo:         repo,
		reconciler:   reconciler,
		defaultOwner: defaultOwner,
	}
}

// ownerFromContext scopes data to the authenticated account; the configured
// default owner covers dev mode where requests carry no actor.
func (s *Service) ownerFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return s.defaultOwner
}

// IngestUpload normalizes raw rows and persists them as one batch. A
// validation failure aborts the whole upload; nothing is persisted.
func (s *Service) IngestUpload(ctx context.Context, fileName string, rows []domain.RawSalesRow) (domain.UploadResult, error) {
	if actor, ok := ActorFromContext(ctx); ok {
		if actor.Role != "merchant" && actor.Role != "admin" {
			return domain.UploadResult{}, fmt.Errorf("merchant or admin role required")
		}
	}
	if len(rows) == 0 {
		return domain.UploadResult{}, fmt.Errorf("upload contains no rows")
	}

	records, skipped, err := normalize.Normalize(rows)
	if err != nil {
		return domain.UploadResult{}, err
	}

	owner := s.ownerFromContext(ctx)
	batch := domain.UploadBatch{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		FileName:   strings.TrimSpace(fileName),
		RowCount:   len(rows),
		UploadedAt: time.Now().UTC(),
	}
	for i := range records {
		records[i].BatchID = batch.ID
		records[i].OwnerID = owner
	}

	if err := s.repo.InsertBatch(ctx, batch, records); err != nil {
		return domain.UploadResult{}, err
	}

	bills := make(map[string]struct{}, len(records))
	for _, rec := range records {
		bills[rec.BillNumber] = struct{}{}
	}

	totalBatches, err := s.repo.CountBatches(ctx, owner)
	if err != nil {
		log.Printf("[service] WARN: batch count unavailable for %s: %v", owner, err)
	}

	if skipped > 0 {
		log.Printf("[service] upload %s: skipped %d rows without a bill number", batch.ID, skipped)
	}

	return domain.UploadResult{
		BatchID:      batch.ID,
		Records:      len(records),
		SkippedRows:  skipped,
		Bills:        len(bills),
		TotalBatches: totalBatches,
	}, nil
}

// Synchronize resolves the owner's full record set through the reconciler.
func (s *Service) Synchronize(ctx context.Context, progress syncer.ProgressFunc) ([]domain.SalesRecord, syncer.State, error) {
	return s.reconciler.Synchronize(ctx, s.ownerFromContext(ctx), progress)
}

// Dashboard synchronizes and analyzes. A zero current window defaults to the
// last 30 days; a zero comparison window defaults to the preceding period of
// equal length.
func (s *Service) Dashboard(ctx context.Context, current, comparison domain.PeriodWindow) (domain.DashboardResponse, error) {
	owner := s.ownerFromContext(ctx)

	if current.IsZero() {
		now := time.Now().UTC()
		current = domain.NewPeriodWindow(now.AddDate(0, 0, -29), now)
	}
	if comparison.IsZero() {
		comparison = current.Previous()
	}

	records, state, err := s.reconciler.Synchronize(ctx, owner, nil)
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	return domain.DashboardResponse{
		OwnerID:   owner,
		SyncState: string(state),
		Records:   len(records),
		Analysis:  analytics.Analyze(records, current, comparison),
	}, nil
}

// ListBatches exposes recent upload batches for the account screen.
func (s *Service) ListBatches(ctx context.Context, limit int) ([]domain.UploadBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListBatches(ctx, s.ownerFromContext(ctx), limit)
}
