package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"salespulse/backend/internal/domain"
	"salespulse/backend/internal/store"
)

// Store is the in-memory RecordStore used for dev mode and tests. It mirrors
// the Postgres store's ordering guarantees: records come back sorted by
// (timestamp, line id) ascending.
type Store struct {
	mu              sync.RWMutex
	records         []domain.SalesRecord
	batches         []domain.UploadBatch
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		usersByUsername: map[string]domain.UserAccount{},
	}
}

func envOr(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_MERCHANT_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These are never used
// in production (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	merchantPwd := envOr("SEED_MERCHANT_PASSWORD", "merchant123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_MERCHANT_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_MERCHANT_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"merchant", merchantPwd, "merchant"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

// NewSeeded returns a store with dev accounts and one small demo batch so a
// fresh checkout renders a populated dashboard.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	batchID := uuid.NewString()
	uploadedAt := time.Now().UTC()
	base := uploadedAt.AddDate(0, 0, -14)

	demo := []struct {
		bill     string
		day      int
		hour     int
		branch   string
		channel  string
		category string
		item     string
		qty      int
		revenue  float64
	}{
		{"DEMO-1001", 0, 11, "Central", "dine-in", "Food", "Nasi Goreng", 2, 90000},
		{"DEMO-1001", 0, 11, "Central", "dine-in", "Beverage", "Es Teh", 2, 16000},
		{"DEMO-1002", 1, 12, "Central", "takeaway", "Food", "Ayam Bakar", 1, 55000},
		{"DEMO-1003", 2, 19, "Harbor", "dine-in", "Food", "Sate Ayam", 3, 105000},
		{"DEMO-1004", 3, 19, "Harbor", "delivery", "Beverage", "Kopi Susu", 2, 44000},
		{"DEMO-1005", 5, 12, "Central", "dine-in", "Food", "Nasi Goreng", 1, 45000},
		{"DEMO-1006", 8, 18, "Harbor", "dine-in", "Dessert", "Es Campur", 2, 36000},
		{"DEMO-1007", 10, 12, "Central", "takeaway", "Food", "Ayam Bakar", 2, 110000},
	}

	records := make([]domain.SalesRecord, 0, len(demo))
	for _, d := range demo {
		records = append(records, domain.SalesRecord{
			LineID:        uuid.NewString(),
			BatchID:       batchID,
			OwnerID:       "merchant",
			BillNumber:    d.bill,
			Timestamp:     base.AddDate(0, 0, d.day).Add(time.Duration(d.hour) * time.Hour),
			Branch:        d.branch,
			Channel:       d.channel,
			CategoryGroup: d.category,
			ItemName:      d.item,
			Quantity:      d.qty,
			UnitPrice:     d.revenue / float64(d.qty),
			NetRevenue:    d.revenue,
			CustomerName:  "",
		})
	}

	batch := domain.UploadBatch{
		ID:         batchID,
		OwnerID:    "merchant",
		FileName:   "demo-seed.xlsx",
		RowCount:   len(records),
		UploadedAt: uploadedAt,
	}
	if err := s.InsertBatch(context.Background(), batch, records); err != nil {
		log.Fatalf("[memory-store] failed to seed demo batch: %v", err)
	}

	return s
}

func (s *Store) InsertBatch(_ context.Context, batch domain.UploadBatch, records []domain.SalesRecord) error {
	if batch.ID == "" || batch.OwnerID == "" {
		return store.ErrInvalidBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.batches {
		if existing.ID == batch.ID {
			return fmt.Errorf("%w: duplicate batch id %s", store.ErrInvalidBatch, batch.ID)
		}
	}

	for i := range records {
		records[i].BatchID = batch.ID
		records[i].OwnerID = batch.OwnerID
	}

	s.batches = append(s.batches, batch)
	s.records = append(s.records, records...)
	sort.SliceStable(s.records, func(i, j int) bool {
		if !s.records[i].Timestamp.Equal(s.records[j].Timestamp) {
			return s.records[i].Timestamp.Before(s.records[j].Timestamp)
		}
		return s.records[i].LineID < s.records[j].LineID
	})
	return nil
}

func (s *Store) CountBatches(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, batch := range s.batches {
		if batch.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountRecords(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *Store) QueryRecords(_ context.Context, filter store.QueryFilter) ([]domain.SalesRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SalesRecord, 0, filter.Limit)
	for _, rec := range s.records {
		if rec.OwnerID != filter.OwnerID {
			continue
		}
		if filter.After != nil && !rec.Timestamp.After(*filter.After) {
			continue
		}
		if filter.Cursor != nil && !afterCursor(rec, *filter.Cursor) {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func afterCursor(rec domain.SalesRecord, cursor store.PageCursor) bool {
	if rec.Timestamp.After(cursor.Timestamp) {
		return true
	}
	return rec.Timestamp.Equal(cursor.Timestamp) && rec.LineID > cursor.LineID
}

func (s *Store) ListBatches(_ context.Context, ownerID string, limit int) ([]domain.UploadBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UploadBatch, 0, limit)
	for i := len(s.batches) - 1; i >= 0; i-- {
		if s.batches[i].OwnerID != ownerID {
			continue
		}
		out = append(out, s.batches[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return fmt.Errorf("username required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return fmt.Errorf("username already exists")
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
