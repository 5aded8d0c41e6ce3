package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"salespulse/backend/internal/domain"
	"salespulse/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS upload_batches (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			row_count INT NOT NULL DEFAULT 0,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sales_records (
			line_id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL REFERENCES upload_batches(id),
			owner_id TEXT NOT NULL,
			bill_number TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			branch TEXT NOT NULL DEFAULT '',
			channel TEXT NOT NULL DEFAULT '',
			category_group TEXT NOT NULL DEFAULT '',
			item_name TEXT NOT NULL DEFAULT '',
			quantity INT NOT NULL DEFAULT 0,
			unit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			net_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
			customer_name TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_records_owner_ts
			ON sales_records (owner_id, ts, line_id)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertBatch(ctx context.Context, batch domain.UploadBatch, records []domain.SalesRecord) error {
	if batch.ID == "" || batch.OwnerID == "" {
		return store.ErrInvalidBatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO upload_batches (id, owner_id, file_name, row_count, uploaded_at)
		VALUES ($1,$2,$3,$4,$5)
	`, batch.ID, batch.OwnerID, batch.FileName, batch.RowCount, batch.UploadedAt)
	if err != nil {
		return err
	}

	// Multi-row inserts in chunks keep the statement parameter count below
	// the Postgres limit while avoiding one round trip per line.
	const chunkSize = 200
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		placeholders := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*13)
		for i, rec := range chunk {
			base := i * 13
			placeholders = append(placeholders, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7,
				base+8, base+9, base+10, base+11, base+12, base+13,
			))
			args = append(args,
				rec.LineID, batch.ID, batch.OwnerID, rec.BillNumber, rec.Timestamp,
				rec.Branch, rec.Channel, rec.CategoryGroup, rec.ItemName,
				rec.Quantity, rec.UnitPrice, rec.NetRevenue, rec.CustomerName,
			)
		}

		query := `
			INSERT INTO sales_records
				(line_id, batch_id, owner_id, bill_number, ts, branch, channel,
				 category_group, item_name, quantity, unit_price, net_revenue, customer_name)
			VALUES ` + strings.Join(placeholders, ",")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) CountBatches(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM upload_batches WHERE owner_id = $1
	`, ownerID).Scan(&count)
	return count, err
}

func (s *Store) CountRecords(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sales_records WHERE owner_id = $1
	`, ownerID).Scan(&count)
	return count, err
}

func (s *Store) QueryRecords(ctx context.Context, filter store.QueryFilter) ([]domain.SalesRecord, error) {
	query := `
		SELECT line_id, batch_id, owner_id, bill_number, ts, branch, channel,
			category_group, item_name, quantity, unit_price, net_revenue, customer_name
		FROM sales_records
		WHERE owner_id = $1`
	args := []any{filter.OwnerID}

	if filter.After != nil {
		args = append(args, *filter.After)
		query += fmt.Sprintf(" AND ts > $%d", len(args))
	}
	if filter.Cursor != nil {
		args = append(args, filter.Cursor.Timestamp, filter.Cursor.LineID)
		query += fmt.Sprintf(" AND (ts, line_id) > ($%d, $%d)", len(args)-1, len(args))
	}
	query += " ORDER BY ts, line_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SalesRecord, 0, filter.Limit)
	for rows.Next() {
		var rec domain.SalesRecord
		err := rows.Scan(
			&rec.LineID, &rec.BatchID, &rec.OwnerID, &rec.BillNumber, &rec.Timestamp,
			&rec.Branch, &rec.Channel, &rec.CategoryGroup, &rec.ItemName,
			&rec.Quantity, &rec.UnitPrice, &rec.NetRevenue, &rec.CustomerName,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *Store) ListBatches(ctx context.Context, ownerID string, limit int) ([]domain.UploadBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, file_name, row_count, uploaded_at
		FROM upload_batches
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.UploadBatch, 0, limit)
	for rows.Next() {
		var b domain.UploadBatch
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.FileName, &b.RowCount, &b.UploadedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, strings.ToLower(strings.TrimSpace(user.Username)), user.Password, user.Role, user.Active, user.CreatedAt)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)), password)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
