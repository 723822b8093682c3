package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ali123/ali123/internal/constants"
	"github.com/ali123/ali123/internal/state"
	"github.com/ali123/ali123/types"
)

const queueColumns = `id, store_id, status, attempts, scheduled_at, payload, last_error, last_error_at, created_at, updated_at`

type ImportQueueStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewImportQueueStore(db *sql.DB, dialect Dialect) *ImportQueueStore {
	return &ImportQueueStore{db: db, dialect: dialect, now: time.Now}
}

func (s *ImportQueueStore) Add(ctx context.Context, payload types.ImportPayload, meta types.EntryMeta) (*types.QueueEntry, error) {
	now := types.CanonicalTime(s.now())
	scheduledAt := types.NormalizeScheduleTime(meta.ScheduledAt, now)
	storeID := meta.StoreID
	if storeID < 1 {
		storeID = constants.DefaultStoreID
	}

	payload.ID = 0
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode import payload: %w", err)
	}

	query := s.dialect.Rebind(`
		INSERT INTO import_queue (store_id, status, attempts, scheduled_at, payload, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?, ?)
		RETURNING id`)

	var id int64
	err = s.db.QueryRowContext(ctx, query, storeID, state.StatusPending, scheduledAt, string(body), now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert import entry: %w", err)
	}

	payload.ID = id
	return &types.QueueEntry{
		ID:          id,
		StoreID:     storeID,
		Status:      state.StatusPending,
		Attempts:    0,
		ScheduledAt: scheduledAt,
		Payload:     payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *ImportQueueStore) Update(ctx context.Context, id int64, update types.EntryUpdate) (*types.QueueEntry, error) {
	if update.IsEmpty() {
		return s.Get(ctx, id)
	}

	var sets []string
	var args []any

	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
	}
	if update.ScheduledAt != nil {
		sets = append(sets, "scheduled_at = ?")
		args = append(args, types.CanonicalTime(*update.ScheduledAt))
	}
	if update.Payload != nil {
		p := *update.Payload
		p.ID = 0
		body, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode import payload: %w", err)
		}
		sets = append(sets, "payload = ?")
		args = append(args, string(body))
	}
	if update.ClearLastError {
		sets = append(sets, "last_error = NULL", "last_error_at = NULL")
	} else {
		if update.LastError != nil {
			sets = append(sets, "last_error = ?")
			args = append(args, *update.LastError)
		}
		if update.LastErrorAt != nil {
			sets = append(sets, "last_error_at = ?")
			args = append(args, types.CanonicalTime(*update.LastErrorAt))
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, types.CanonicalTime(s.now()), id)

	where := ` WHERE id = ?`
	if update.ExpectStatus != nil {
		where += ` AND status = ?`
		args = append(args, *update.ExpectStatus)
	}

	query := s.dialect.Rebind(`UPDATE import_queue SET ` + strings.Join(sets, ", ") + where)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update import entry %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

func (s *ImportQueueStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM import_queue WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete import entry %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *ImportQueueStore) Get(ctx context.Context, id int64) (*types.QueueEntry, error) {
	query := s.dialect.Rebind(`SELECT ` + queueColumns + ` FROM import_queue WHERE id = ?`)
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get import entry %d: %w", id, err)
	}
	return entry, nil
}

func (s *ImportQueueStore) All(ctx context.Context, filter types.QueueFilter) (*types.PaginationResult[types.QueueEntry], error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	var args []any
	if len(filter.Statuses) > 0 {
		where += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.StoreID != nil {
		where += " AND store_id = ?"
		args = append(args, *filter.StoreID)
	}

	var total int
	countQuery := s.dialect.Rebind(`SELECT COUNT(*) FROM import_queue WHERE ` + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count import entries: %w", err)
	}

	selectQuery := s.dialect.Rebind(`SELECT ` + queueColumns + ` FROM import_queue WHERE ` + where +
		` ORDER BY scheduled_at ASC, id ASC LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, selectQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list import entries: %w", err)
	}
	defer rows.Close()

	var entries []types.QueueEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types.NewPaginationResult(entries, total, limit, offset), nil
}

// ClaimDue selects due pending candidates, then claims each one with a
// conditional update that returns the claimed row. A candidate whose update
// matched no row was taken by another caller and is skipped.
func (s *ImportQueueStore) ClaimDue(ctx context.Context, limit int, storeID *int64) ([]types.QueueEntry, error) {
	if limit <= 0 {
		limit = constants.ClaimBatchSize
	}
	now := types.CanonicalTime(s.now())

	candidates, err := s.dueCandidates(ctx, limit, storeID, now)
	if err != nil {
		return nil, err
	}

	claimQuery := `UPDATE import_queue SET status = ?, attempts = attempts + 1, updated_at = ? WHERE id = ? AND status = ?`
	if storeID != nil {
		claimQuery += ` AND store_id = ?`
	}
	claimQuery = s.dialect.Rebind(claimQuery + ` RETURNING ` + queueColumns)

	claimed := make([]types.QueueEntry, 0, len(candidates))
	for _, id := range candidates {
		args := []any{state.StatusProcessing, now, id, state.StatusPending}
		if storeID != nil {
			args = append(args, *storeID)
		}
		entry, err := scanEntry(s.db.QueryRowContext(ctx, claimQuery, args...))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return claimed, fmt.Errorf("claim import entry %d: %w", id, err)
		}
		claimed = append(claimed, *entry)
	}
	return claimed, nil
}

func (s *ImportQueueStore) dueCandidates(ctx context.Context, limit int, storeID *int64, now time.Time) ([]int64, error) {
	query := `SELECT id FROM import_queue WHERE status = ? AND scheduled_at <= ?`
	args := []any{state.StatusPending, now}
	if storeID != nil {
		query += ` AND store_id = ?`
		args = append(args, *storeID)
	}
	query += ` ORDER BY scheduled_at ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select due import entries: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ImportQueueStore) MarkFailed(ctx context.Context, id int64, message string) (bool, error) {
	now := types.CanonicalTime(s.now())
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE import_queue
		SET status = ?, last_error = ?, last_error_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		state.StatusFailed, message, now, now, id, state.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("mark import entry %d failed: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *ImportQueueStore) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE import_queue
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		state.StatusCompleted, types.CanonicalTime(s.now()), id, state.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("mark import entry %d completed: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *ImportQueueStore) CountByStatus(ctx context.Context, storeID *int64) (map[state.JobStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM import_queue`
	var args []any
	if storeID != nil {
		query += ` WHERE store_id = ?`
		args = append(args, *storeID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("count import entries by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[state.JobStatus]int, len(state.AllStatuses))
	for _, st := range state.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[state.JobStatus(status)] = count
	}
	return counts, rows.Err()
}

func scanEntry(row rowScanner) (*types.QueueEntry, error) {
	var (
		entry       types.QueueEntry
		status      string
		payload     []byte
		lastError   sql.NullString
		lastErrorAt sql.NullTime
	)
	err := row.Scan(
		&entry.ID,
		&entry.StoreID,
		&status,
		&entry.Attempts,
		&entry.ScheduledAt,
		&payload,
		&lastError,
		&lastErrorAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Status = state.JobStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of import entry %d: %w", entry.ID, err)
		}
	}
	entry.Payload.ID = entry.ID
	if lastError.Valid {
		entry.LastError = &lastError.String
	}
	if lastErrorAt.Valid {
		t := lastErrorAt.Time
		entry.LastErrorAt = &t
	}
	entry.ScheduledAt = entry.ScheduledAt.UTC()
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return &entry, nil
}
