package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/lakeconsole/internal/model"
)

// ErrNotFound is returned when a cached record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertPipelines inserts or replaces a batch of pipelines. FetchedAt is
// stamped with the current time when unset.
func (s *SQLiteStore) UpsertPipelines(ctx context.Context, pipelines []model.Pipeline) error {
	if len(pipelines) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO pipelines (
			id, blueprint_id, status,
			finished_tasks, total_tasks, message, spent_seconds,
			began_at, finished_at, created_at, fetched_at
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range pipelines {
		fetchedAt := p.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = fetchedAt
		}

		_, err = stmt.ExecContext(ctx,
			p.ID, p.BlueprintID, string(p.Status),
			p.FinishedTasks, p.TotalTasks, p.Message, p.SpentSeconds,
			utcPtr(p.BeganAt), utcPtr(p.FinishedAt), createdAt.UTC(), fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting pipeline %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// GetPipelines retrieves cached pipelines matching the filter. Results are
// newest first unless a sort column is given.
func (s *SQLiteStore) GetPipelines(ctx context.Context, opts PipelineFilter) ([]model.Pipeline, error) {
	var conditions []string
	var args []interface{}

	if opts.BlueprintID != nil {
		conditions = append(conditions, "blueprint_id = ?")
		args = append(args, *opts.BlueprintID)
	}
	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*opts.Status))
	}

	query := "SELECT * FROM pipelines"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy, direction := "id", "DESC"
	if opts.SortBy != "" {
		allowedSorts := map[string]bool{
			"id":          true,
			"created_at":  true,
			"began_at":    true,
			"finished_at": true,
		}
		if allowedSorts[opts.SortBy] {
			sortBy = opts.SortBy
			direction = "ASC"
			if opts.SortDesc {
				direction = "DESC"
			}
		}
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", opts.Offset)
		}
	}

	var pipelines []model.Pipeline
	if err := s.db.SelectContext(ctx, &pipelines, query, args...); err != nil {
		return nil, fmt.Errorf("querying pipelines: %w", err)
	}
	return pipelines, nil
}

// GetPipelineByID retrieves a single cached pipeline.
func (s *SQLiteStore) GetPipelineByID(ctx context.Context, id int) (*model.Pipeline, error) {
	var p model.Pipeline
	err := s.db.GetContext(ctx, &p, "SELECT * FROM pipelines WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting pipeline %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting pipeline %d: %w", id, err)
	}
	return &p, nil
}

// PrunePipelines keeps only the newest keep pipelines of a blueprint.
func (s *SQLiteStore) PrunePipelines(ctx context.Context, blueprintID int, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pipelines
		WHERE blueprint_id = ? AND id NOT IN (
			SELECT id FROM pipelines WHERE blueprint_id = ? ORDER BY id DESC LIMIT ?
		)`,
		blueprintID, blueprintID, keep,
	)
	if err != nil {
		return fmt.Errorf("pruning pipelines of blueprint %d: %w", blueprintID, err)
	}
	return nil
}

// CreateNotification inserts a new notification record. A second
// notification for the same pipeline and status is ignored.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications (id, blueprint_id, pipeline_id, status, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.BlueprintID, n.PipelineID, string(n.Status), n.Message,
		boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

// GetUnreadNotifications retrieves all notifications that have not been read,
// ordered by creation time descending.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, blueprint_id, pipeline_id, status, message, read, created_at FROM notifications WHERE read = 0 ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead clears the unread counter.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE notifications SET read = 1 WHERE read = 0"); err != nil {
		return fmt.Errorf("marking notifications as read: %w", err)
	}
	return nil
}

// scanNotification scans a notification row from a sqlx.Rows result set.
func scanNotification(rows *sqlx.Rows) (model.Notification, error) {
	var (
		n         model.Notification
		status    string
		readInt   int
		createdAt time.Time
	)

	err := rows.Scan(
		&n.ID, &n.BlueprintID, &n.PipelineID, &status, &n.Message,
		&readInt, &createdAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Status = model.PipelineStatus(status)
	n.Read = readInt != 0
	n.CreatedAt = createdAt

	return n, nil
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
