package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/groblegark/sentinel/internal/model"
	"github.com/groblegark/sentinel/internal/store"
)

// eventColumns is the column list used for SELECT statements on the events
// table. Media lives in its own table and is never part of an event scan.
const eventColumns = `id, ts, kind, detections, confidence,
	device_id, camera_id, location, duration,
	synced, sync_attempts, last_sync_attempt`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapWriteErr translates driver-level failures into the store error taxonomy.
// Postgres class 53 is "insufficient resources" (53100 = disk_full).
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "53") {
		return fmt.Errorf("%w: %s", store.ErrQuotaExceeded, pqErr.Message)
	}
	return err
}

func querySaveEvent(ctx context.Context, db executor, e *model.Event) error {
	detections, err := marshalDetections(e.Detections)
	if err != nil {
		return fmt.Errorf("encode detections: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO events (
			id, ts, kind, detections, confidence,
			device_id, camera_id, location, duration,
			synced, sync_attempts, last_sync_attempt
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)`,
		e.ID,
		e.Timestamp,
		string(e.Kind),
		detections,
		e.Confidence,
		e.DeviceID,
		e.CameraID,
		nullString(e.Location),
		nullFloat(e.Duration),
		e.Synced,
		e.SyncAttempts,
		nullTimePtr(e.LastSyncAttempt),
	)
	if err != nil {
		return mapWriteErr(err)
	}

	if len(e.Image) > 0 {
		if err := querySaveMedia(ctx, db, e.ID, store.MediaImage, e.Image); err != nil {
			return err
		}
	}
	if len(e.Video) > 0 {
		if err := querySaveMedia(ctx, db, e.ID, store.MediaVideo, e.Video); err != nil {
			return err
		}
	}
	return nil
}

func querySaveMedia(ctx context.Context, db executor, eventID string, kind store.MediaKind, data []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO media (event_id, kind, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, kind) DO UPDATE SET data = $3`,
		eventID, string(kind), data,
	)
	return mapWriteErr(err)
}

func queryGetEvent(ctx context.Context, db executor, id string) (*model.Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT kind, data FROM media WHERE event_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var data []byte
		if err := rows.Scan(&kind, &data); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		switch store.MediaKind(kind) {
		case store.MediaImage:
			e.Image = data
		case store.MediaVideo:
			e.Video = data
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("media rows: %w", err)
	}

	return e, nil
}

func queryListEvents(ctx context.Context, db executor, filter model.EventFilter) ([]*model.Event, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.Since != nil {
		whereClauses = append(whereClauses, "ts >= "+nextArg())
		args = append(args, *filter.Since)
	}

	if filter.Kind != "" {
		whereClauses = append(whereClauses, "kind = "+nextArg())
		args = append(args, string(filter.Kind))
	}

	if filter.OnlyUnsynced {
		whereClauses = append(whereClauses, "NOT synced")
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Newest first via the ts index; media columns are never loaded here.
	query := "SELECT " + eventColumns + " FROM events" + whereSQL + " ORDER BY ts DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// queryMarkEventSynced flips the synced flag. An already-synced row is left
// untouched so its last_sync_attempt timestamp is not rewritten.
func queryMarkEventSynced(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE events
		SET synced = TRUE, last_sync_attempt = NOW()
		WHERE id = $1 AND NOT synced`,
		id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Zero rows means either already synced (fine) or missing.
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT TRUE FROM events WHERE id = $1`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func queryRecordSyncAttempt(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE events
		SET sync_attempts = sync_attempts + 1, last_sync_attempt = NOW()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func queryDeleteEventsBefore(ctx context.Context, db executor, days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	// Unsynced events are never auto-deleted regardless of age.
	res, err := db.ExecContext(ctx, `
		DELETE FROM events
		WHERE synced AND ts < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func querySaveSettings(ctx context.Context, db executor, s *model.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (id, data, last_modified)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = $2, last_modified = $3`,
		model.SettingsID, data, s.LastModified,
	)
	return mapWriteErr(err)
}

func queryGetSettings(ctx context.Context, db executor) (*model.Settings, error) {
	var data []byte
	err := db.QueryRowContext(ctx, `
		SELECT data FROM settings WHERE id = $1`, model.SettingsID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var s model.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}

func queryEnqueueSyncItem(ctx context.Context, db executor, item *model.QueueItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_queue (
			id, event_id, kind, payload, priority,
			attempts, last_attempt, last_error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			payload = $4,
			priority = $5,
			attempts = $6,
			last_attempt = $7,
			last_error = $8`,
		item.ID,
		item.EventID,
		string(item.Kind),
		jsonbBytes(item.Payload),
		item.Priority,
		item.Attempts,
		nullTimePtr(item.LastAttempt),
		nullString(item.LastError),
		item.CreatedAt,
	)
	return mapWriteErr(err)
}

func queryListSyncQueue(ctx context.Context, db executor, limit int) ([]*model.QueueItem, error) {
	query := `
		SELECT id, event_id, kind, payload, priority,
			attempts, last_attempt, last_error, created_at
		FROM sync_queue
		ORDER BY priority DESC, created_at ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync queue: %w", err)
	}
	defer rows.Close()

	return scanQueueItems(rows)
}

// queryRemoveSyncQueueItem deletes a queue item. Removing an already-removed
// item is not an error; the drain pass and download path may race benignly.
func queryRemoveSyncQueueItem(ctx context.Context, db executor, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = $1`, id)
	return err
}

func queryStats(ctx context.Context, db executor) (*model.StorageStats, error) {
	stats := &model.StorageStats{}

	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT synced THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pg_column_size(events.*)), 0)
		FROM events`).Scan(
		&stats.TotalEvents,
		&stats.UnsyncedEvents,
		&stats.BytesUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}

	var mediaBytes int64
	err = db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(octet_length(data)), 0) FROM media`).Scan(&mediaBytes)
	if err != nil {
		return nil, fmt.Errorf("media stats: %w", err)
	}
	stats.BytesUsed += mediaBytes

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_queue`).Scan(&stats.QueueLength)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}

	return stats, nil
}
