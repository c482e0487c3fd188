package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groblegark/sentinel/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		detections      []byte
		location        sql.NullString
		duration        sql.NullFloat64
		lastSyncAttempt sql.NullTime
	)

	err := row.Scan(
		&e.ID,
		&e.Timestamp,
		&e.Kind,
		&detections,
		&e.Confidence,
		&e.DeviceID,
		&e.CameraID,
		&location,
		&duration,
		&e.Synced,
		&e.SyncAttempts,
		&lastSyncAttempt,
	)
	if err != nil {
		return nil, err
	}

	e.Location = location.String
	e.Duration = duration.Float64
	if lastSyncAttempt.Valid {
		t := lastSyncAttempt.Time
		e.LastSyncAttempt = &t
	}
	if len(detections) > 0 {
		if err := json.Unmarshal(detections, &e.Detections); err != nil {
			return nil, fmt.Errorf("decode detections: %w", err)
		}
	}

	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// scanQueueItem scans a single row into a model.QueueItem.
func scanQueueItem(row scannable) (*model.QueueItem, error) {
	var item model.QueueItem
	var (
		payload     []byte
		lastAttempt sql.NullTime
		lastError   sql.NullString
	)

	err := row.Scan(
		&item.ID,
		&item.EventID,
		&item.Kind,
		&payload,
		&item.Priority,
		&item.Attempts,
		&lastAttempt,
		&lastError,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.LastError = lastError.String
	if lastAttempt.Valid {
		t := lastAttempt.Time
		item.LastAttempt = &t
	}
	if len(payload) > 0 {
		item.Payload = json.RawMessage(payload)
	}

	return &item, nil
}

// scanQueueItems scans multiple rows into a slice of model.QueueItem pointers.
func scanQueueItems(rows *sql.Rows) ([]*model.QueueItem, error) {
	var items []*model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// marshalDetections encodes a detection list for the jsonb column. An empty
// list is stored as NULL to keep rows compact.
func marshalDetections(detections []model.Detection) ([]byte, error) {
	if len(detections) == 0 {
		return nil, nil
	}
	return json.Marshal(detections)
}

// nullString converts an empty string to a NULL-able sql value.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullFloat converts a zero float to a NULL-able sql value.
func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f != 0}
}

// nullTimePtr converts a *time.Time to a NULL-able sql value.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// jsonbBytes returns nil for empty JSON so the column stores NULL.
func jsonbBytes(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
