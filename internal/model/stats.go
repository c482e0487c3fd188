package model

// StorageStats summarizes local storage usage.
type StorageStats struct {
	TotalEvents    int   `json:"total_events"`
	UnsyncedEvents int   `json:"unsynced_events"`
	BytesUsed      int64 `json:"bytes_used"` // estimate, event rows + media
	QueueLength    int   `json:"queue_length"`
}
