// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the ID families used across the store and correlation engine.
const (
	EventPrefix    = "evt-"
	QueuePrefix    = "syn-"
	SequencePrefix = "seq-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Event returns a new unique event ID.
func Event() (string, error) {
	return WithPrefix(EventPrefix)
}

// QueueItem returns a new unique sync queue item ID.
func QueueItem() (string, error) {
	return WithPrefix(QueuePrefix)
}

// Sequence returns a new correlation sequence ID.
func Sequence() (string, error) {
	return WithPrefix(SequencePrefix)
}

// WithPrefix returns a new unique ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
