// Package remote translates sync work into operations against a remote object
// namespace and merges remote state back into the local store.
package remote

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aws/smithy-go"
)

// ObjectInfo describes one remote object as returned by a listing call.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the interface for a remote object namespace (S3, MinIO, and
// similar). Delete of a missing object is not an error.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Kind classifies a remote operation failure so callers can present an
// actionable message.
type Kind string

const (
	KindAuth     Kind = "auth"      // credential rejected
	KindNotFound Kind = "not_found" // missing container or object
	KindNetwork  Kind = "network"   // connectivity or timeout
	KindRemote   Kind = "remote"    // any other remote-side failure
)

// Error wraps a remote failure with its classification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// classify wraps err with the Kind inferred from its cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ClassifyKind(err), Err: err}
}

// ClassifyKind infers the failure kind from a raw error. Already-classified
// errors keep their kind.
func ClassifyKind(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "TokenRefreshRequired":
			return KindAuth
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return KindNotFound
		}
		return KindRemote
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	return KindRemote
}

// IsNotFound reports whether err is classified as a missing object/container.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindNotFound
}
