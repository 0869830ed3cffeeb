package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Failure classes surfaced by store adapters. Callers branch with errors.Is;
// anything that matches none of these passes through with its message verbatim.
var (
	// ErrUnavailable marks transient network/service failures. Retried.
	ErrUnavailable = errors.New("service unavailable")
	// ErrPermissionDenied marks stale-session/authorization failures. Not retried.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnauthenticated marks operations issued without an active session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFound marks reads of absent documents. Reads treat it as "absent".
	ErrNotFound = errors.New("not found")
)

// Classify wraps a raw transport/driver error with the matching failure class
// so nothing above the store layer ever has to know about pg error codes.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			// insufficient_privilege / invalid authorization
			return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
		case strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "53") || pgErr.Code == "57P03":
			// connection exception / insufficient resources / cannot_connect_now
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
	}

	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	return err
}

// Retryable reports whether an operation that failed with err is worth
// retrying with backoff. Only the transient class qualifies.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
