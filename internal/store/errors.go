package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/angelmondragon/plexo-core/pkg/db"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
)

// translate maps raw driver failures onto typed errors. Typed errors pass through.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op+": unique index violated")
	case isUnavailable(err):
		return pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, op+": storage unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, op+": cancelled")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
}

// abort converts a failed transaction into a TRANSACTION_FAILURE unless the
// failure is already a domain error raised by the caller's function.
func abort(err error, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeInternal:
			return pkgerrors.Wrap(pkgerrors.CodeTransactionFailure, err, op+": aborted")
		default:
			return err
		}
	}
	if isUnavailable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, op+": storage unavailable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransactionFailure, err, op+": aborted")
}

func isUnavailable(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "unable to open database") ||
		strings.Contains(msg, "connection refused")
}
