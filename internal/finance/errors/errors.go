package errors

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

func IsValidationError(err error) bool {
	var validationError *ValidationError
	ok := errors.As(err, &validationError)
	return ok
}

var ErrNotFound = errors.New("resource not found")

var ErrInvalidCategory = NewValidationError("Invalid category")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError hides a database failure from callers while keeping it for logs.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var storeError *StoreError
	return errors.As(err, &storeError)
}

// MapStoreError classifies a database error returned by op.
func MapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return NewValidationError("Resource already exists")
		case pgerrcode.ForeignKeyViolation:
			return NewValidationError("Invalid reference")
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.StringDataRightTruncationDataException:
			return NewValidationError("Invalid field value")
		case pgerrcode.InvalidTextRepresentation, pgerrcode.InvalidDatetimeFormat:
			return NewValidationError("Invalid field format")
		}
	}

	return &StoreError{Op: op, Err: err}
}
