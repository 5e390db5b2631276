package vorm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/vorm/schema"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("vorm: entity not found")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("vorm: cannot start a transaction within a transaction")

	// ErrNoData is returned when creating an entity with no field set.
	ErrNoData = errors.New("vorm: no data to insert")

	// ErrNotPersisted is returned when updating, deleting or reloading an
	// entity that is not backed by a row.
	ErrNotPersisted = errors.New("vorm: entity is not persisted")

	// ErrFrozen is returned when registering metadata after the registry
	// was frozen by NewClient.
	ErrFrozen = schema.ErrFrozen
)

// NotFoundError is returned when a lookup matches no row. It matches
// ErrNotFound with errors.Is.
type NotFoundError struct {
	entity string
	id     any
}

func (e *NotFoundError) Error() string {
	if e.id == nil {
		return fmt.Sprintf("vorm: %s not found", e.entity)
	}
	return fmt.Sprintf("vorm: %s not found (id=%v)", e.entity, e.id)
}

func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// ID returns the primary key that was looked up, or nil.
func (e *NotFoundError) ID() any { return e.id }

// NewNotFoundError returns a NotFoundError for the entity type.
func NewNotFoundError(entity string) *NotFoundError {
	return &NotFoundError{entity: entity}
}

// NewNotFoundErrorWithID returns a NotFoundError for a primary key lookup.
func NewNotFoundErrorWithID(entity string, id any) *NotFoundError {
	return &NotFoundError{entity: entity, id: id}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NotSingularError is returned by Query.Only when more than one row
// matches.
type NotSingularError struct {
	entity string
}

func (e *NotSingularError) Error() string {
	return fmt.Sprintf("vorm: more than one %s matched", e.entity)
}

// NewNotSingularError returns a NotSingularError for the entity type.
func NewNotSingularError(entity string) *NotSingularError {
	return &NotSingularError{entity: entity}
}

// IsNotSingular reports whether err is, or wraps, a NotSingularError.
func IsNotSingular(err error) bool {
	var e *NotSingularError
	return errors.As(err, &e)
}

// NotLoadedError represents an error when attempting to access a relation
// that was not eager-loaded.
type NotLoadedError struct {
	relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("vorm: relation %q was not loaded", e.relation)
}

// NewNotLoadedError returns a new NotLoadedError for the given relation name.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{relation: relation}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// ValidationError represents a validation error for field values.
type ValidationError struct {
	Name string // Field or entity name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("vorm: validator failed for field %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err      error // Original error that triggered rollback
	Rollback error // Error returned by the rollback itself
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	if e.Rollback != nil {
		return fmt.Sprintf("vorm: rollback failed: %v: %v", e.Err, e.Rollback)
	}
	return fmt.Sprintf("vorm: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "vorm: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("vorm: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "all", "count", "get")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("vorm: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("vorm: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a driver error of a relation change.
type MutationError struct {
	Entity string // Entity type owning the relation
	Op     string // "add <relation>" or "remove <relation>"
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("vorm: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
