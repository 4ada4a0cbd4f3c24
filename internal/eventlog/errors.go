package eventlog

import "errors"

// Error kinds from spec.md §7, scoped to the event log's side of the
// contract. Conflict and TransportError are meant to be returned directly
// (wrapped with context via fmt.Errorf("...: %w", ErrConflict)) so callers
// can match with errors.Is.
var (
	// ErrConflict signals an optimistic-concurrency failure at append
	// time: a duplicate event_id, or a version slot already occupied.
	ErrConflict = errors.New("eventlog: conflict")

	// ErrTransport signals the store was unreachable or returned an
	// error unrelated to the data itself. Not retried inside the log.
	ErrTransport = errors.New("eventlog: transport error")

	// ErrSerialization signals a stored or streamed record could not be
	// decoded. The record is a poison message: skipped, not retried.
	ErrSerialization = errors.New("eventlog: serialization error")
)
