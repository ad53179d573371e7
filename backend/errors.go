package backend

import "fmt"

// ConnectionError reports a failure to reach the storage engine. It is fatal:
// the run aborts before any protocol starts.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError reports a failure to create or destroy schema structures. Fatal:
// no protocol can run without a usable schema.
type SchemaError struct {
	Backend string
	Err     error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: schema operation failed: %v", e.Backend, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// QueryError reports a single failed query. Per-sample: protocols record it
// and continue with the next query.
type QueryError struct {
	Backend string
	Op      string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
