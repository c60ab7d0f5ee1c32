package types

import "fmt"

// DriverErrorKind classifies browser/automation failures. The kind doubles
// as the failure signature used in oracle prompts and reports.
type DriverErrorKind string

const (
	DriverErrSelectorNotFound DriverErrorKind = "selector_not_found"
	DriverErrNavigation       DriverErrorKind = "navigation"
	DriverErrTimeout          DriverErrorKind = "timeout"
	DriverErrAssertion        DriverErrorKind = "assertion"
	DriverErrInvalidArgument  DriverErrorKind = "invalid_argument"
	DriverErrSession          DriverErrorKind = "session"
	DriverErrScript           DriverErrorKind = "script"
)

// DriverError is a browser or automation failure. During a normal test
// attempt it is expected, recoverable input to the healing loop.
type DriverError struct {
	Kind    DriverErrorKind `json:"kind"`
	Message string          `json:"message"`
	Err     error           `json:"-"`
}

func (e *DriverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("driver: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("driver: %s: %s", e.Kind, e.Message)
}

func (e *DriverError) Unwrap() error { return e.Err }

// NewDriverError builds a DriverError with an optional wrapped cause.
func NewDriverError(kind DriverErrorKind, message string, cause error) *DriverError {
	return &DriverError{Kind: kind, Message: message, Err: cause}
}

// OracleErrorKind classifies failures of the external decision service.
type OracleErrorKind string

const (
	OracleErrNetwork   OracleErrorKind = "network"
	OracleErrEmpty     OracleErrorKind = "empty_response"
	OracleErrMalformed OracleErrorKind = "malformed_response"
	OracleErrRateLimit OracleErrorKind = "rate_limited"
	OracleErrTimeout   OracleErrorKind = "timeout"
)

// OracleError is a failure talking to or interpreting the healing oracle.
// The oracle client retries these internally; they never propagate to the
// orchestrator as errors.
type OracleError struct {
	Kind    OracleErrorKind
	Message string
	Err     error
}

func (e *OracleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oracle: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("oracle: %s: %s", e.Kind, e.Message)
}

func (e *OracleError) Unwrap() error { return e.Err }

// ApplierErrorKind classifies healing application failures.
type ApplierErrorKind string

const (
	ApplierErrBackup ApplierErrorKind = "backup_failed"
	ApplierErrRead   ApplierErrorKind = "read_failed"
	ApplierErrWrite  ApplierErrorKind = "write_failed"
)

// ApplierError aborts only the current healing attempt; actions already
// applied stay applied.
type ApplierError struct {
	Kind ApplierErrorKind
	Path string
	Err  error
}

func (e *ApplierError) Error() string {
	return fmt.Sprintf("applier: %s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ApplierError) Unwrap() error { return e.Err }

// ConfigError is a startup configuration problem. It is fatal and surfaces
// at CLI startup before any test runs.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}
