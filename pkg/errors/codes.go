package errors

// ErrorCode identifies a specific failure category.  Codes are stable strings
// so they can be emitted as metric labels and matched across process
// boundaries without importing this package's constants.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeUnknown            ErrorCode = "COMMON_000"
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeValidation         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeDatabaseError      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeExternalService    ErrorCode = "COMMON_009"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_010"
)

// Verification adapter error codes.
const (
	// ErrCodeAdapterTimeout marks a verification call that exceeded its
	// per-source deadline.  The adapter reports the outcome as unknown.
	ErrCodeAdapterTimeout ErrorCode = "ADAPTER_001"

	// ErrCodeAdapterTransport marks a network-level failure talking to a
	// verification source.  The adapter reports the outcome as unknown.
	ErrCodeAdapterTransport ErrorCode = "ADAPTER_002"

	// ErrCodeAdapterInvalidInput marks a malformed identifier rejected before
	// any network call (VAT format, LEI format).
	ErrCodeAdapterInvalidInput ErrorCode = "ADAPTER_003"
)

// Monitoring engine error codes.
const (
	// ErrCodeInvalidTransition marks an alert state transition attempted from
	// a state that does not permit it.  The alert is left unchanged.
	ErrCodeInvalidTransition ErrorCode = "ALERT_001"

	// ErrCodeUnknownFrequency marks a check frequency outside the closed set
	// {hourly, daily, weekly, monthly}.  This is a configuration error and is
	// never retried.
	ErrCodeUnknownFrequency ErrorCode = "SCHED_001"

	// ErrCodeCycleInProgress marks per-counterparty lock contention.  Callers
	// treat it as a no-op skip, not a failure.
	ErrCodeCycleInProgress ErrorCode = "SCHED_002"
)
