package core

import "fmt"

// CodecError is returned by PoolCodec.Decode. It is recoverable within
// PoolCatalogue: a rejected candidate is simply dropped, never fatal to a
// discovery or refresh cycle.
type CodecError struct {
	Kind CodecErrorKind
	// Owner is set for Unsupported.
	Owner ProgramId
	// Actual/Required are set for TooShort.
	Actual, Required int
	// Status is set for InvalidStatus.
	Status uint64
	// Attempted is set for AllLayoutsFailed.
	Attempted int
	// Address is set for VaultFetchFailed.
	Address PoolAddress
	Err     error
}

type CodecErrorKind uint8

const (
	CodecUnsupported CodecErrorKind = iota
	CodecTooShort
	CodecInvalidStatus
	CodecAllLayoutsFailed
	CodecVaultFetchFailed
	CodecZeroAddressField
)

func (e *CodecError) Error() string {
	switch e.Kind {
	case CodecUnsupported:
		return fmt.Sprintf("codec: unsupported program owner %s", e.Owner)
	case CodecTooShort:
		return fmt.Sprintf("codec: account data too short: have %d, need %d", e.Actual, e.Required)
	case CodecInvalidStatus:
		return fmt.Sprintf("codec: invalid status %d", e.Status)
	case CodecAllLayoutsFailed:
		return fmt.Sprintf("codec: all %d layout candidates failed", e.Attempted)
	case CodecVaultFetchFailed:
		return fmt.Sprintf("codec: vault fetch failed for %s: %v", e.Address, e.Err)
	case CodecZeroAddressField:
		return "codec: zero address in decoded field"
	default:
		return "codec: unknown error"
	}
}

func (e *CodecError) Unwrap() error { return e.Err }

func errUnsupported(owner ProgramId) error {
	return &CodecError{Kind: CodecUnsupported, Owner: owner}
}

func errTooShort(actual, required int) error {
	return &CodecError{Kind: CodecTooShort, Actual: actual, Required: required}
}

func errInvalidStatus(status uint64) error {
	return &CodecError{Kind: CodecInvalidStatus, Status: status}
}

func errAllLayoutsFailed(attempted int) error {
	return &CodecError{Kind: CodecAllLayoutsFailed, Attempted: attempted}
}

func errVaultFetchFailed(addr PoolAddress, inner error) error {
	return &CodecError{Kind: CodecVaultFetchFailed, Address: addr, Err: inner}
}

func errZeroAddressField() error {
	return &CodecError{Kind: CodecZeroAddressField}
}

// ClientError wraps a transport/RPC failure from ChainClient. It is
// recoverable by retrying next cycle; repeated occurrences escalate to the
// coordinator's backoff.
type ClientError struct {
	Op  string
	Err error
}

func (e *ClientError) Error() string { return fmt.Sprintf("chain client: %s: %v", e.Op, e.Err) }
func (e *ClientError) Unwrap() error { return e.Err }

// CatalogueError reports a failure of the pool discovery/refresh pipeline.
type CatalogueError struct {
	Kind CatalogueErrorKind
	Err  error
}

type CatalogueErrorKind uint8

const (
	// CatalogueNoOperationalPools is fatal for the current cycle: every
	// discovery tier including the fallback list produced no validated
	// pool.
	CatalogueNoOperationalPools CatalogueErrorKind = iota
	// CatalogueDeclaredKindMismatch means a directory's declared protocol
	// kind for a candidate disagrees with what the on-chain account owner
	// actually decodes as.
	CatalogueDeclaredKindMismatch
)

func (e *CatalogueError) Error() string {
	switch e.Kind {
	case CatalogueNoOperationalPools:
		return "catalogue: no operational pools discovered"
	case CatalogueDeclaredKindMismatch:
		return fmt.Sprintf("catalogue: declared kind mismatch: %v", e.Err)
	default:
		return fmt.Sprintf("catalogue: error: %v", e.Err)
	}
}

func (e *CatalogueError) Unwrap() error { return e.Err }

var errNoOperationalPools = &CatalogueError{Kind: CatalogueNoOperationalPools}

// ScannerError reports a scan-time condition. NoCommonToken is a silent
// skip, never logged as an error; it is exported as a
// sentinel purely so callers can distinguish "no route" from a real bug.
type ScannerError struct {
	Kind ScannerErrorKind
}

type ScannerErrorKind uint8

const (
	ScannerNoCommonToken ScannerErrorKind = iota
)

func (e *ScannerError) Error() string { return "scanner: no common token between pools" }

var errNoCommonToken = &ScannerError{Kind: ScannerNoCommonToken}

// PlannerError reports a planning failure. Unsupported means the
// opportunity's pool kind has no instruction-building rule. The coordinator
// plans only the top-ranked opportunity of a cycle, so this error fails that
// cycle; lower-ranked opportunities are not tried in its place.
type PlannerError struct {
	Kind PlannerErrorKind
	PoolKind PoolKind
}

type PlannerErrorKind uint8

const (
	PlannerUnsupported PlannerErrorKind = iota
)

func (e *PlannerError) Error() string {
	return fmt.Sprintf("planner: unsupported pool kind %s", e.PoolKind)
}

func errPlannerUnsupported(kind PoolKind) error {
	return &PlannerError{Kind: PlannerUnsupported, PoolKind: kind}
}

// ExecutionError reports a failure after a plan has been handed to the
// chain client for signing/submission.
type ExecutionError struct {
	Kind   ExecutionErrorKind
	Err    error
}

type ExecutionErrorKind uint8

const (
	ExecutionPrecheck ExecutionErrorKind = iota
	ExecutionSubmissionRejected
	ExecutionConfirmationTimeout
	ExecutionPostConditionFailed
)

func (k ExecutionErrorKind) String() string {
	switch k {
	case ExecutionPrecheck:
		return "precheck"
	case ExecutionSubmissionRejected:
		return "submission_rejected"
	case ExecutionConfirmationTimeout:
		return "confirmation_timeout"
	case ExecutionPostConditionFailed:
		return "post_condition_failed"
	default:
		return "unknown"
	}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution: %s: %v", e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
