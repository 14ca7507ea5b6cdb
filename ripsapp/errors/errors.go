package errors

import "fmt"

// StaleReferenceError indicates the external clinical record behind an
// episode service link no longer exists. Aggregation must fail hard rather
// than default the line to zero, since that would understate a legal filing.
type StaleReferenceError struct {
	Err  error
	Kind string
	Ref  string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale reference for %s service %s: %s", e.Kind, e.Ref, e.Err)
}

// ValidationError rejects a request before any state is mutated.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation Error. Msg: %s, Err: %s", e.Msg, e.Err)
}

// EmptyEpisodeError rejects materializing an episode with zero services.
type EmptyEpisodeError struct {
	EpisodeNumber string
}

func (e *EmptyEpisodeError) Error() string {
	return fmt.Sprintf("episode %s has no services and cannot be billed", e.EpisodeNumber)
}

// AlreadyClosedError rejects a transition requiring an active episode.
type AlreadyClosedError struct {
	EpisodeNumber string
	Status        string
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("episode %s is %s, not active", e.EpisodeNumber, e.Status)
}

// AlreadyBilledError rejects mutating an episode that has been invoiced.
type AlreadyBilledError struct {
	EpisodeNumber string
}

func (e *AlreadyBilledError) Error() string {
	return fmt.Sprintf("episode %s has already been billed", e.EpisodeNumber)
}

// InvalidAmountError rejects non-positive financial amounts. Reversals must
// use a credit mechanism, never negative payment rows.
type InvalidAmountError struct {
	Amount string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be greater than zero", e.Amount)
}

// InvalidStateError rejects a status transition the invoice state machine
// does not allow.
type InvalidStateError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// MissingPatientDataError indicates a demographic field the RIPS schema
// requires is absent from the patient record.
type MissingPatientDataError struct {
	Field string
}

func (e *MissingPatientDataError) Error() string {
	return fmt.Sprintf("cannot encode RIPS without patient field %s", e.Field)
}

// UnroutableServiceTypeError is raised only when the fallback routing to
// otrosServicios cannot apply; normal service kinds never produce it.
type UnroutableServiceTypeError struct {
	Kind string
}

func (e *UnroutableServiceTypeError) Error() string {
	return fmt.Sprintf("service kind %q cannot be routed to any RIPS category", e.Kind)
}

// ConsistencyError aborts file generation when recomputed batch totals do not
// reconcile with the persisted ones.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency check failed: %s", e.Msg)
}
