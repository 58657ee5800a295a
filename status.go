package rowqueue

import (
	"fmt"
	"time"
)

// State identifies the queue lifecycle stage stored in the most significant
// digit of a Status.
type State int8

const (
	StateCreated State = iota + 1
	StateWaiting
	StateWorking
	StateFinished
	StateCanceled
)

// Valid checks if the state is one of the five defined values
func (s State) Valid() bool {
	return s >= StateCreated && s <= StateCanceled
}

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateWaiting:
		return "waiting"
	case StateWorking:
		return "working"
	case StateFinished:
		return "finished"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("state(%d)", int8(s))
	}
}

// MaxAttempts is the hard ceiling of the attempts digit. The retry budget is
// capped one below it so the final failing attempt still fits in the digit.
const MaxAttempts = 9

const (
	stateUnit    int64 = 1e18 // state occupies the most significant of the 19 digits
	attemptsUnit int64 = 10   // attempts occupies the least significant digit
	maxPriority  int64 = 1e17 - 1
)

// Status packs (state, priority, attempts) into one sortable int64 rendered as
// exactly 19 decimal digits:
//
//	2  2018 03 27  14 43 25 759  0
//	 \    \  \  \    \  \  \  \   \
//	state  \  \  \  hour \  \  \  attempts
//	      year \  \   minute \  \
//	         month \      second \
//	               day       millisecond
//
// Numeric ordering of statuses equals queue ordering: all statuses of one
// state form a contiguous range, and within a state a lower (priority,
// attempts) pair sorts first. This is what lets stores answer "earliest
// eligible record" with a plain range-and-order query on a single indexed
// column.
type Status int64

// Combine packs state, moment, and attempts into a status. The moment is
// truncated (not rounded) to millisecond precision.
func Combine(state State, moment time.Time, attempts int) (Status, error) {
	priority, err := momentPriority(moment)
	if err != nil {
		return 0, err
	}
	return CombineRaw(state, priority, attempts)
}

// CombineRaw packs state, a raw 17-digit priority, and attempts into a status.
// The priority is not required to render as a calendar timestamp.
func CombineRaw(state State, priority int64, attempts int) (Status, error) {
	if !state.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidState, state)
	}
	if priority < 0 || priority > maxPriority {
		return 0, fmt.Errorf("%w: priority %d", ErrMomentOutOfRange, priority)
	}
	if attempts < 0 || attempts > MaxAttempts {
		return 0, fmt.Errorf("%w: got %d", ErrAttemptsOutOfRange, attempts)
	}
	return Status(int64(state)*stateUnit + priority*attemptsUnit + int64(attempts)), nil
}

// Parse splits the status into its state, moment, and attempts fields. It
// fails when the state digit is undefined or the priority digits do not
// render as a UTC timestamp.
func (s Status) Parse() (State, time.Time, int, error) {
	state := s.State()
	if !state.Valid() {
		return 0, time.Time{}, 0, fmt.Errorf("%w: %d", ErrMalformedStatus, int64(s))
	}
	moment, err := priorityMoment(s.Priority())
	if err != nil {
		return 0, time.Time{}, 0, fmt.Errorf("%w: %d", ErrMalformedStatus, int64(s))
	}
	return state, moment, s.Attempts(), nil
}

// State extracts the state digit without validating the remaining fields.
func (s Status) State() State {
	return State(int64(s) / stateUnit)
}

// Priority extracts the raw 17-digit priority field.
func (s Status) Priority() int64 {
	return (int64(s) % stateUnit) / attemptsUnit
}

// Attempts extracts the attempts digit.
func (s Status) Attempts() int {
	return int(int64(s) % attemptsUnit)
}

// Moment renders the priority field as a UTC timestamp with millisecond
// precision.
func (s Status) Moment() (time.Time, error) {
	moment, err := priorityMoment(s.Priority())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %d", ErrMalformedStatus, int64(s))
	}
	return moment, nil
}

// String renders the full 19-digit decimal form.
func (s Status) String() string {
	return fmt.Sprintf("%019d", int64(s))
}

// Min returns the inclusive lower bound of all statuses with the given state.
func Min(state State) Status {
	return Status(int64(state) * stateUnit)
}

// Max returns the inclusive upper bound of all statuses with the given state.
func Max(state State) Status {
	return Status((int64(state)+1)*stateUnit - 1)
}

// StatusRange is an inclusive filter over one state's statuses, for building
// external listing and monitoring queries.
type StatusRange struct {
	Min Status
	Max Status
}

// Range returns the status range covering every status with the given state.
func Range(state State) StatusRange {
	return StatusRange{Min: Min(state), Max: Max(state)}
}

// Contains reports whether the status falls inside the range.
func (r StatusRange) Contains(s Status) bool {
	return s >= r.Min && s <= r.Max
}

// Tally counts statuses by state. Values outside the defined states are
// ignored.
func Tally(statuses []Status) map[State]int {
	counts := make(map[State]int, 5)
	for _, s := range statuses {
		if state := s.State(); state.Valid() {
			counts[state]++
		}
	}
	return counts
}

// Created returns a created status with the given moment and attempts.
// A zero moment means the current time in UTC.
func Created(moment time.Time, attempts int) (Status, error) {
	return construct(StateCreated, moment, attempts)
}

// Waiting returns a waiting status with the given moment and attempts.
// A zero moment means the current time in UTC.
func Waiting(moment time.Time, attempts int) (Status, error) {
	return construct(StateWaiting, moment, attempts)
}

// Working returns a working status with the given moment and attempts.
// A zero moment means the current time in UTC.
func Working(moment time.Time, attempts int) (Status, error) {
	return construct(StateWorking, moment, attempts)
}

// Finished returns a finished status with the given moment and attempts.
// A zero moment means the current time in UTC.
func Finished(moment time.Time, attempts int) (Status, error) {
	return construct(StateFinished, moment, attempts)
}

// Canceled returns a canceled status with the given moment and attempts.
// A zero moment means the current time in UTC.
func Canceled(moment time.Time, attempts int) (Status, error) {
	return construct(StateCanceled, moment, attempts)
}

func construct(state State, moment time.Time, attempts int) (Status, error) {
	if moment.IsZero() {
		moment = time.Now().UTC()
	}
	return Combine(state, moment, attempts)
}

// momentPriority renders a timestamp as YYYYMMDDHHMMSSmmm in UTC, truncating
// sub-millisecond precision.
func momentPriority(moment time.Time) (int64, error) {
	m := moment.UTC()
	year := m.Year()
	if year < 1 || year > 9999 {
		return 0, fmt.Errorf("%w: year %d", ErrMomentOutOfRange, year)
	}
	p := int64(year)
	p = p*100 + int64(m.Month())
	p = p*100 + int64(m.Day())
	p = p*100 + int64(m.Hour())
	p = p*100 + int64(m.Minute())
	p = p*100 + int64(m.Second())
	p = p*1000 + int64(m.Nanosecond())/int64(time.Millisecond)
	return p, nil
}

func priorityMoment(priority int64) (time.Time, error) {
	p := priority
	ms := p % 1000
	p /= 1000
	sec := p % 100
	p /= 100
	minute := p % 100
	p /= 100
	hour := p % 100
	p /= 100
	day := p % 100
	p /= 100
	month := p % 100
	p /= 100
	year := p

	moment := time.Date(
		int(year), time.Month(month), int(day),
		int(hour), int(minute), int(sec),
		int(ms)*int(time.Millisecond),
		time.UTC,
	)

	// time.Date normalizes out-of-range components (month 13 becomes January of
	// the next year), so a round trip that changes the digits means the
	// priority was never a real timestamp.
	rendered, err := momentPriority(moment)
	if err != nil || rendered != priority {
		return time.Time{}, fmt.Errorf("%w: priority %d", ErrMomentOutOfRange, priority)
	}
	return moment, nil
}
