// Package apperr defines the closed set of failure kinds returned by the
// booking engine. Every exported operation in the service layer returns
// either nil or an *Error carrying one of these kinds.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidSchedule
	KindPastDateTime
	KindOutsideOperatingHours
	KindDuplicateClassSlot
	KindCapacityExceeded
	KindClassNotFound
	KindInvalidMember
	KindMemberNotFound
	KindAlreadyEnrolled
	KindNoSeatsAvailable
	KindQuotaExhausted
	KindConflictOnDelete
	KindStorageUnavailable
	KindNameTaken
	KindInvalidCredentials
	KindForbidden
	// KindInternal marks a local failure outside storage, such as hashing
	// a password or signing a token. It maps to 500 and is never retryable.
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:               "Unknown",
	KindValidation:            "ValidationError",
	KindInvalidSchedule:       "InvalidSchedule",
	KindPastDateTime:          "PastDateTime",
	KindOutsideOperatingHours: "OutsideOperatingHours",
	KindDuplicateClassSlot:    "DuplicateClassSlot",
	KindCapacityExceeded:      "CapacityExceeded",
	KindClassNotFound:         "ClassNotFound",
	KindInvalidMember:         "InvalidMember",
	KindMemberNotFound:        "MemberNotFound",
	KindAlreadyEnrolled:       "AlreadyEnrolled",
	KindNoSeatsAvailable:      "NoSeatsAvailable",
	KindQuotaExhausted:        "QuotaExhausted",
	KindConflictOnDelete:      "ConflictOnDelete",
	KindStorageUnavailable:    "StorageUnavailable",
	KindNameTaken:             "NameTaken",
	KindInvalidCredentials:    "InvalidCredentials",
	KindForbidden:             "Forbidden",
	KindInternal:              "InternalError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var defaultMessages = map[Kind]string{
	KindValidation:            "invalid input",
	KindInvalidSchedule:       "class must start on the hour",
	KindPastDateTime:          "class start time is in the past",
	KindOutsideOperatingHours: "class start time is outside operating hours",
	KindDuplicateClassSlot:    "another class is already scheduled at that time",
	KindCapacityExceeded:      "available seats cannot exceed max capacity",
	KindClassNotFound:         "class not found",
	KindInvalidMember:         "user is not a valid member",
	KindMemberNotFound:        "user not found",
	KindAlreadyEnrolled:       "member is already enrolled in this class",
	KindNoSeatsAvailable:      "no seats available",
	KindQuotaExhausted:        "monthly class quota exhausted",
	KindConflictOnDelete:      "deletion blocked by existing enrollments",
	KindStorageUnavailable:    "storage unavailable",
	KindNameTaken:             "name already taken",
	KindInvalidCredentials:    "invalid credentials",
	KindForbidden:             "operation not permitted for this role",
	KindInternal:              "internal error",
}

// Error is a tagged failure. Op names the operation that produced it and
// Err, when set, is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Message is the caller-facing text without the op or the cause.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return defaultMessages[e.Kind]
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match on Kind, so errors.Is(err, apperr.ErrClassNotFound)
// holds for any ClassNotFound regardless of Op or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrInvalidSchedule       = &Error{Kind: KindInvalidSchedule}
	ErrPastDateTime          = &Error{Kind: KindPastDateTime}
	ErrOutsideOperatingHours = &Error{Kind: KindOutsideOperatingHours}
	ErrDuplicateClassSlot    = &Error{Kind: KindDuplicateClassSlot}
	ErrCapacityExceeded      = &Error{Kind: KindCapacityExceeded}
	ErrClassNotFound         = &Error{Kind: KindClassNotFound}
	ErrInvalidMember         = &Error{Kind: KindInvalidMember}
	ErrMemberNotFound        = &Error{Kind: KindMemberNotFound}
	ErrAlreadyEnrolled       = &Error{Kind: KindAlreadyEnrolled}
	ErrNoSeatsAvailable      = &Error{Kind: KindNoSeatsAvailable}
	ErrQuotaExhausted        = &Error{Kind: KindQuotaExhausted}
	ErrConflictOnDelete      = &Error{Kind: KindConflictOnDelete}
	ErrStorageUnavailable    = &Error{Kind: KindStorageUnavailable}
	ErrNameTaken             = &Error{Kind: KindNameTaken}
	ErrInvalidCredentials    = &Error{Kind: KindInvalidCredentials}
	ErrForbidden             = &Error{Kind: KindForbidden}
	ErrInternal              = &Error{Kind: KindInternal}
)

func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Newf builds an error with a custom message, mostly for validation
// failures that need to name the offending field.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Storage passes tagged errors through untouched and wraps anything else
// as StorageUnavailable.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Wrap(KindStorageUnavailable, op, err)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the caller may retry the operation as-is.
// Only infrastructure failures qualify; business outcomes never change on
// a blind retry.
func Retryable(err error) bool {
	return KindOf(err) == KindStorageUnavailable
}
