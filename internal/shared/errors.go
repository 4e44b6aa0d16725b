package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguousRecord indicates a lookup expected one row but matched several.
	ErrAmbiguousRecord = errors.New("multiple records found")
	// ErrDuplicate indicates a unique constraint rejected a write.
	ErrDuplicate = errors.New("duplicate entry")
)

// Kind classifies failures surfaced to callers.
type Kind string

// Failure kinds. The HTTP layer maps each kind to a status code.
const (
	KindInternal                    Kind = "internal"
	KindValidation                  Kind = "validation"
	KindNotFound                    Kind = "not_found"
	KindAmbiguousRecord             Kind = "ambiguous_record"
	KindInvalidCredential           Kind = "invalid_credential"
	KindAccountNotApproved          Kind = "account_not_approved"
	KindAccountSuspended            Kind = "account_suspended"
	KindAccountDeleted              Kind = "account_deleted"
	KindDuplicateIdentity           Kind = "duplicate_identity"
	KindInvalidOrExpiredToken       Kind = "invalid_or_expired_token"
	KindTokenInvalidOrExpired       Kind = "reset_token_invalid_or_expired"
	KindInvalidResetTokenOrIdentity Kind = "invalid_reset_token_or_identity"
	KindTokenVerificationFailed     Kind = "token_verification_failed"
	KindUnauthenticated             Kind = "unauthenticated"
	KindUnauthorized                Kind = "unauthorized"
	KindForbidden                   Kind = "forbidden"
	KindTransactionFailed           Kind = "transaction_failed"
	KindSignupFailed                Kind = "signup_failed"
	KindResetIssuanceFailed         Kind = "reset_issuance_failed"
	KindResetPasswordFailed         Kind = "reset_password_failed"
	KindRateLimited                 Kind = "rate_limited"
	KindStatusUnchanged             Kind = "status_unchanged"
)

// Error is a typed failure carrying a stable caller-facing message and an
// optional internal cause for operators.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError constructs an Error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so callers can compare
// against a template such as &Error{Kind: KindForbidden}.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserSafeMessage returns a message suitable for API consumers.
func UserSafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong while processing the request"
}

// Detail returns the internal cause of err for operator logs.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	if err != nil && e == nil {
		return err.Error()
	}
	return ""
}
