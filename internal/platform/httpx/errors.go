package httpx

import (
	"net/http"

	"github.com/pmws/pmws/internal/shared"
)

var kindStatus = map[shared.Kind]int{
	shared.KindValidation:                  http.StatusBadRequest,
	shared.KindNotFound:                    http.StatusNotFound,
	shared.KindAmbiguousRecord:             http.StatusNotAcceptable,
	shared.KindInvalidCredential:           http.StatusUnauthorized,
	shared.KindAccountNotApproved:          http.StatusUnauthorized,
	shared.KindAccountSuspended:            http.StatusUnauthorized,
	shared.KindAccountDeleted:              http.StatusUnauthorized,
	shared.KindDuplicateIdentity:           http.StatusConflict,
	shared.KindInvalidOrExpiredToken:       http.StatusForbidden,
	shared.KindTokenInvalidOrExpired:       http.StatusForbidden,
	shared.KindInvalidResetTokenOrIdentity: http.StatusForbidden,
	shared.KindTokenVerificationFailed:     http.StatusBadRequest,
	shared.KindUnauthenticated:             http.StatusUnauthorized,
	shared.KindUnauthorized:                http.StatusUnauthorized,
	shared.KindForbidden:                   http.StatusForbidden,
	shared.KindRateLimited:                 http.StatusTooManyRequests,
	shared.KindStatusUnchanged:             http.StatusBadRequest,
}

// StatusFor maps a failure kind to an HTTP status code.
func StatusFor(kind shared.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError maps typed errors to envelope responses. Internal causes are
// never echoed for server-side failures.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	Fail(w, StatusFor(kind), shared.UserSafeMessage(err), map[string]string{"kind": string(kind)})
}
