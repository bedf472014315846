package grpc

import (
	"errors"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is the ErrorInfo domain of every status this service returns.
const ErrorDomain = "gophguard"

// Reasons carried in errdetails.ErrorInfo besides the token reasons of
// auth.Reason.
const (
	ReasonInvalidCredentials = "INVALID_CREDENTIALS"
	ReasonAccountLocked      = "ACCOUNT_LOCKED"
	ReasonWeakPassword       = "WEAK_PASSWORD"
	ReasonValidation         = "VALIDATION_FAILED"
	ReasonAlreadyExists      = "ALREADY_EXISTS"
	ReasonNotFound           = "NOT_FOUND"
	ReasonDecryption         = "DECRYPTION_FAILED"
	ReasonInternal           = "INTERNAL"
)

// toStatus maps the error taxonomy onto a gRPC status. Public messages stay
// generic; the machine-readable reason travels in ErrorInfo.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var (
		code   codes.Code
		msg    string
		reason string
	)

	switch {
	case errors.Is(err, common.ErrInvalidToken):
		code, msg, reason = codes.Unauthenticated, "invalid token", publicTokenReason(err)
	case errors.Is(err, common.ErrInvalidCredentials):
		code, msg, reason = codes.Unauthenticated, "invalid credentials", ReasonInvalidCredentials
	case errors.Is(err, common.ErrAccountLocked):
		code, msg, reason = codes.PermissionDenied, "account locked", ReasonAccountLocked
	case errors.Is(err, common.ErrWeakPassword):
		code, msg, reason = codes.InvalidArgument, err.Error(), ReasonWeakPassword
	case errors.Is(err, common.ErrorValidation):
		code, msg, reason = codes.InvalidArgument, err.Error(), ReasonValidation
	case errors.Is(err, common.ErrorAlreadyExists):
		code, msg, reason = codes.AlreadyExists, "already exists", ReasonAlreadyExists
	case errors.Is(err, common.ErrorNotFound):
		code, msg, reason = codes.NotFound, "not found", ReasonNotFound
	case errors.Is(err, common.ErrDecryption), errors.Is(err, common.ErrInvalidBlobFormat):
		code, msg, reason = codes.DataLoss, "entry unreadable", ReasonDecryption
	default:
		code, msg, reason = codes.Internal, "internal error", ReasonInternal
	}

	st := status.New(code, msg)
	withInfo, detailErr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain})
	if detailErr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// publicTokenReason narrows auth.Reason to the codes callers may see.
// Issuer and audience mismatches read as malformed; the precise cause is
// kept for metrics and logs.
func publicTokenReason(err error) string {
	switch r := auth.Reason(err); r {
	case auth.ReasonWrongIssuer, auth.ReasonWrongAudience:
		return auth.ReasonMalformed
	default:
		return r
	}
}

// ReasonOf extracts the ErrorInfo reason from a status error, or "".
func ReasonOf(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
