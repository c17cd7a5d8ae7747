package rpc

import (
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FromStatus turns a CredentialService status error back into the matching
// common sentinel. Errors that carry no status are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.AlreadyExists:
		return common.ErrEmailTaken
	case codes.Unauthenticated:
		switch st.Message() {
		case common.ErrInvalidCredentials.Error():
			return common.ErrInvalidCredentials
		case common.ErrInvalidOrExpiredRefreshToken.Error():
			return common.ErrInvalidOrExpiredRefreshToken
		case "token expired":
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	case codes.InvalidArgument:
		return common.ErrInvalidInput
	case codes.Unavailable, codes.DeadlineExceeded:
		return common.ErrUnavailable
	default:
		return common.ErrorInternal
	}
}
