package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New("notification.test", "something broke", http.StatusBadGateway)
	require.Equal(t, "something broke", err.Error())

	wrapped := err.WithInternal(stderrors.New("dial tcp: refused"))
	require.Equal(t, "something broke: dial tcp: refused", wrapped.Error())
	require.Equal(t, err.Code, wrapped.Code)
}

func TestWithInternalKeepsOriginalUntouched(t *testing.T) {
	inner := stderrors.New("boom")
	wrapped := ErrNoRecipients.WithInternal(inner)

	require.Nil(t, ErrNoRecipients.Internal)
	require.ErrorIs(t, wrapped, inner)
	require.Equal(t, ErrNoRecipients.Code, wrapped.Code)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrResolutionFailed)
	require.Equal(t, "notification.resolution_failed", appErr.Code)

	generic := FromError(stderrors.New("plain"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.EqualError(t, generic.Internal, "plain")
}

func TestWrap(t *testing.T) {
	inner := stderrors.New("db locked")
	err := Wrap(inner, "store unavailable")

	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
	require.ErrorIs(t, err, inner)
}
