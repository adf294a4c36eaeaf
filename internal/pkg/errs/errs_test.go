package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_UsesTable(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrSendFailed)

	req.Equal(ErrSendFailed, err.Code)
	req.Equal(KindDataAccess, err.Kind)
	req.Equal("Could not send message. Please try again.", err.Message)
	req.Equal(http.StatusBadGateway, err.Status)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	err := NewError(424242)

	require.Equal(t, ErrUnknown, err.Code)
	require.Equal(t, KindInternal, err.Kind)
}

func TestRejected(t *testing.T) {
	t.Run("carries the classifier reason", func(t *testing.T) {
		err := Rejected("Contains harassment.")
		require.Equal(t, KindModerationRejected, err.Kind)
		require.Equal(t, "Contains harassment.", err.Message)
	})

	t.Run("falls back to default reason", func(t *testing.T) {
		err := Rejected("   ")
		require.Equal(t, DefaultRejectionReason, err.Message)
	})
}

func TestWrap_KeepsCauseForLogsOnly(t *testing.T) {
	req := require.New(t)
	cause := errors.New("connection refused")

	err := Wrap(ErrLoadFailed, cause)

	req.ErrorIs(err, cause)
	req.Equal("Could not load data. Please try again.", err.Message)
	req.Contains(err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	req := require.New(t)

	req.Equal(0, CodeOf(nil))
	req.Equal(ErrUnknown, CodeOf(errors.New("boom")))
	req.Equal(ErrChatForbidden, CodeOf(fmt.Errorf("open chat: %w", NewError(ErrChatForbidden))))
}

func TestFrom(t *testing.T) {
	req := require.New(t)

	req.Nil(From(nil))

	original := NewError(ErrUnauthorized)
	req.Same(original, From(original))

	foreign := From(errors.New("boom"))
	req.Equal(ErrUnknown, foreign.Code)
	req.EqualError(foreign.Cause, "boom")
}
