package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndIsCode(t *testing.T) {
	cause := errors.New("status=401")
	err := Wrap("qna_error", "qna service request failed", cause)

	require.Equal(t, "qna service request failed: status=401", err.Error())
	require.True(t, IsCode(err, "qna_error"))
	require.False(t, IsCode(err, "send_failed"))
	require.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("handler: %w", err)
	require.Equal(t, "qna_error", CodeOf(wrapped))
}

func TestCodeOfPlainError(t *testing.T) {
	require.Empty(t, CodeOf(errors.New("plain")))
	require.False(t, IsCode(errors.New("plain"), ""))
	require.Equal(t, "no candidates", Wrap("empty", "no candidates", nil).Error())
}
