package camera

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("EBUSY")
	err := NewError(ErrCodeOpenFailure, "hardware refused to open", cause)

	msg := err.Error()
	if !strings.Contains(msg, ErrCodeOpenFailure) || !strings.Contains(msg, "EBUSY") {
		t.Errorf("Error() = %q, want code and cause present", msg)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError(ErrCodeTimeout, "operation timed out", nil)

	if !IsCode(err, ErrCodeTimeout) {
		t.Error("IsCode missed a direct match")
	}
	if IsCode(err, ErrCodeClosed) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), ErrCodeTimeout) {
		t.Error("IsCode matched a non-camera error")
	}

	wrapped := fmt.Errorf("request failed: %w", err)
	if !IsCode(wrapped, ErrCodeTimeout) {
		t.Error("IsCode missed a wrapped match")
	}
}
