package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorInterface(t *testing.T) {
	err := NewFileNotFound("/tmp/missing.txt")
	if !strings.Contains(err.Error(), "FILE_NOT_FOUND") {
		t.Errorf("Error() = %q, want code in message", err.Error())
	}
	if !strings.Contains(err.Error(), "/tmp/missing.txt") {
		t.Errorf("Error() = %q, want path in message", err.Error())
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewBlocked("deny-literal"), ErrBlocked, true},
		{"different code", NewBlocked("deny-literal"), ErrTimeout, false},
		{"plain error", errors.New("plain"), ErrBlocked, false},
		{"nil error", nil, ErrBlocked, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToolUnavailableInstallable(t *testing.T) {
	err := NewToolUnavailable(".mp4", "mp3", "ffmpeg")
	if err.Details["installable"] != "ffmpeg" {
		t.Errorf("Details[installable] = %v, want ffmpeg", err.Details["installable"])
	}
	if !strings.Contains(err.Message, "valet install ffmpeg") {
		t.Errorf("Message = %q, want install hint", err.Message)
	}

	err = NewToolUnavailable(".mp4", "mp3", "")
	if _, ok := err.Details["installable"]; ok {
		t.Error("Details should not contain installable when none known")
	}
}

func TestNewInternalNilError(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want generic message", err.Message)
	}
}
