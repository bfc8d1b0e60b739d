package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), KindPersistence},
		{"not found", NotFound("op", "missing %s", "x"), KindNotFound},
		{"wrapped", fmt.Errorf("outer: %w", InvalidTransition("op", "nope")), KindInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindNotFound:          http.StatusNotFound,
		KindInvalidTransition: http.StatusConflict,
		KindConflict:          http.StatusConflict,
		KindInvalid:           http.StatusBadRequest,
		KindForbidden:         http.StatusForbidden,
		KindUnauthorized:      http.StatusUnauthorized,
		KindRateLimited:       http.StatusTooManyRequests,
		KindPersistence:       http.StatusInternalServerError,
	}
	for k, want := range tests {
		if got := HTTPStatus(k); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", k, got, want)
		}
	}
}

func TestMessage_HidesPersistence(t *testing.T) {
	err := Persistence("groups.add", errors.New("connection reset by 10.0.0.4"))
	if got := Message(err); got != "internal error" {
		t.Errorf("Message() = %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
	if got := Message(Invalid("op", "body too long")); got != "body too long" {
		t.Errorf("Message() = %q", got)
	}
}
