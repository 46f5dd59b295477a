package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatusMapsTaxonomy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		code   Code
	}{
		{http.StatusBadRequest, CodeValidation},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeConflict},
		{http.StatusTooManyRequests, CodeRateLimit},
		{http.StatusBadGateway, CodeDependency},
		{http.StatusTeapot, CodeInternal},
	}
	for _, tc := range cases {
		err := FromStatus(tc.status, "nope")
		if err.Code() != tc.code {
			t.Fatalf("status %d: expected %s, got %s", tc.status, tc.code, err.Code())
		}
		if err.HTTPStatus() != tc.status {
			t.Fatalf("status %d not preserved, got %d", tc.status, err.HTTPStatus())
		}
		if err.Message() != "nope" {
			t.Fatalf("server message not preserved: %q", err.Message())
		}
	}
}

func TestFromStatusFallsBackToPublicMessage(t *testing.T) {
	t.Parallel()

	err := FromStatus(http.StatusUnauthorized, "")
	if err.Message() != "authentication required" {
		t.Fatalf("expected public message fallback, got %q", err.Message())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("socket closed")
	err := Wrap(CodeTransport, cause, "request failed")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if typed := As(fmt.Errorf("outer: %w", err)); typed == nil || typed.Code() != CodeTransport {
		t.Fatalf("expected typed error through wrapping, got %v", typed)
	}
}

func TestIsCode(t *testing.T) {
	t.Parallel()

	err := New(CodeConflict, "stock changed")
	if !IsCode(err, CodeConflict) {
		t.Fatal("expected conflict code match")
	}
	if IsCode(err, CodeValidation) {
		t.Fatal("unexpected validation code match")
	}
	if IsCode(errors.New("plain"), CodeConflict) {
		t.Fatal("plain errors must not match")
	}
}

func TestDumpFlattensChain(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeDependency, errors.New("dial tcp: refused"), "vendors fetch failed")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(d.Chain))
	}
}
