package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf_WrappedChain(t *testing.T) {
	base := New(ErrorCodeInvalidDateExpression, "bad date")
	wrapped := fmt.Errorf("resolve: %w", base)

	if got := CodeOf(wrapped); got != ErrorCodeInvalidDateExpression {
		t.Fatalf("CodeOf = %v, want %v", got, ErrorCodeInvalidDateExpression)
	}
	if !IsCode(wrapped, ErrorCodeInvalidDateExpression) {
		t.Fatalf("IsCode should see through fmt wrapping")
	}
	if CodeOf(stderrs.New("plain")) != ErrorCodeUnknown {
		t.Fatalf("foreign errors should map to unknown")
	}
}

func TestWrap_MessageAndUnwrap(t *testing.T) {
	cause := stderrs.New("connection reset")
	err := Wrapf(cause, ErrorCodeRepositoryFetchFailed, "fetch %s", "acme/api")

	if err.Error() != "fetch acme/api: connection reset" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !stderrs.Is(err, cause) {
		t.Fatalf("errors.Is should reach the cause")
	}
}

func TestWithOp_CopyOnWrite(t *testing.T) {
	orig := New(ErrorCodeUnsupportedFormat, "nope")
	tagged := WithOp(orig, "render")

	e, _ := As(tagged)
	if e.Op() != "render" {
		t.Fatalf("op = %q", e.Op())
	}
	o, _ := As(orig)
	if o.Op() != "" {
		t.Fatalf("original mutated: op = %q", o.Op())
	}
	if OpOf(fmt.Errorf("outer: %w", tagged)) != "render" {
		t.Fatalf("OpOf should see through wrapping")
	}
	plain := stderrs.New("x")
	if OpOf(plain) != "" {
		t.Fatalf("foreign error has no op")
	}
	if WithOp(plain, "y") != plain {
		t.Fatalf("foreign error should be returned unchanged")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeInvalidDateExpression, http.StatusBadRequest},
		{ErrorCodeUnsupportedFormat, http.StatusBadRequest},
		{ErrorCodeConfigurationMissing, http.StatusInternalServerError},
		{ErrorCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeRepositoryFetchFailed, http.StatusBadGateway},
		{ErrorCodeUnknown, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(New(c.code, "x")); got != c.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestWireFrom(t *testing.T) {
	if w := WireFrom(nil); w != (Wire{}) {
		t.Fatalf("nil error should give zero wire, got %+v", w)
	}
	w := WireFrom(New(ErrorCodeConfigurationMissing, "no org"))
	if w.Code != "configuration_missing" || w.Message != "no org" {
		t.Fatalf("unexpected wire %+v", w)
	}
}
