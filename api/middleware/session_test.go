package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionEchoesExistingID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("X-Session-Id", "sess-known")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "sess-known" {
		t.Fatalf("handler saw session %q, want sess-known", seen)
	}
	if got := w.Header().Get("X-Session-Id"); got != "sess-known" {
		t.Fatalf("echoed header %q, want sess-known", got)
	}
}

func TestSessionMintsIDWhenMissing(t *testing.T) {
	t.Parallel()

	var seen string
	handler := Session(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

	if seen == "" {
		t.Fatal("no session id minted")
	}
	if got := w.Header().Get("X-Session-Id"); got != seen {
		t.Fatalf("header %q does not match context id %q", got, seen)
	}

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if w2.Header().Get("X-Session-Id") == seen {
		t.Fatal("distinct requests without a header must get distinct sessions")
	}
}

func TestSessionIDFromContextDefault(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionIDFromContext(req.Context()); got != "" {
		t.Fatalf("unbound context returned %q", got)
	}
}
