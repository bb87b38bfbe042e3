package exposure

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func rangeParts(secret string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(secret))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return digest[:5], digest[5:]
}

func TestCheck_KnownExposedSecret(t *testing.T) {
	const secret = "password123"
	prefix, suffix := rangeParts(secret)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/range/"+prefix {
			t.Errorf("unexpected path %q; want /range/%s", r.URL.Path, prefix)
		}
		// A realistic body: several unrelated records plus the match.
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
		fmt.Fprintf(w, "%s:52579\r\n", suffix)
		fmt.Fprintf(w, "011053FD0102E94D6AE2F8B83D76FAF94F6:1\r\n")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	if !c.Check(context.Background(), secret) {
		t.Error("Check = false for a secret present in the range response; want true")
	}
}

func TestCheck_UnexposedSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, nil)
	if c.Check(context.Background(), "zV9$unrelated-random-secret") {
		t.Error("Check = true for a secret absent from the range response; want false")
	}
}

func TestCheck_FailsOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Checker
	}{
		{
			name: "server error status",
			setup: func(t *testing.T) *Checker {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				}))
				t.Cleanup(srv.Close)
				return New(srv.URL, time.Second, nil)
			},
		},
		{
			name: "unreachable server",
			setup: func(t *testing.T) *Checker {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
				srv.Close()
				return New(srv.URL, time.Second, nil)
			},
		},
		{
			name: "timeout",
			setup: func(t *testing.T) *Checker {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(200 * time.Millisecond)
				}))
				t.Cleanup(srv.Close)
				return New(srv.URL, 10*time.Millisecond, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.setup(t)
			if c.Check(context.Background(), "anything") {
				t.Error("Check = true on failure; want fail-open false")
			}
		})
	}
}

func TestCheck_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(srv.URL, time.Second, nil)
	if c.Check(ctx, "anything") {
		t.Error("Check = true with cancelled context; want false")
	}
}
