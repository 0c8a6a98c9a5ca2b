package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewOutbound_Options(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewOutbound(WithTimeout(2*time.Second), WithUserAgent("listing-search/test"))
	if c.Timeout != 2*time.Second {
		t.Fatalf("timeout=%v", c.Timeout)
	}

	resp, err := c.Get(srv.URL + "/listings/query")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if gotUA != "listing-search/test" {
		t.Fatalf("user agent=%q", gotUA)
	}

	resp, err = c.Get(srv.URL + "/moved")
	if err != nil {
		t.Fatalf("get moved: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("redirect followed: status=%d", resp.StatusCode)
	}

	if NewOutbound(WithTimeout(0)).Timeout != DefaultTimeout {
		t.Fatalf("zero timeout should keep default")
	}
}
