package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocaleMiddleware(t *testing.T) {
	var got string
	h := LocaleMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = LocaleFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		url    string
		accept string
		want   string
	}{
		{"default", "/", "", "pt-BR"},
		{"header", "/", "en-US,en;q=0.9", "en"},
		{"query wins", "/?lang=pt-BR", "en", "pt-BR"},
		{"unsupported falls back", "/", "ja", "pt-BR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want, rec.Header().Get("Content-Language"))
		})
	}
}
