package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	bearerOnly := AuthConfig{BearerToken: "secret-token"}
	basicOnly := AuthConfig{BasicUser: "admin", BasicPass: "pass123"}

	tests := []struct {
		name     string
		cfg      AuthConfig
		decorate func(*http.Request)
		want     int
	}{
		{
			name:     "valid bearer token",
			cfg:      bearerOnly,
			decorate: func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") },
			want:     http.StatusOK,
		},
		{
			name:     "wrong bearer token",
			cfg:      bearerOnly,
			decorate: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			want:     http.StatusUnauthorized,
		},
		{
			name:     "no credentials at all",
			cfg:      bearerOnly,
			decorate: func(*http.Request) {},
			want:     http.StatusUnauthorized,
		},
		{
			name:     "valid basic credentials",
			cfg:      basicOnly,
			decorate: func(r *http.Request) { r.SetBasicAuth("admin", "pass123") },
			want:     http.StatusOK,
		},
		{
			name:     "wrong basic password",
			cfg:      basicOnly,
			decorate: func(r *http.Request) { r.SetBasicAuth("admin", "wrongpass") },
			want:     http.StatusUnauthorized,
		},
		{
			name:     "bearer token does not unlock basic",
			cfg:      bearerOnly,
			decorate: func(r *http.Request) { r.SetBasicAuth("secret-token", "secret-token") },
			want:     http.StatusUnauthorized,
		},
		{
			name:     "basic credentials do not unlock bearer",
			cfg:      basicOnly,
			decorate: func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin") },
			want:     http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := authMiddleware(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/chat", nil)
			tt.decorate(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer", AuthConfig{BearerToken: "t"}, true},
		{"basic", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic user only", AuthConfig{BasicUser: "u"}, false},
		{"basic pass only", AuthConfig{BasicPass: "p"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}
