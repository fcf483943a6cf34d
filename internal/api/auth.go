package api

import (
	"errors"
	"net/http"
	"strings"

	"pdptw/internal/auth"
)

// defaultTenant owns requests that carry no identity.
const defaultTenant = "default"

// getPrincipal extracts tenant and role from the bearer token, or from headers in dev mode.
// WebSocket clients that cannot set headers may pass the token as ?access_token=.
// Without any credentials in hmac mode it returns an anonymous principal and
// auth.ErrMissingToken.
func (s *Server) getPrincipal(r *http.Request) (auth.Principal, error) {
	authz := r.Header.Get("Authorization")
	if strings.TrimSpace(authz) == "" {
		authz = r.URL.Query().Get("access_token")
	}
	if strings.TrimSpace(authz) != "" {
		return s.auth.Verify(authz)
	}
	if s.auth.Mode == "dev" {
		tenant := r.Header.Get("X-Tenant-Id")
		role := strings.ToLower(r.Header.Get("X-Role"))
		if tenant == "" {
			tenant = defaultTenant
		}
		if role == "" {
			role = "admin"
		}
		return auth.Principal{Tenant: tenant, Role: role}, nil
	}
	return auth.Principal{Tenant: defaultTenant, Role: "anonymous"}, auth.ErrMissingToken
}

// optionalPrincipal is getPrincipal for endpoints open to anonymous callers. It writes a 401
// and reports false only for credentials that were presented and rejected.
func (s *Server) optionalPrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, err := s.getPrincipal(r)
	if err != nil && !errors.Is(err, auth.ErrMissingToken) {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
		return p, false
	}
	return p, true
}

// requireAdmin writes 401 or 403 and reports false unless the caller is an admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, err := s.getPrincipal(r)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
		return p, false
	}
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return p, false
	}
	return p, true
}
