package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

// TenantContextKey carries the tenant name resolved by the middleware
const TenantContextKey contextKey = "tenant"

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WithTenant stores the tenant name on the request context
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, TenantContextKey, tenant)
}

// RequireTenant extracts the tenant resolved by the middleware. Writes a
// 400 and returns false when the request reached a tenant-scoped route
// without one.
func RequireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant, _ := r.Context().Value(TenantContextKey).(string)
	if tenant == "" {
		WriteError(w, http.StatusBadRequest, "X-Tenant-ID header is required")
		return "", false
	}
	return tenant, true
}
