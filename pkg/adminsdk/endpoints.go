package adminsdk

import (
	"net/url"
	"strings"
)

// API paths, relative to the client's base URL (which already ends in /api).
const (
	// AuthPathPrefix covers every authentication endpoint. Responses from
	// these paths never trigger a token refresh.
	AuthPathPrefix = "/admin/auth/"

	PathSignIn  = "/admin/auth/sign-in"
	PathSignOut = "/admin/auth/sign-out"
	PathRefresh = "/admin/auth/refresh"

	PathDashboardStats = "/admin/dashboard/stats"
	PathUsers          = "/admin/users"
	PathProviders      = "/admin/providers"
	PathLocations      = "/admin/locations"
	PathSpecialties    = "/admin/specialties"
	PathAppointments   = "/admin/appointments"
)

// ProviderTimeSlotsPath is the time-slot collection of one provider.
func ProviderTimeSlotsPath(providerID string) string {
	return PathProviders + "/" + url.PathEscape(providerID) + "/time-slots"
}

// IsAuthEndpoint reports whether path belongs to the authentication API.
func IsAuthEndpoint(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasPrefix(path, AuthPathPrefix)
}
