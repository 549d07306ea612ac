package adminsdk

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// ============================================================================
// Authentication
// ============================================================================

// SignInRequest is the body of POST /admin/auth/sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /admin/auth/refresh and /admin/auth/sign-out.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by sign-in and refresh.
type AuthResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Admin        Principal `json:"admin"`
}

// Credentials converts the response into storable credentials.
func (r *AuthResponse) Credentials() Credentials {
	admin := r.Admin
	return Credentials{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Identity:     &admin,
	}
}

// ============================================================================
// Listing
// ============================================================================

// Page is the envelope every list endpoint returns.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// ListQuery holds the common list parameters. Zero values are omitted from
// the query string so the server applies its own defaults.
type ListQuery struct {
	Page   int
	Limit  int
	Search string

	// Filters carries endpoint-specific parameters (e.g. "gender", "status").
	Filters map[string]string
}

// Values encodes the query.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for key, value := range q.Filters {
		if value != "" {
			v.Set(key, value)
		}
	}
	return v
}

// Record is an API resource kept as raw JSON. The admin API owns these
// schemas; the client only moves them.
type Record = json.RawMessage

// ============================================================================
// Dashboard
// ============================================================================

// AppointmentsByStatus breaks the appointment count down by state.
type AppointmentsByStatus struct {
	Upcoming  int `json:"upcoming"`
	Past      int `json:"past"`
	Cancelled int `json:"cancelled"`
}

// DashboardStats is returned by GET /admin/dashboard/stats.
type DashboardStats struct {
	TotalUsers           int                  `json:"totalUsers"`
	TotalProviders       int                  `json:"totalProviders"`
	TotalAppointments    int                  `json:"totalAppointments"`
	AppointmentsByStatus AppointmentsByStatus `json:"appointmentsByStatus"`
	TotalLocations       int                  `json:"totalLocations"`
	TotalSpecialties     int                  `json:"totalSpecialties"`
}
