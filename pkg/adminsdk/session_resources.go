package adminsdk

import (
	"context"
	"errors"
	"maps"
	"net/http"
)

// Time-slot listing defaults.
const (
	DefaultTimeSlotStatus = "available"
	DefaultTimeSlotLimit  = 50
)

// Admin console operations. Resource payloads stay raw JSON: the console
// renders what the API sends and submits what its forms collect.

// ============================================================================
// Dashboard
// ============================================================================

// DashboardStats returns the system-wide counters shown on the dashboard.
// Automatically refreshes the access token if expired.
func (s *Session) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := s.Do(ctx, Request{Method: http.MethodGet, Path: PathDashboardStats}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ============================================================================
// Users
// ============================================================================

// ListUsers returns one page of users.
// Supported filters: gender, isEmailVerified, includeDeleted.
func (s *Session) ListUsers(ctx context.Context, q ListQuery) (*Page[Record], error) {
	return s.list(ctx, PathUsers, q)
}

// CreateUser creates a user from the given payload and returns the created record.
func (s *Session) CreateUser(ctx context.Context, payload any) (Record, error) {
	return s.create(ctx, PathUsers, payload)
}

// ============================================================================
// Providers
// ============================================================================

// ListProviders returns one page of providers.
func (s *Session) ListProviders(ctx context.Context, q ListQuery) (*Page[Record], error) {
	return s.list(ctx, PathProviders, q)
}

// CreateProvider creates a provider and returns the created record.
func (s *Session) CreateProvider(ctx context.Context, payload any) (Record, error) {
	return s.create(ctx, PathProviders, payload)
}

// ListProviderTimeSlots returns one page of a provider's time slots on date
// (YYYY-MM-DD). Unless q says otherwise only available slots are listed, up
// to DefaultTimeSlotLimit per page.
func (s *Session) ListProviderTimeSlots(ctx context.Context, providerID, date string, q ListQuery) (*Page[Record], error) {
	if providerID == "" {
		return nil, errors.New("adminsdk: provider id is required")
	}

	filters := maps.Clone(q.Filters)
	if filters == nil {
		filters = map[string]string{}
	}
	if date != "" {
		filters["date"] = date
	}
	if filters["status"] == "" {
		filters["status"] = DefaultTimeSlotStatus
	}
	q.Filters = filters
	if q.Limit <= 0 {
		q.Limit = DefaultTimeSlotLimit
	}

	return s.list(ctx, ProviderTimeSlotsPath(providerID), q)
}

// ============================================================================
// Locations & Specialties
// ============================================================================

// ListLocations returns one page of locations.
func (s *Session) ListLocations(ctx context.Context, q ListQuery) (*Page[Record], error) {
	return s.list(ctx, PathLocations, q)
}

// CreateLocation creates a location and returns the created record.
func (s *Session) CreateLocation(ctx context.Context, payload any) (Record, error) {
	return s.create(ctx, PathLocations, payload)
}

// ListSpecialties returns one page of specialties.
func (s *Session) ListSpecialties(ctx context.Context, q ListQuery) (*Page[Record], error) {
	return s.list(ctx, PathSpecialties, q)
}

// ============================================================================
// Appointments
// ============================================================================

// ListAppointments returns one page of appointments.
func (s *Session) ListAppointments(ctx context.Context, q ListQuery) (*Page[Record], error) {
	return s.list(ctx, PathAppointments, q)
}

// CreateAppointment books an appointment and returns the created record.
func (s *Session) CreateAppointment(ctx context.Context, payload any) (Record, error) {
	return s.create(ctx, PathAppointments, payload)
}

func (s *Session) list(ctx context.Context, path string, q ListQuery) (*Page[Record], error) {
	var page Page[Record]
	req := Request{Method: http.MethodGet, Path: path, Query: q.Values()}
	if err := s.Do(ctx, req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Session) create(ctx context.Context, path string, payload any) (Record, error) {
	var created Record
	req := Request{Method: http.MethodPost, Path: path, Body: payload}
	if err := s.Do(ctx, req, &created); err != nil {
		return nil, err
	}
	return created, nil
}
