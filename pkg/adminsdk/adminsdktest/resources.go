package adminsdktest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/httpx"
	"github.com/aussiebroadwan/dhadmin/pkg/idx"
)

const defaultLimit = 50

// required lists the fields each collection insists on at creation.
var required = map[string][]string{
	adminsdk.PathUsers:        {"firstName", "lastName", "email", "password"},
	adminsdk.PathProviders:    {"firstName", "lastName"},
	adminsdk.PathLocations:    {"city", "state"},
	adminsdk.PathSpecialties:  {"name"},
	adminsdk.PathAppointments: {"userId", "providerId", "locationId", "appointmentDate", "appointmentTime"},
}

// searchable lists the fields matched by ?search=.
var searchable = []string{"firstName", "lastName", "email", "name", "city", "state", "displayName"}

// reserved query parameters that are not field filters.
var reserved = map[string]bool{"page": true, "limit": true, "search": true, "includeDeleted": true}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := adminsdk.DashboardStats{
		TotalUsers:        len(s.collections[adminsdk.PathUsers]),
		TotalProviders:    len(s.collections[adminsdk.PathProviders]),
		TotalAppointments: len(s.collections[adminsdk.PathAppointments]),
		TotalLocations:    len(s.collections[adminsdk.PathLocations]),
		TotalSpecialties:  len(s.collections[adminsdk.PathSpecialties]),
	}
	for _, appt := range s.collections[adminsdk.PathAppointments] {
		switch appt["status"] {
		case "cancelled":
			stats.AppointmentsByStatus.Cancelled++
		case "completed", "past":
			stats.AppointmentsByStatus.Past++
		default:
			stats.AppointmentsByStatus.Upcoming++
		}
	}

	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) handleList(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := positiveParam(q.Get("page"), 1)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		limit, err := positiveParam(q.Get("limit"), defaultLimit)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}

		s.mu.Lock()
		matched := make([]map[string]any, 0, len(s.collections[path]))
		for _, rec := range s.collections[path] {
			if matches(rec, q) {
				matched = append(matched, rec)
			}
		}
		s.mu.Unlock()

		out := adminsdk.Page[map[string]any]{
			Data:       []map[string]any{},
			Total:      len(matched),
			Page:       page,
			Limit:      limit,
			TotalPages: (len(matched) + limit - 1) / limit,
		}
		if start := (page - 1) * limit; start < len(matched) {
			out.Data = matched[start:min(start+limit, len(matched))]
		}

		httpx.WriteJSON(w, http.StatusOK, out)
	})
}

func (s *Server) handleTimeSlots(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	known := false
	for _, p := range s.collections[adminsdk.PathProviders] {
		if fmt.Sprint(p["id"]) == id {
			known = true
			break
		}
	}
	s.mu.Unlock()

	if !known {
		httpx.WriteError(w, http.StatusNotFound, "Provider not found")
		return
	}
	s.handleList(adminsdk.ProviderTimeSlotsPath(id)).ServeHTTP(w, r)
}

func (s *Server) handleCreate(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rec map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		var messages []string
		for _, field := range required[path] {
			if v, _ := rec[field].(string); strings.TrimSpace(v) == "" {
				messages = append(messages, field+" should not be empty")
			}
		}
		if pw, ok := rec["password"].(string); ok && path == adminsdk.PathUsers && pw != "" && len(pw) < 8 {
			messages = append(messages, "password must be longer than or equal to 8 characters")
		}
		if len(messages) > 0 {
			httpx.WriteError(w, http.StatusBadRequest, messages...)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if email, ok := rec["email"].(string); ok {
			for _, existing := range s.collections[path] {
				if strings.EqualFold(fmt.Sprint(existing["email"]), email) {
					httpx.WriteError(w, http.StatusConflict, "Email already exists")
					return
				}
			}
		}

		delete(rec, "password")
		rec["id"] = idx.New().String()
		rec["createdAt"] = time.Now().UTC().Format(time.RFC3339)
		s.collections[path] = append(s.collections[path], rec)

		httpx.WriteJSON(w, http.StatusCreated, rec)
	})
}

func matches(rec map[string]any, q map[string][]string) bool {
	for key, values := range q {
		if reserved[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		if fmt.Sprint(rec[key]) != values[0] {
			return false
		}
	}

	search := ""
	if v := q["search"]; len(v) > 0 {
		search = strings.ToLower(strings.TrimSpace(v[0]))
	}
	if search == "" {
		return true
	}
	for _, field := range searchable {
		if v, ok := rec[field].(string); ok && strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func positiveParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value %q", raw)
	}
	return n, nil
}
