package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/homebus/internal/automation"
	"github.com/nerrad567/homebus/internal/infrastructure/config"
)

// ProfileSummary describes a catalogue profile.
type ProfileSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	Active      bool   `json:"active"`
}

// ActivateRequest is the body of PUT /profiles/active.
type ActivateRequest struct {
	Name string `json:"name"`
}

func summarize(p automation.Profile, active automation.Profile) ProfileSummary {
	return ProfileSummary{
		Name:        p.Name(),
		Description: p.Description(),
		Kind:        string(p.Kind()),
		Active:      active != nil && active.Name() == p.Name(),
	}
}

// handleListProfiles returns the catalogue in insertion order.
func (s *Server) handleListProfiles(w http.ResponseWriter, _ *http.Request) {
	engine := s.coord.Engine()
	active := engine.Active()

	profiles := engine.Catalogue().List()
	out := make([]ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, summarize(p, active))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out, "count": len(out)})
}

// handleCreateProfile adds a custom profile. The body uses the same shape
// as a profiles entry in homebus.yaml.
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var pc config.ProfileConfig
	if err := json.NewDecoder(r.Body).Decode(&pc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := automation.FromConfig(pc)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := s.coord.AddProfile(p); err != nil {
		if errors.Is(err, automation.ErrProfileExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	s.logger.Info("profile created", "profile", p.Name())
	writeJSON(w, http.StatusCreated, summarize(p, s.coord.Engine().Active()))
}

// handleGetActiveProfile returns the active profile, or null before the first activation.
func (s *Server) handleGetActiveProfile(w http.ResponseWriter, _ *http.Request) {
	active := s.coord.Engine().Active()
	if active == nil {
		writeJSON(w, http.StatusOK, map[string]any{"profile": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": summarize(active, active)})
}

// handleActivateProfile activates a catalogue profile by name.
// Activating the active profile again succeeds with changed=false.
func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "name is required")
		return
	}

	changed, err := s.coord.ActivateProfile(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, automation.ErrUnexpectedProfile) {
			writeNotFound(w, "profile not found")
			return
		}
		writeInternalError(w, "failed to activate profile")
		return
	}

	active := s.coord.Engine().Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": summarize(active, active),
		"changed": changed,
	})
}
