package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homebus/internal/coordinator"
	"github.com/nerrad567/homebus/internal/device"
	"github.com/nerrad567/homebus/internal/protocol"
)

// maxCommandWait caps how long a command request may wait for its acknowledgement.
const maxCommandWait = 30 * time.Second

// CommandRequest is the body of POST /devices/{name}/commands.
type CommandRequest struct {
	Command string  `json:"command"`
	Value   *string `json:"value,omitempty"`
}

// CommandResponse reports the outcome of a command request.
type CommandResponse struct {
	Status string            `json:"status"` // sent, acknowledged or pending
	Reply  *protocol.Command `json:"reply,omitempty"`
}

// Command outcomes.
const (
	CommandStatusSent         = "sent"
	CommandStatusAcknowledged = "acknowledged"
	CommandStatusPending      = "pending"
)

// handleListDevices returns registered devices.
//
// Query parameters:
//   - room: only devices in this room
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	registry := s.coord.Registry()

	var devices []device.Device
	if room := r.URL.Query().Get("room"); room != "" {
		devices = registry.InRoom(room)
	} else {
		devices = registry.All()
	}
	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by name.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	dev, found := s.coord.Registry().FindByName(name)
	if !found {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleSendCommand sends a correlated command to a device.
//
// Query parameters:
//   - wait_ms: wait up to this long for the acknowledgement (max 30s)
//
// Without wait_ms the response is 202 as soon as the command is published.
// With it, 200 carries the device's reply; 202 with status "pending" means
// the wait ran out first and the request is still open.
func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "command is required")
		return
	}

	var wait time.Duration
	if v := r.URL.Query().Get("wait_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			writeBadRequest(w, "wait_ms must be a non-negative integer")
			return
		}
		wait = min(time.Duration(ms)*time.Millisecond, maxCommandWait)
	}

	completion, err := s.coord.SendUpdate(r.Context(), name, req.Command, req.Value)
	switch {
	case err == nil:
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
		return
	case errors.Is(err, coordinator.ErrUnexpectedMessage):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	default:
		s.logger.Warn("command publish failed", "device", name, "command", req.Command, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeBusError, "command could not be published")
		return
	}

	if wait == 0 {
		writeJSON(w, http.StatusAccepted, CommandResponse{Status: CommandStatusSent})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	reply, err := completion.Wait(ctx)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CommandResponse{Status: CommandStatusAcknowledged, Reply: &reply})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusAccepted, CommandResponse{Status: CommandStatusPending})
	case errors.Is(err, coordinator.ErrRequestExpired):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "device did not acknowledge the command")
	case errors.Is(err, coordinator.ErrShutdown):
		writeUnavailable(w, "coordinator shutting down")
	default:
		writeInternalError(w, "waiting for acknowledgement failed")
	}
}

// handleListRooms returns every known room.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.coord.Rooms().List()
	if rooms == nil {
		rooms = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// handleConsumption returns the summed consumption of devices that are on.
func (s *Server) handleConsumption(w http.ResponseWriter, _ *http.Request) {
	registry := s.coord.Registry()
	stats := registry.GetStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"watts":      registry.ActiveConsumption(),
		"devices_on": stats.DevicesOn,
		"devices":    stats.TotalDevices,
	})
}
