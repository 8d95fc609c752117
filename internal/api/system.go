package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus is the response of GET /system.
type SystemStatus struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	Identity      string         `json:"identity"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeStatus  `json:"runtime"`
	WebSocket     WSStatus       `json:"websocket"`
	Devices       DeviceStatus   `json:"devices"`
	Requests      RequestsStatus `json:"requests"`
	Profile       string         `json:"active_profile,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSStatus contains WebSocket hub statistics.
type WSStatus struct {
	ConnectedClients int `json:"connected_clients"`
}

// DeviceStatus contains device registry statistics.
type DeviceStatus struct {
	Total       int            `json:"total"`
	On          int            `json:"on"`
	Consumption float64        `json:"consumption"`
	ByType      map[string]int `json:"by_type"`
	ByRoom      map[string]int `json:"by_room"`
}

// RequestsStatus describes the correlation table.
type RequestsStatus struct {
	Pending int `json:"pending"`
}

// handleSystem returns a JSON snapshot of the coordinator for dashboards
// that do not scrape Prometheus.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	registry := s.coord.Registry()
	stats := registry.GetStats()

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		Identity:      s.coord.Identity(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Devices: DeviceStatus{
			Total:       stats.TotalDevices,
			On:          stats.DevicesOn,
			Consumption: registry.ActiveConsumption(),
			ByType:      make(map[string]int, len(stats.ByType)),
			ByRoom:      stats.ByRoom,
		},
		Requests: RequestsStatus{Pending: s.coord.Requests().Len()},
	}
	if s.hub != nil {
		status.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	for t, n := range stats.ByType {
		status.Devices.ByType[string(t)] = n
	}
	if active := s.coord.Engine().Active(); active != nil {
		status.Profile = active.Name()
	}

	writeJSON(w, http.StatusOK, status)
}
