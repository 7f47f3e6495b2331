package transport

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"cityhop/internal/hub"
	"cityhop/internal/httpmw"
	"cityhop/internal/quote"
)

// FeedStats is a snapshot of the loaded GTFS feed's row counts, for
// /stats. A disabled planner reports all-zero counts.
type FeedStats struct {
	Stops     int
	Routes    int
	Trips     int
	StopTimes int
	Loaded    bool
}

// Stats serves runtime, cache and feed counters at GET /stats.
type Stats struct {
	startTime   time.Time
	boundary    *Boundary
	quoteCache  *quote.Cache
	hub         *hub.Hub
	rateLimiter *httpmw.RateLimiter
	feedStats   func() FeedStats
}

func NewStats(boundary *Boundary, quoteCache *quote.Cache, h *hub.Hub, rl *httpmw.RateLimiter, feedStats func() FeedStats) *Stats {
	return &Stats{
		startTime:   time.Now(),
		boundary:    boundary,
		quoteCache:  quoteCache,
		hub:         h,
		rateLimiter: rl,
		feedStats:   feedStats,
	}
}

type statsResponse struct {
	Server    serverStats    `json:"server"`
	GTFS      gtfsStats      `json:"gtfs"`
	Cache     cacheStats     `json:"cache"`
	WebSocket websocketStats `json:"websocket"`
	RateLimit map[string]any `json:"rate_limit"`
	Go        goStats        `json:"go"`
}

type serverStats struct {
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	RequestCount  int64   `json:"request_count"`
}

type gtfsStats struct {
	Stops     int  `json:"stops"`
	Routes    int  `json:"routes"`
	Trips     int  `json:"trips"`
	StopTimes int  `json:"stop_times"`
	Loaded    bool `json:"loaded"`
}

type cacheStats struct {
	Entries int `json:"entries"`
}

type websocketStats struct {
	Connections int `json:"connections"`
}

type goStats struct {
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	GoVersion   string  `json:"go_version"`
}

func (s *Stats) GetStats(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.startTime)
	feed := s.feedStats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := statsResponse{
		Server: serverStats{
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			RequestCount:  s.boundary.RequestCount(),
		},
		GTFS: gtfsStats{
			Stops:     feed.Stops,
			Routes:    feed.Routes,
			Trips:     feed.Trips,
			StopTimes: feed.StopTimes,
			Loaded:    feed.Loaded,
		},
		Cache: cacheStats{
			Entries: s.quoteCache.Len(),
		},
		WebSocket: websocketStats{
			Connections: s.hub.ClientCount(),
		},
		RateLimit: s.rateLimiter.Stats(),
		Go: goStats{
			Goroutines:  runtime.NumGoroutine(),
			HeapAllocMB: float64(mem.HeapAlloc) / 1024 / 1024,
			NumGC:       mem.NumGC,
			GoVersion:   runtime.Version(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(resp)
}
