// Package webstatus serves a passive, read-only diagnostics page
// reporting keyspace size and process uptime. It never mutates the
// keyspace engine.
//
// Adapted from the teacher's internal/web/server.go: the smart port
// allocation and html/template dashboard machinery are kept, trimmed down
// from a multi-endpoint migration dashboard to a single /status page.
package webstatus

import (
	"fmt"
	"html/template"
	"math/rand"
	"net"
	"net/http"
	"time"

	"redisd/internal/keyspace"
	"redisd/internal/logger"
	"redisd/internal/rdb"
)

const (
	portRangeMin = 20000
	portRangeMax = 30000
	maxRetries   = 10
)

var pageTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html><head><title>redisd status</title></head>
<body>
<h1>redisd</h1>
<ul>
<li>uptime: {{.Uptime}}</li>
<li>live keys: {{.LiveKeys}}</li>
<li>snapshot keys: {{.SnapshotKeys}}</li>
<li>snapshot aux fields skipped: {{.AuxFieldsSkipped}}</li>
<li>snapshot database selectors seen: {{.DatabaseSelectors}}</li>
</ul>
</body></html>
`))

type pageData struct {
	Uptime            time.Duration
	LiveKeys          int
	SnapshotKeys      int
	AuxFieldsSkipped  int
	DatabaseSelectors int
}

// Server serves the status page over HTTP.
type Server struct {
	keyspace    *keyspace.Engine
	decodeStats rdb.Stats
	startedAt   time.Time
}

// New returns a Server reading from ks, reporting decodeStats (the RDB
// decoder's counters from the snapshot load at startup; the zero value
// when no snapshot was loaded) on the status page.
func New(ks *keyspace.Engine, decodeStats rdb.Stats) *Server {
	return &Server{keyspace: ks, decodeStats: decodeStats, startedAt: time.Now()}
}

// Serve binds addr (falling back to a random port in 20000-30000 if it
// is unavailable) and blocks serving the status page.
func (s *Server) Serve(addr string) error {
	ln, actualAddr, err := allocateSmartPort(addr, maxRetries)
	if err != nil {
		return fmt.Errorf("failed to allocate status port: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)

	logger.Printf("status page listening at http://%s/status", actualAddr)
	return http.Serve(ln, mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	live, snapshot := s.keyspace.Counts()
	data := pageData{
		Uptime:            time.Since(s.startedAt).Round(time.Second),
		LiveKeys:          live,
		SnapshotKeys:      snapshot,
		AuxFieldsSkipped:  s.decodeStats.AuxFieldsSkipped,
		DatabaseSelectors: s.decodeStats.DatabaseSelectors,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = pageTemplate.Execute(w, data)
}

// allocateSmartPort tries preferredAddr first, then falls back to a
// random port in the 20000-30000 range up to maxRetries times.
func allocateSmartPort(preferredAddr string, maxRetries int) (net.Listener, string, error) {
	if preferredAddr != "" {
		if ln, err := net.Listen("tcp", preferredAddr); err == nil {
			return ln, ln.Addr().String(), nil
		}
		logger.Warn("preferred status addr %s unavailable, trying random allocation", preferredAddr)
	}

	for i := 0; i < maxRetries; i++ {
		port := portRangeMin + rand.Intn(portRangeMax-portRangeMin+1)
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		if ln, err := net.Listen("tcp", addr); err == nil {
			return ln, ln.Addr().String(), nil
		}
	}

	return nil, "", fmt.Errorf("failed to allocate a status port after %d attempts", maxRetries)
}
