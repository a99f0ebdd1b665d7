// Package diag serves pipeline counters over HTTP and a websocket stream.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"guacamole/internal/generation"
	"guacamole/internal/world"
)

// Report is one diagnostics sample.
type Report struct {
	Frame    int64               `json:"frame"`
	Viewer   world.ChunkCoord    `json:"viewer"`
	Resident int                 `json:"resident"`
	Capacity int                 `json:"capacity"`
	Stages   map[string]int      `json:"stages"`
	Drawn    int                 `json:"drawn"`
	Pipeline generation.Snapshot `json:"pipeline"`
	FrameTop string              `json:"frame_top,omitempty"`
}

// Source produces the current report. It is called from HTTP goroutines.
type Source func() Report

// StageCounts converts ChunkStore.CountByStage into report form.
func StageCounts(counts map[world.Stage]int) map[string]int {
	out := make(map[string]int, len(counts))
	for s, n := range counts {
		out[s.String()] = n
	}
	return out
}

type Server struct {
	src      Source
	log      *log.Logger
	interval time.Duration

	upgrader websocket.Upgrader
	clients  atomic.Int64
}

// NewServer creates a server that pushes a report to every websocket client
// each interval.
func NewServer(src Source, interval time.Duration, logger *log.Logger) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	return &Server{
		src:      src,
		log:      logger,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Handler routes /stats and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.StatsHandler())
	mux.HandleFunc("/ws", s.WSHandler())
	return mux
}

func (s *Server) StatsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.src())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.clients.Add(1)
		defer s.clients.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader: only used to notice the client going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(s.src()); err != nil {
				return
			}
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
				return
			case <-ticker.C:
			}
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx2)
	}()
	if s.log != nil {
		s.log.Printf("diag: listening on %s", addr)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
