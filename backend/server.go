// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"cmp"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/go-co-op/gocron/v2"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

const maxBodySize = 1048576

func generateETag(data []byte) string {
	return fmt.Sprintf("\"%x\"", sha256.Sum256(data))
}

// Options represent server options.
type Options struct {
	Addr     string
	Cert     *tls.Certificate
	DataDir  string
	Debug    bool
	Listener net.Listener

	Storage    *storage.Storage
	MatchStore *MatchStore
	TeamStore  *TeamStore

	// FlushInterval is how often dirty match documents are written to
	// disk. Defaults to 30s.
	FlushInterval time.Duration

	// Archiver receives finished matches. Optional.
	Archiver Archiver

	// RosterCacheSize is the number of display names kept in memory.
	RosterCacheSize int
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	app        *App
}

// App holds the components behind the HTTP handler.
type App struct {
	Matches   *MatchStore
	Teams     *TeamStore
	Roster    *TeamRoster
	Hubs      *HubManager
	Metrics   *CommitMetrics
	Scorer    *Scorer
	scheduler gocron.Scheduler
}

// Close stops the flush job and writes every dirty match to disk.
func (a *App) Close() error {
	var errs []string
	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(); err != nil {
			errs = append(errs, fmt.Sprintf("scheduler: %v", err))
		}
	}
	if err := a.Matches.FlushAll(); err != nil {
		errs = append(errs, fmt.Sprintf("flush: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Shutdown gracefully shuts down the server and flushes pending writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []string
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("http: %v", err))
	}
	if err := s.app.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// StartServer starts the web server and registers the API handlers.
func StartServer(opts Options) (*Server, error) {
	app, handler, err := NewServerHandler(opts)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:    opts.Addr,
		Handler: handler,
	}
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		if opts.Listener != nil {
			if httpServer.TLSConfig != nil {
				log.Printf("Starting HTTPS server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.ServeTLS(opts.Listener, "", "")
			} else {
				log.Printf("Starting HTTP server on provided listener %s...", opts.Listener.Addr())
				err = httpServer.Serve(opts.Listener)
			}
		} else {
			log.Printf("Server starting on port %s...\n", opts.Addr)
			if opts.Cert != nil {
				err = httpServer.ListenAndServeTLS("", "")
			} else {
				err = httpServer.ListenAndServe()
			}
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer, app: app}, nil
}

// writeError maps err to an HTTP status. The body names the violated rule.
func writeError(w http.ResponseWriter, err error) {
	var re *scoring.RuleError
	msg := err.Error()
	if errors.As(err, &re) {
		msg = re.Rule
	}
	switch {
	case errors.Is(err, scoring.ErrInvalidInput):
		http.Error(w, "Bad Request: "+msg, http.StatusBadRequest)
	case errors.Is(err, scoring.ErrInvariant):
		http.Error(w, "Conflict: "+msg, http.StatusConflict)
	case errors.Is(err, ErrNotPlaying), errors.Is(err, ErrNoSession), errors.Is(err, ErrWrongStage),
		errors.Is(err, ErrBadTransition), errors.Is(err, ErrExists):
		http.Error(w, "Conflict: "+msg, http.StatusConflict)
	case errors.Is(err, ErrRetryable):
		w.Header().Set("Retry-After", retryAfterSave)
		http.Error(w, "Service Unavailable: "+msg, http.StatusServiceUnavailable)
	case errors.Is(err, os.ErrNotExist):
		http.Error(w, "Not Found", http.StatusNotFound)
	default:
		log.Printf("Internal Server Error: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// decodePost decodes the JSON body of a POST request into v. It writes the
// error response and returns false on failure.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		http.Error(w, "Bad Request: Malformed JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID returns the id following prefix, or writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return "", false
	}
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || !isValidID(id) {
		http.Error(w, "Bad Request: id is missing or invalid", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// NewServerHandler creates the components and the HTTP handler for the
// server.
func NewServerHandler(opts Options) (*App, http.Handler, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, nil)
	}
	if opts.RosterCacheSize <= 0 {
		opts.RosterCacheSize = 1024
	}

	debugf := func(string, ...any) {}
	if opts.Debug {
		debugf = func(f string, a ...any) {
			log.Printf("[DEBUG BACKEND] "+f, a...)
		}
	}

	app := &App{
		Matches: opts.MatchStore,
		Teams:   opts.TeamStore,
		Hubs:    NewHubManager(),
		Metrics: NewCommitMetrics(),
	}
	if app.Matches == nil {
		app.Matches = NewMatchStore(opts.DataDir, opts.Storage)
	}
	app.Matches.Debug = opts.Debug
	if app.Teams == nil {
		app.Teams = NewTeamStore(opts.DataDir, opts.Storage)
	}
	roster, err := NewTeamRoster(app.Teams, opts.RosterCacheSize)
	if err != nil {
		return nil, nil, err
	}
	app.Roster = roster
	app.Scorer = NewScorer(ScorerOptions{
		Store:    app.Matches,
		Roster:   roster,
		Hubs:     app.Hubs,
		Metrics:  app.Metrics,
		Archiver: opts.Archiver,
		Debugf:   debugf,
	})
	sched, err := startFlushScheduler(app.Matches, opts.FlushInterval, debugf)
	if err != nil {
		return nil, nil, err
	}
	app.scheduler = sched

	sc := app.Scorer
	mux := http.NewServeMux()

	mux.HandleFunc("/api/match", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			match, err := matchFilter(r.URL.Query().Get("q"))
			if err != nil {
				writeError(w, err)
				return
			}
			list := []MatchMetadata{}
			for meta, err := range app.Matches.ListMatchMetadata() {
				if err != nil {
					writeError(w, err)
					return
				}
				if match(meta) {
					list = append(list, meta)
				}
			}
			slices.SortFunc(list, func(a, b MatchMetadata) int {
				return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
			})
			writeJSON(w, list)
			return
		}
		var req CreateMatchRequest
		if !decodePost(w, r, &req) {
			return
		}
		m, err := sc.CreateMatch(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(m.metadata())
	})

	mux.HandleFunc("/api/match/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			matchId := r.URL.Query().Get("matchId")
			if !isValidID(matchId) {
				http.Error(w, "Bad Request: matchId is missing or invalid", http.StatusBadRequest)
				return
			}
			status, err := sc.Status(matchId)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, StatusRequest{MatchID: matchId, Status: status})
			return
		}
		var req StatusRequest
		if !decodePost(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, err)
			return
		}
		m, err := sc.SetStatus(r.Context(), req.MatchID, req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, m.metadata())
	})

	mux.HandleFunc("/api/state/", func(w http.ResponseWriter, r *http.Request) {
		matchId, ok := pathID(w, r, "/api/state/")
		if !ok {
			return
		}
		m, err := sc.Match(matchId)
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := json.Marshal(struct {
			ID     string            `json:"id"`
			Status string            `json:"status"`
			State  scoring.GameState `json:"state"`
		}{m.ID, m.Status, m.State})
		if err != nil {
			writeError(w, err)
			return
		}
		etag := generateETag(data)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/api/plays/", func(w http.ResponseWriter, r *http.Request) {
		matchId, ok := pathID(w, r, "/api/plays/")
		if !ok {
			return
		}
		plays, err := sc.Plays(matchId)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, plays)
	})

	mux.HandleFunc("/api/prompt/", func(w http.ResponseWriter, r *http.Request) {
		matchId, ok := pathID(w, r, "/api/prompt/")
		if !ok {
			return
		}
		v, err := sc.View(matchId)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, v)
	})

	mux.HandleFunc("/api/pitch", func(w http.ResponseWriter, r *http.Request) {
		var req PitchRequest
		if !decodePost(w, r, &req) {
			return
		}
		ct, err := sc.Pitch(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, ct)
	})

	// respondView answers a scoring step with the updated view.
	respondView := func(w http.ResponseWriter, matchId string, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		v, err := sc.View(matchId)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, v)
	}

	mux.HandleFunc("/api/outcome", func(w http.ResponseWriter, r *http.Request) {
		var req OutcomeRequest
		if !decodePost(w, r, &req) {
			return
		}
		respondView(w, req.MatchID, sc.Select(r.Context(), req))
	})

	mux.HandleFunc("/api/answer", func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if !decodePost(w, r, &req) {
			return
		}
		respondView(w, req.MatchID, sc.Answer(r.Context(), req))
	})

	mux.HandleFunc("/api/runner", func(w http.ResponseWriter, r *http.Request) {
		var req RunnerRequest
		if !decodePost(w, r, &req) {
			return
		}
		respondView(w, req.MatchID, sc.AssignRunner(r.Context(), req))
	})

	mux.HandleFunc("/api/cancel", func(w http.ResponseWriter, r *http.Request) {
		var req MatchRequest
		if !decodePost(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, err)
			return
		}
		if req.Restart {
			respondView(w, req.MatchID, sc.Restart(r.Context(), req.MatchID))
			return
		}
		respondView(w, req.MatchID, sc.Cancel(r.Context(), req.MatchID))
	})

	mux.HandleFunc("/api/commit", func(w http.ResponseWriter, r *http.Request) {
		var req MatchRequest
		if !decodePost(w, r, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, err)
			return
		}
		rec, err := sc.Commit(r.Context(), req.MatchID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, struct {
			Play    scoring.PlayRecord `json:"play"`
			Summary string             `json:"summary"`
		}{rec, Summarize(rec, roster.DisplayName)})
	})

	mux.HandleFunc("/api/team", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			list := []*Team{}
			for t, err := range app.Teams.ListAllTeams() {
				if err != nil {
					writeError(w, err)
					return
				}
				if t.Status == TeamStatusDeleted {
					continue
				}
				list = append(list, t)
			}
			writeJSON(w, list)
			return
		}
		var t Team
		if !decodePost(w, r, &t) {
			return
		}
		if err := validateTeam(&t); err != nil {
			writeError(w, err)
			return
		}
		t.SchemaVersion = CurrentSchemaVersion
		t.Status = TeamStatusActive
		t.DeletedAt = 0
		t.UpdatedAt = time.Now().UnixNano()
		if old, err := app.Teams.LoadTeam(t.ID); err == nil {
			roster.Forget(old)
		}
		if err := app.Teams.SaveTeam(&t); err != nil {
			writeError(w, fmt.Errorf("%w: saving team %s: %w", ErrRetryable, t.ID, err))
			return
		}
		log.Printf("Team %s saved (%d players)", t.ID, len(t.Roster))
		writeJSON(w, &t)
	})

	mux.HandleFunc("/api/team/", func(w http.ResponseWriter, r *http.Request) {
		teamId := strings.TrimPrefix(r.URL.Path, "/api/team/")
		if teamId == "" || !isValidID(teamId) {
			http.Error(w, "Bad Request: id is missing or invalid", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodGet:
			t, err := app.Teams.LoadTeam(teamId)
			if err == nil && t.Status == TeamStatusDeleted {
				err = os.ErrNotExist
			}
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, t)
		case http.MethodDelete:
			if old, err := app.Teams.LoadTeam(teamId); err == nil {
				roster.Forget(old)
			}
			if err := app.Teams.DeleteTeam(teamId); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, struct {
			MetricsSnapshot
			DirtyMatches int `json:"dirtyMatches"`
			Hubs         int `json:"hubs"`
		}{app.Metrics.Snapshot(), app.Matches.DirtyCount(), app.Hubs.Len()})
	})

	mux.HandleFunc("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(app.Hubs, w, r)
	})

	return app, mux, nil
}
