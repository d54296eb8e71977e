// ABOUTME: HTTP server for ClickUp webhooks and read-only run endpoints
// ABOUTME: Applies ClickUp task status changes to HubSpot projects and exposes the run ledger
package web

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harperreed/dealbridge/db"
	"github.com/harperreed/dealbridge/models"
	"github.com/harperreed/dealbridge/viz"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20

// StatusSetter applies a ClickUp status to the HubSpot projects linked to a task.
type StatusSetter interface {
	SetClickUpStatus(ctx context.Context, clickUpID, status string) (int, error)
}

type Server struct {
	db        *sql.DB
	projects  StatusSetter
	generator *viz.GraphGenerator
	secret    []byte
	log       zerolog.Logger
}

// NewServer builds the server. An empty secret disables signature checks.
func NewServer(database *sql.DB, projects StatusSetter, secret string, log zerolog.Logger) *Server {
	s := &Server{
		db:        database,
		projects:  projects,
		generator: viz.NewGraphGenerator(database),
		log:       log.With().Str("component", "web").Logger(),
	}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	mux.HandleFunc("GET /runs/{id}/graph", s.handleRunGraph)
	mux.HandleFunc("POST /webhooks/clickup", s.handleClickUpWebhook)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := viz.GenerateDashboardStats(s.db, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, viz.RenderDashboard(stats))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := db.ListRuns(s.db, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runDetail struct {
	Run   *models.Run      `json:"run"`
	Deals []models.RunDeal `json:"deals"`
	Links []models.SyncLog `json:"links"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := db.GetRun(s.db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	detail := runDetail{Run: run, Deals: []models.RunDeal{}, Links: []models.SyncLog{}}
	deals, err := db.ListRunDeals(s.db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	links, err := db.ListRunLinks(s.db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if deals != nil {
		detail.Deals = deals
	}
	if links != nil {
		detail.Links = links
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := db.GetRun(s.db, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	dot, err := s.generator.GenerateRunGraph(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = io.WriteString(w, dot)
}

// clickUpEvent accepts ClickUp's taskStatusUpdated webhook and a flat {task_id, status} form.
type clickUpEvent struct {
	Event        string `json:"event"`
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	HistoryItems []struct {
		Field string `json:"field"`
		After struct {
			Status string `json:"status"`
		} `json:"after"`
	} `json:"history_items"`
}

func (e *clickUpEvent) status() string {
	if e.Status != "" {
		return e.Status
	}
	for _, item := range e.HistoryItems {
		if item.Field == "status" && item.After.Status != "" {
			return item.After.Status
		}
	}
	return ""
}

func (s *Server) handleClickUpWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if s.secret != nil && !s.validSignature(body, r.Header.Get("X-Signature")) {
		s.log.Warn().Msg("rejected ClickUp webhook with bad signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event clickUpEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	status := event.status()
	if event.TaskID == "" || status == "" {
		http.Error(w, "task_id and status are required", http.StatusBadRequest)
		return
	}

	log := s.log.With().Str("clickup_id", event.TaskID).Str("status", status).Logger()
	if err := db.UpdateSyncStatus(s.db, db.ServiceClickUp, models.SyncStatusSyncing, nil); err != nil {
		log.Warn().Err(err).Msg("failed to record webhook sync state")
	}

	updated, err := s.projects.SetClickUpStatus(r.Context(), event.TaskID, status)
	if err != nil {
		log.Error().Err(err).Msg("failed to apply ClickUp status")
		msg := err.Error()
		_ = db.UpdateSyncStatus(s.db, db.ServiceClickUp, models.SyncStatusError, &msg)
		http.Error(w, "failed to update projects", http.StatusBadGateway)
		return
	}
	if err := db.UpdateSyncToken(s.db, db.ServiceClickUp, event.TaskID); err != nil {
		log.Warn().Err(err).Msg("failed to record webhook sync state")
	}

	log.Info().Int("updated", updated).Msg("ClickUp status applied")
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (s *Server) validSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
