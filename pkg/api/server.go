// FixtureLink Core
// Copyright (c) 2026 The FixtureLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of FixtureLink Core.
//
// FixtureLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// FixtureLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with FixtureLink Core.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the station's HTTP API: fixture status, run history,
// debug bench controls and log exports.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fixturelink/fixturelink-core/pkg/api/middleware"
	"github.com/fixturelink/fixturelink-core/pkg/api/models"
	"github.com/fixturelink/fixturelink-core/pkg/api/validation"
	"github.com/fixturelink/fixturelink-core/pkg/config"
	"github.com/fixturelink/fixturelink-core/pkg/database"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes      = 64 * 1024
	defaultRunsLimit  = 50
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var (
	ErrHistoryDisabled = errors.New("run history is disabled")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
)

// Service is the station behaviour the API exposes.
type Service interface {
	Statuses() []models.FixtureStatus
	QueueCommand(cmd string)
	SetInteraction(name string, color int) error
	SetLot(lot string) error
	StartExport() error
	ExportStatus(ctx context.Context) models.ExportStatus
	Firmware() models.FirmwareResponse
	RecentRuns(serial uint32, limit int) ([]database.RunEntry, error)
}

type Server struct {
	cfg     *config.Instance
	svc     Service
	router  chi.Router
	limiter *middleware.IPRateLimiter
}

func NewServer(cfg *config.Instance, svc Service) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		limiter: middleware.NewIPRateLimiter(nil),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(chimiddleware.Timeout(config.ApiRequestTimeout))

	origins := s.cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = []string{"http://*", "https://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{},
	}))

	r.Get("/api/version", s.handleVersion)
	r.Get("/api/fixtures", s.handleFixtures)
	r.Get("/api/fixtures.csv", s.handleFixturesCSV)
	r.Get("/api/fixtures/{serial}/log", s.handleFixtureLog)
	r.Get("/api/export", s.handleExportStatus)
	r.Get("/api/firmware", s.handleFirmware)
	r.Get("/api/runs", s.handleRuns)

	r.Group(func(r chi.Router) {
		r.Use(middleware.IPFilterMiddleware(middleware.NewIPFilter(s.cfg.AllowedIPs())))
		r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
		r.Post("/api/command", s.handleCommand)
		r.Post("/api/debug/interaction", s.handleInteraction)
		r.Post("/api/lot", s.handleLot)
		r.Post("/api/export", s.handleStartExport)
	})

	return r
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.APIListen(),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.limiter.StartCleanup(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("error shutting down http server")
		}
	}()

	log.Info().Msgf("starting api on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func errorStatus(err error) int {
	var ve *validation.Error
	switch {
	case errors.As(err, &ve),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func readParams[T any](w http.ResponseWriter, r *http.Request, dest *T) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return validation.ErrInvalidParams
	}
	return validation.ValidateAndUnmarshal(body, dest)
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": config.AppVersion,
		"station": s.cfg.StationName(),
	})
}

func (s *Server) handleFixtures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Statuses())
}

func (s *Server) handleFixturesCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	statuses := s.svc.Statuses()
	if err := gocsv.Marshal(&statuses, w); err != nil {
		log.Error().Err(err).Msg("error writing fixture csv")
	}
}

func (s *Server) handleFixtureLog(w http.ResponseWriter, r *http.Request) {
	serial, err := strconv.ParseUint(chi.URLParam(r, "serial"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid serial: %w", err))
		return
	}
	for _, st := range s.svc.Statuses() {
		if st.Serial == uint32(serial) {
			writeJSON(w, http.StatusOK, models.FixtureLogResponse{
				Port:    st.Port,
				LastRun: st.LastRun,
				Details: st.Details,
				Serial:  st.Serial,
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("fixture %d not connected", serial))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var params models.CommandParams
	if err := readParams(w, r, &params); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	s.svc.QueueCommand(params.Command)
	log.Info().Str("command", params.Command).Msg("queued fixture command")
	writeJSON(w, http.StatusAccepted, models.StatusResponse{Status: "queued"})
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var params models.InteractionParams
	if err := readParams(w, r, &params); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	color := 0
	if params.Color != nil {
		color = *params.Color
	}
	if err := s.svc.SetInteraction(params.Interaction, color); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (s *Server) handleLot(w http.ResponseWriter, r *http.Request) {
	var params models.LotParams
	if err := readParams(w, r, &params); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	if err := s.svc.SetLot(params.Lot); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Status: "ok"})
}

func (s *Server) handleStartExport(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.StartExport(); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, models.StatusResponse{Status: "started"})
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ExportStatus(r.Context()))
}

func (s *Server) handleFirmware(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Firmware())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	var serial uint64
	if v := r.URL.Query().Get("serial"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid serial: %w", err))
			return
		}
		serial = parsed
	}
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %q", v))
			return
		}
		limit = parsed
	}

	entries, err := s.svc.RecentRuns(uint32(serial), limit)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	runs := make([]models.RunResponse, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, models.RunResponse{
			SealedAt:   e.SealedAt,
			Port:       e.Port,
			Result:     e.Result,
			ResultName: e.ResultName,
			ESN:        e.ESN,
			LotCode:    e.LotCode,
			ID:         e.DBID,
			Serial:     e.FixtureSerial,
			Cycle:      e.Cycle,
			Model:      e.Model,
		})
	}
	writeJSON(w, http.StatusOK, runs)
}
