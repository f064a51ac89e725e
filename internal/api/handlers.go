// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/logging"
)

type connectRequest struct {
	ConnectionString string `json:"connectionString"`
}

type runRequest struct {
	Script string `json:"script"`
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Database  string `json:"database,omitempty"`
}

func decode(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.BadRequest, "request body must be a JSON object", err)
	}
	return nil
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, err)
		return
	}

	s.log.Info("connect requested", logging.DSN(req.ConnectionString))
	// The old pool is gone once Connect starts; finish even if the client leaves.
	if err := s.runner.Connect(context.WithoutCancel(r.Context()), req.ConnectionString); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Connection pool initialized successfully.",
	})
}

func (s *Server) handleRunTest(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decode(r, w, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.runner.RunScript(r.Context(), req.Script)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal || apperr.KindOf(err) == apperr.ConnectionError {
			s.log.Error("run failed", zap.String("script", req.Script), zap.Error(err))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Connected: s.runner.Connected(),
		Database:  s.runner.Database(),
	})
}

func (s *Server) handleScripts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scripts": s.catalog.List()})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Board().Snapshot())
}

func (s *Server) handleSummaryReset(w http.ResponseWriter, _ *http.Request) {
	board := s.runner.Board()
	board.Reset()
	writeJSON(w, http.StatusOK, board.Snapshot())
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	renderHTML(w, http.StatusOK, indexPage(s.catalog.List(), s.runner.Board().Statuses(), s.runner.Connected(), s.runner.Database()))
}
