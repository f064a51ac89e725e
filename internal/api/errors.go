// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperr "plcheck/cli/internal/errors"
	"plcheck/cli/internal/logging"
	"plcheck/cli/internal/notice"
	"plcheck/cli/internal/sqlexec"
)

type errorBody struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Kind    string         `json:"kind"`
	Output  []sqlexec.Line `json:"output,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.BadRequest, apperr.ConfigError, apperr.NotConnected:
		return http.StatusBadRequest
	case apperr.ScriptNotFound:
		return http.StatusNotFound
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorText is the message shown to the operator. Causes are included with
// secrets masked, except for missing scripts where the cause is a file path.
func errorText(err error) string {
	var e *apperr.E
	if !errors.As(err, &e) {
		return logging.Mask(err.Error())
	}
	if e.Err == nil || e.Kind == apperr.ScriptNotFound {
		return e.Message
	}
	return logging.PresentError(e.Message, e.Err)
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	body := errorBody{Success: false, Error: errorText(err), Kind: string(kind)}
	if status == http.StatusInternalServerError {
		body.Output = []sqlexec.Line{{Kind: notice.Error, Text: body.Error}}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
