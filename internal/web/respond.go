// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/holomush/authd/internal/apierror"
	"github.com/holomush/authd/pkg/errutil"
)

// SuccessMessage is one entry of a success envelope.
type SuccessMessage struct {
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// SuccessEnvelope is the JSON body of every successful response.
type SuccessEnvelope struct {
	Success  bool             `json:"success"`
	Status   int              `json:"status"`
	Messages []SuccessMessage `json:"messages"`
}

func respond(w http.ResponseWriter, r *http.Request, status int, msg string, data any) {
	render.Status(r, status)
	render.JSON(w, r, SuccessEnvelope{
		Success:  true,
		Status:   status,
		Messages: []SuccessMessage{{Msg: msg, Data: data}},
	})
}

// writeError renders err as a failure envelope. Internal errors are logged
// with their cause; clients only see the generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := apierror.From(err)
	if apiErr.Kind == apierror.KindInternal {
		cause := apiErr.Unwrap()
		if cause == nil {
			cause = apiErr
		}
		errutil.LogErrorContext(r.Context(), logger, "request failed", cause)
	}
	render.Status(r, apiErr.Status())
	render.JSON(w, r, apiErr.Envelope())
}
