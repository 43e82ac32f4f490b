package handler

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medqueue/internal/tokens/events"
	"medqueue/internal/tokens/service"
	apperrors "medqueue/pkg/errors"
	httputil "medqueue/pkg/http"
	"medqueue/pkg/logger"
	"medqueue/pkg/middleware"
)

type TokenHandler struct {
	service service.TokenService
	log     *logger.Logger
}

func NewTokenHandler(service service.TokenService, log *logger.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		log:     log,
	}
}

// Current returns the authenticated patient's ticket for today, issuing one
// if needed.
func (h *TokenHandler) Current(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	entry, err := h.service.CurrentToken(requestContext(r), patientID)
	if err != nil {
		h.writeServiceError(w, r, "Current", err)
		return
	}

	httputil.WriteSuccess(w, entry)
}

func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	patientID, ok := middleware.PatientIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	entry, err := h.service.IssueOrFetch(requestContext(r), patientID)
	if err != nil {
		h.writeServiceError(w, r, "Issue", err)
		return
	}

	httputil.WriteSuccess(w, entry)
}

func (h *TokenHandler) Today(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entry, err := h.service.TodayLedger(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Today", err)
		return
	}

	httputil.WriteSuccess(w, entry)
}

func (h *TokenHandler) ByDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	day := ps.ByName("day")
	if day == "" {
		httputil.WriteError(w, apperrors.InvalidInput("day parameter is required"))
		return
	}

	entry, err := h.service.LedgerForDay(r.Context(), day)
	if err != nil {
		h.writeServiceError(w, r, "ByDay", err)
		return
	}

	httputil.WriteSuccess(w, entry)
}

func (h *TokenHandler) writeServiceError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error("Token request failed",
			"handler", handler,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"retryable", apperrors.IsRetryable(err),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

// requestContext tags events published while serving r with its request id.
func requestContext(r *http.Request) context.Context {
	return events.WithCorrelationID(r.Context(), middleware.RequestIDFromContext(r.Context()))
}

func (h *TokenHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tokens/current", h.Current)
	router.POST("/api/v1/tokens", h.Issue)
	router.GET("/api/v1/tokens/today", h.Today)
	router.GET("/api/v1/tokens/days/:day", h.ByDay)
}
