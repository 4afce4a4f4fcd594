package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"extid/internal/externalid/models"
	"extid/internal/externalid/visibility"
	"extid/internal/platform/metrics"
	"extid/internal/platform/middleware"
	dErrors "extid/pkg/domain-errors"
	"extid/pkg/platform/httputil"
	"extid/pkg/platform/middleware/metadata"
	"extid/pkg/platform/middleware/requesttime"
	"extid/pkg/requestcontext"
)

const requestTimeout = 30 * time.Second

// Service defines the directory operations the handler exposes.
type Service interface {
	ListExternalIDs(ctx context.Context, req models.ListRequest, callerStudies models.CallerStudies) (*models.ForwardCursorPage, error)
	GetExternalID(ctx context.Context, appID, identifier string) (*models.ExternalID, error)
	CreateExternalID(ctx context.Context, externalID *models.ExternalID) error
	DeleteExternalID(ctx context.Context, appID, identifier string) error
	CommitAssignment(ctx context.Context, externalID *models.ExternalID) error
	Unassign(ctx context.Context, account models.Account, identifier string) (*models.ExternalID, error)
}

// Handler serves the external ID directory over HTTP.
type Handler struct {
	logger          *slog.Logger
	service         Service
	metrics         *metrics.Metrics
	defaultPageSize int
}

// New creates a Handler. defaultPageSize applies when a list request omits pageSize.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, defaultPageSize int) *Handler {
	return &Handler{
		logger:          logger,
		service:         service,
		metrics:         metrics,
		defaultPageSize: defaultPageSize,
	}
}

// Register mounts the directory routes on r.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(requestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))

	router.Route("/v1/apps/{appId}/externalids", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{externalId}", h.handleGet)
		r.Delete("/{externalId}", h.handleDelete)
		r.Post("/{externalId}/assignment", h.handleCommitAssignment)
		r.Delete("/{externalId}/assignment", h.handleUnassign)
	})

	r.Mount("/", router)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	req := models.ListRequest{
		AppID:     chi.URLParam(r, "appId"),
		OffsetKey: query.Get(models.ParamOffsetKey),
		PageSize:  h.defaultPageSize,
		IDFilter:  query.Get(models.ParamIDFilter),
	}
	if raw := query.Get(models.ParamPageSize); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(ctx, w, dErrors.New(dErrors.CodeValidation, "pageSize must be an integer"))
			return
		}
		req.PageSize = size
	}
	assignment, err := models.ParseAssignmentFilter(query.Get(models.ParamAssignmentFilter))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	req.Assignment = assignment

	studies := models.NewCallerStudies(requestcontext.CallerStudies(ctx)...)
	page, err := h.service.ListExternalIDs(ctx, req, studies)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	externalID, err := h.service.GetExternalID(ctx, chi.URLParam(r, "appId"), chi.URLParam(r, "externalId"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	studies := models.NewCallerStudies(requestcontext.CallerStudies(ctx)...)
	httputil.WriteJSON(w, http.StatusOK, toResponse(externalID, studies))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateExternalIDRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	req.Normalize()

	externalID := req.ToExternalID(chi.URLParam(r, "appId"))
	if err := h.service.CreateExternalID(ctx, externalID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(externalID, nil))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.DeleteExternalID(ctx, chi.URLParam(r, "appId"), chi.URLParam(r, "externalId")); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCommitAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.AssignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	appID := chi.URLParam(r, "appId")
	identifier := chi.URLParam(r, "externalId")
	if err := h.service.CommitAssignment(ctx, &models.ExternalID{
		AppID:      appID,
		Identifier: identifier,
		HealthCode: req.HealthCode,
	}); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := models.AssignRequest{HealthCode: r.URL.Query().Get("healthCode")}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	account := models.Account{AppID: chi.URLParam(r, "appId"), HealthCode: req.HealthCode}
	released, err := h.service.Unassign(ctx, account, chi.URLParam(r, "externalId"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if released == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	studies := models.NewCallerStudies(requestcontext.CallerStudies(ctx)...)
	httputil.WriteJSON(w, http.StatusOK, toResponse(released, studies))
}

// writeError logs server-side failures at error level and client mistakes at
// warn, then writes the mapped response.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "external ID request failed",
		"request_id", middleware.GetRequestID(ctx),
		"status", status,
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}

// toResponse renders a single record with the same study redaction the
// directory applies.
func toResponse(e *models.ExternalID, studies models.CallerStudies) models.ExternalIDResponse {
	return models.ExternalIDResponse(visibility.Redact(e, studies))
}
