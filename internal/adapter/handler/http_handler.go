package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/fourthcafe-inventory/internal/core/domain"
	"github.com/rl1809/fourthcafe-inventory/internal/core/service"
)

type HTTPHandler struct {
	inventoryService *service.InventoryService
	log              logrus.FieldLogger
}

type InventoryHTTPResponse struct {
	ID        int64 `json:"id"`
	Committed bool  `json:"committed"`
}

type ErrorHTTPResponse struct {
	Message string `json:"message"`
}

func NewHTTPHandler(inventoryService *service.InventoryService, log logrus.FieldLogger) *HTTPHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HTTPHandler{inventoryService: inventoryService, log: log}
}

// Routes mounts the API. requestsPerMinute <= 0 disables rate limiting.
func (h *HTTPHandler) Routes(requestsPerMinute int, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Get("/health", h.HealthCheck)
	r.Route("/api/inventories", func(r chi.Router) {
		if requestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))
		}
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
	})
	return r
}

func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	if dryRun {
		if _, err := h.inventoryService.CreateThenRollback(r.Context()); err != nil {
			h.internalError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, InventoryHTTPResponse{Committed: false})
		return
	}

	rec, err := h.inventoryService.Create(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, InventoryHTTPResponse{ID: rec.ID, Committed: true})
}

func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid id"})
		return
	}

	rec, err := h.inventoryService.Get(r.Context(), id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorHTTPResponse{Message: "not found"})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InventoryHTTPResponse{ID: rec.ID, Committed: true})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"request_id": middleware.GetReqID(r.Context()),
		"error":      err,
	}).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
