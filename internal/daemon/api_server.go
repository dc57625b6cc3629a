package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"distq/internal/api"
	"distq/internal/logging"
	"distq/internal/metrics"
	"distq/internal/queue"
)

const defaultListLimit = 50

type apiHandler struct {
	daemon   *Daemon
	queueSvc *api.QueueService
}

// routes returns the /api handlers mounted on the metrics listener.
func (d *Daemon) routes() []metrics.Route {
	return []metrics.Route{{Pattern: "/api/", Handler: d.apiHandler()}}
}

func (d *Daemon) apiHandler() http.Handler {
	h := &apiHandler{daemon: d, queueSvc: api.NewQueueService(d.LookupQueue)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("POST /api/prune", h.handlePrune)
	mux.HandleFunc("GET /api/queues/{name}/entries", h.handleEntries)
	mux.HandleFunc("GET /api/queues/{name}/entries/{id}", h.handleEntry)
	mux.HandleFunc("GET /api/queues/{name}/head", h.handleHead)
	return authMiddleware(d.cfg.Metrics.Token, mux)
}

func (h *apiHandler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.daemon.Status())
}

func (h *apiHandler) handlePrune(w http.ResponseWriter, r *http.Request) {
	report, err := h.daemon.PruneAll(r.Context())
	if err != nil {
		h.daemon.logger.Warn("prune via api failed", logging.Error(err))
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *apiHandler) handleEntries(w http.ResponseWriter, r *http.Request) {
	skip, err := intParam(r, "skip", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultListLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.queueSvc.List(r.Context(), r.PathValue("name"), skip, limit)
	if err != nil {
		h.writeQueueError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) handleEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.queueSvc.Describe(r.Context(), r.PathValue("name"), r.PathValue("id"))
	if err != nil {
		h.writeQueueError(w, err)
		return
	}
	if entry == nil {
		h.writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	h.writeJSON(w, http.StatusOK, api.QueueEntryResponse{Entry: *entry})
}

func (h *apiHandler) handleHead(w http.ResponseWriter, r *http.Request) {
	entry, err := h.queueSvc.Head(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeQueueError(w, err)
		return
	}
	if entry == nil {
		h.writeError(w, http.StatusNotFound, "queue is empty")
		return
	}
	h.writeJSON(w, http.StatusOK, api.QueueEntryResponse{Entry: *entry})
}

func (h *apiHandler) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrInvalidQueueName), errors.Is(err, queue.ErrInvalidEntryID):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrQueueNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.daemon.logger.Error("api request failed", logging.Error(err))
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.daemon.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *apiHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func intParam(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
