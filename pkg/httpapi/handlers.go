package httpapi

import (
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/hapticqueue/pkg/clientip"
	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
	"github.com/dmitrymomot/hapticqueue/pkg/requestid"
)

type commandRequest struct {
	Kind       string         `json:"kind"`
	DeviceID   string         `json:"device_id"`
	Intensity  int            `json:"intensity"`
	DurationMs int            `json:"duration_ms"`
	UserID     string         `json:"user_id"`
	Source     string         `json:"source"`
	Priority   int            `json:"priority,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type executeRequest struct {
	DeviceID string         `json:"device_id"`
	UserID   string         `json:"user_id"`
	Source   string         `json:"source"`
	Repeat   int            `json:"repeat,omitempty"`
	Priority int            `json:"priority,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

type executeResponse struct {
	ExecutionID string `json:"execution_id"`
}

// requestMeta copies meta and adds the request id and client address.
func requestMeta(r *http.Request, meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+2)
	maps.Copy(out, meta)
	if id := requestid.FromContext(r.Context()); id != "" {
		out["request_id"] = id
	}
	if ip := clientip.FromContext(r.Context()); ip != "" {
		out["client_ip"] = ip
	}
	return out
}

// callerID falls back to the client address so anonymous callers still get
// their own rate limit bucket.
func callerID(r *http.Request, userID string) string {
	if userID != "" {
		return userID
	}
	if ip := clientip.FromContext(r.Context()); ip != "" {
		return "ip:" + ip
	}
	return ""
}

func (a *API) enqueueCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, statusFor(err), queue.EnqueueResult{Message: err.Error()})
		return
	}

	cmd, err := command.New(req.Kind, req.DeviceID, req.Intensity, req.DurationMs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, queue.EnqueueResult{Message: err.Error()})
		return
	}

	opts := []queue.EnqueueOption{queue.WithMetadata(requestMeta(r, req.Metadata))}
	if req.Priority != 0 {
		opts = append(opts, queue.WithPriority(queue.Priority(req.Priority)))
	}

	res := a.queue.Enqueue(r.Context(), cmd, callerID(r, req.UserID), req.Source, opts...)
	if !res.Success {
		writeJSON(w, statusFor(res.Err), res)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (a *API) cancelCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.queue.Cancel(id); err != nil {
		a.writeError(w, r, err)
		return
	}
	item, _ := a.queue.Item(id)
	writeJSON(w, http.StatusOK, item)
}

func (a *API) queueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.queue.Status())
}

func (a *API) queueStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.queue.Stats())
}

func (a *API) pendingItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.queue.Pending())
}

func (a *API) queueItem(w http.ResponseWriter, r *http.Request) {
	item, ok := a.queue.Item(chi.URLParam(r, "id"))
	if !ok {
		a.writeError(w, r, queue.ErrItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) pauseQueue(w http.ResponseWriter, r *http.Request) {
	a.queue.Pause()
	a.log.InfoContext(r.Context(), "queue paused via api")
	writeJSON(w, http.StatusOK, a.queue.Status())
}

func (a *API) resumeQueue(w http.ResponseWriter, r *http.Request) {
	a.queue.Resume()
	a.log.InfoContext(r.Context(), "queue resumed via api")
	writeJSON(w, http.StatusOK, a.queue.Status())
}

func (a *API) listPatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.library.All())
}

func (a *API) executePattern(w http.ResponseWriter, r *http.Request) {
	p, err := a.library.Get(chi.URLParam(r, "name"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	opts := []pattern.ExecuteOption{
		pattern.WithRepeat(req.Repeat),
		pattern.WithContext(requestMeta(r, req.Context)),
	}
	if req.Priority != 0 {
		opts = append(opts, pattern.WithPriority(queue.Priority(req.Priority)))
	}

	id, err := a.executor.Execute(r.Context(), p, req.DeviceID, callerID(r, req.UserID), req.Source, opts...)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, executeResponse{ExecutionID: id})
}

func (a *API) activeExecutions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.executor.Active())
}

func (a *API) executionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.executor.Stats())
}

func (a *API) execution(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.executor.Execution(chi.URLParam(r, "id"))
	if !ok {
		a.writeError(w, r, pattern.ErrExecutionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) cancelExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.executor.Cancel(id); err != nil {
		a.writeError(w, r, err)
		return
	}
	snap, _ := a.executor.Execution(id)
	writeJSON(w, http.StatusOK, snap)
}
