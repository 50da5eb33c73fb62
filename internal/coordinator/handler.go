package coordinator

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"playback-coordinator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes the coordinator's event-ingest and status endpoints using
// go-chi. The player engine POSTs its state-change and seek events here; the
// orchestrator interprets them and keeps the session bookkeeping consistent.
type Handler struct {
	registry         *Registry
	log              *slog.Logger
	metrics          *metrics.Metrics
	bufferingTimeout time.Duration
}

// NewHandler returns a Handler that uses the given Registry, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording (e.g. in
// tests). bufferingTimeout is the watchdog period for sessions created
// through this handler.
func NewHandler(registry *Registry, log *slog.Logger, m *metrics.Metrics, bufferingTimeout time.Duration) *Handler {
	return &Handler{registry: registry, log: log, metrics: m, bufferingTimeout: bufferingTimeout}
}

// Routes mounts all session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/events/state", h.StateEvent)
		r.Post("/events/seek-requested", h.SeekRequestedEvent)
		r.Post("/events/seek-completed", h.SeekCompletedEvent)
		r.Post("/events/quality-switch", h.QualitySwitchEvent)
	})
}

type createSessionRequest struct {
	SessionID          string `json:"session_id,omitempty"`
	IsHls              bool   `json:"is_hls"`
	MetadataDurationMs int64  `json:"metadata_duration_ms"`
	StartPositionTicks int64  `json:"start_position_ticks"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession handles POST /sessions.
// Body: { "is_hls": true, "metadata_duration_ms": 125000, "start_position_ticks": 1200000000 }.
// A missing session_id is generated.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create session body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id := SessionID(req.SessionID)
	if id == "" {
		id = SessionID(uuid.NewString())
	}

	handle := NewEngineStateHandle()
	sessionLog := h.log.With(slog.String("session_id", string(id)))

	var orch *Orchestrator
	timer := NewBufferingTimer(h.bufferingTimeout, func() {
		if orch != nil {
			orch.OnBufferingTimeout()
		}
	})

	orch = NewOrchestrator(OrchestratorConfig{
		Handle:             handle,
		Control:            NewLoopbackControl(handle),
		Timer:              timer,
		Hooks:              &loggingHooks{log: sessionLog},
		Log:                sessionLog,
		Metrics:            h.metrics,
		IsHlsStream:        req.IsHls,
		MetadataDuration:   time.Duration(req.MetadataDurationMs) * time.Millisecond,
		StartPositionTicks: req.StartPositionTicks,
	})

	if err := h.registry.Add(id, orch); err != nil {
		h.log.Info("session rejected",
			slog.String("session_id", string(id)),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusConflict)
		return
	}

	sessionLog.Info("session created",
		slog.Bool("is_hls", req.IsHls),
		slog.Int64("start_position_ticks", req.StartPositionTicks))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createSessionResponse{SessionID: string(id)})
}

// StateEvent handles POST /sessions/{session_id}/events/state.
// The body is an EngineReport; the merged state drives the orchestrator's
// playback-state-changed handling.
func (h *Handler) StateEvent(w http.ResponseWriter, r *http.Request) {
	orch, handle, ok := h.session(w, r)
	if !ok {
		return
	}

	var rep EngineReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := handle.Apply(rep); err != nil {
		h.log.Debug("invalid engine report", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orch.HandlePlaybackStateChanged()
	w.WriteHeader(http.StatusAccepted)
}

type seekRequestedEvent struct {
	TargetMs int64 `json:"target_ms"`
}

// SeekRequestedEvent handles POST /sessions/{session_id}/events/seek-requested.
func (h *Handler) SeekRequestedEvent(w http.ResponseWriter, r *http.Request) {
	orch, _, ok := h.session(w, r)
	if !ok {
		return
	}

	var ev seekRequestedEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orch.HandleSeekRequested(time.Duration(ev.TargetMs) * time.Millisecond)
	w.WriteHeader(http.StatusAccepted)
}

// SeekCompletedEvent handles POST /sessions/{session_id}/events/seek-completed.
// The body may carry an EngineReport describing where the seek landed.
func (h *Handler) SeekCompletedEvent(w http.ResponseWriter, r *http.Request) {
	orch, handle, ok := h.session(w, r)
	if !ok {
		return
	}

	var rep EngineReport
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := handle.Apply(rep); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orch.HandleSeekCompleted()
	w.WriteHeader(http.StatusAccepted)
}

type qualitySwitchEvent struct {
	PositionTicks int64 `json:"position_ticks"`
}

// QualitySwitchEvent handles POST /sessions/{session_id}/events/quality-switch.
func (h *Handler) QualitySwitchEvent(w http.ResponseWriter, r *http.Request) {
	orch, _, ok := h.session(w, r)
	if !ok {
		return
	}

	var ev qualitySwitchEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orch.HandleQualitySwitch(ev.PositionTicks)
	w.WriteHeader(http.StatusAccepted)
}

type sessionStatusResponse struct {
	SessionID               string `json:"session_id"`
	State                   string `json:"state"`
	PositionMs              int64  `json:"position_ms"`
	DisplayPositionMs       int64  `json:"display_position_ms"`
	Buffering               bool   `json:"buffering"`
	VideoStarted            bool   `json:"video_started"`
	IsHls                   bool   `json:"is_hls"`
	HlsManifestOffsetMs     int64  `json:"hls_manifest_offset_ms"`
	PendingSeekCount        int    `json:"pending_seek_count"`
	HasPerformedInitialSeek bool   `json:"has_performed_initial_seek"`
}

// GetSession handles GET /sessions/{session_id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	orch, _, ok := h.session(w, r)
	if !ok {
		return
	}

	s := orch.Status()
	resp := sessionStatusResponse{
		SessionID:               chi.URLParam(r, "session_id"),
		State:                   s.State.String(),
		PositionMs:              s.Position.Milliseconds(),
		DisplayPositionMs:       s.DisplayPosition.Milliseconds(),
		Buffering:               s.Buffering,
		VideoStarted:            s.VideoStarted,
		IsHls:                   s.IsHlsStream,
		HlsManifestOffsetMs:     s.HlsManifestOffset.Milliseconds(),
		PendingSeekCount:        s.PendingSeekCount,
		HasPerformedInitialSeek: s.HasPerformedInitialSeek,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// DeleteSession handles DELETE /sessions/{session_id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !h.registry.Remove(id) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	h.log.Info("session removed", slog.String("session_id", string(id)))
	w.WriteHeader(http.StatusOK)
}

// session resolves the session from the URL and writes the error response
// itself when the lookup fails.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Orchestrator, *EngineStateHandle, bool) {
	id := SessionID(chi.URLParam(r, "session_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return nil, nil, false
	}

	orch, ok := h.registry.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return nil, nil, false
	}

	handle, ok := orch.Handle().(*EngineStateHandle)
	if !ok {
		// Sessions registered with a foreign handle cannot take reports.
		w.WriteHeader(http.StatusConflict)
		return nil, nil, false
	}
	return orch, handle, true
}

// loggingHooks reports the orchestrator's side-effect requests in the log.
// A host embedding the coordinator directly wires these into its engine.
type loggingHooks struct {
	log *slog.Logger
}

func (h *loggingHooks) AttemptRecovery() {
	h.log.Info("recovery requested, resuming playback to refresh manifest")
}

func (h *loggingHooks) ManifestPossiblyChanged(position, natural, metadata time.Duration) {
	h.log.Warn("manifest duration mismatch",
		slog.Duration("position", position),
		slog.Duration("natural", natural),
		slog.Duration("metadata", metadata))
}

func (h *loggingHooks) OnResumeFailed(ctx ResumeFailureContext) {
	h.log.Warn("resume failed",
		slog.Int("retries", ctx.RetryCount),
		slog.Duration("position", ctx.CurrentPosition),
		slog.Duration("target", ctx.TargetPosition),
		slog.String("stream_type", ctx.StreamType))
}

func (h *loggingHooks) OffsetWorkaroundCompleted(offset time.Duration) {
	h.log.Info("manifest offset workaround completed", slog.Duration("offset", offset))
}

func (h *loggingHooks) TriggerHlsBufferingFix() {
	h.log.Info("hls buffering fix triggered")
}
