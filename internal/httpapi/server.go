package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ecanzonieri/pitchline/internal/assist"
	"github.com/ecanzonieri/pitchline/internal/config"
	"github.com/ecanzonieri/pitchline/internal/logger"
	"github.com/ecanzonieri/pitchline/internal/observability"
	"github.com/ecanzonieri/pitchline/internal/session"
)

// Pipeline is the slice of the turn orchestrator the API layer needs.
type Pipeline interface {
	StartCall() error
	ProcessTurn(ctx context.Context, customerID int64, seg assist.Segment) (assist.TurnResult, error)
	Transcript() (string, error)
	Events() *assist.Hub
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	pipeline Pipeline
	metrics  *observability.Metrics
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, pipeline Pipeline, metrics *observability.Metrics, log *logger.Logger) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		pipeline: pipeline,
		metrics:  metrics,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly opened
				// up; non-browser clients without an Origin header are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/call", s.handleBeginCall)
	r.Post("/v1/call/turn", s.handleTurn)
	r.Post("/v1/call/end", s.handleEndCall)
	r.Get("/v1/call/transcript", s.handleTranscript)
	r.Get("/v1/call/events", s.handleEvents)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"active_calls": s.sessions.ActiveCount(),
	})
}

type beginCallRequest struct {
	CustomerID int64 `json:"customer_id"`
}

func (s *Server) handleBeginCall(w http.ResponseWriter, r *http.Request) {
	var req beginCallRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.CustomerID <= 0 {
		req.CustomerID = s.cfg.CustomerID
	}

	call, err := s.sessions.Begin(req.CustomerID)
	if err != nil {
		respondError(w, http.StatusConflict, "call_active", err.Error())
		return
	}
	if err := s.pipeline.StartCall(); err != nil {
		_, _ = s.sessions.End()
		respondError(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}

	s.metrics.ActiveCalls.Set(float64(s.sessions.ActiveCount()))
	s.metrics.CallEvents.WithLabelValues("started").Inc()
	s.log.WithRequest(r).WithField("call_id", call.ID).Info("call started")
	respondJSON(w, http.StatusCreated, call)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	call, err := s.sessions.Current()
	if err != nil {
		respondError(w, http.StatusConflict, "no_active_call", err.Error())
		return
	}

	seg, err := readSegment(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_audio", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.TurnTimeout)
	defer cancel()

	res, err := s.pipeline.ProcessTurn(ctx, call.CustomerID, seg)
	if err != nil {
		var te *assist.TurnError
		if errors.As(err, &te) {
			if te.LogWrite() {
				// Logged state can no longer be trusted; tear the session down
				// so the next call starts from a fresh transcript.
				if _, endErr := s.sessions.End(); endErr == nil {
					s.metrics.ActiveCalls.Set(float64(s.sessions.ActiveCount()))
					s.metrics.CallEvents.WithLabelValues("aborted").Inc()
				}
				s.log.WithRequest(r).WithError(te).Error("log write failed, session aborted")
			}
			respondError(w, http.StatusBadGateway, "turn_failed_"+te.Stage, te.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}
	_ = s.sessions.RecordTurn()

	if res.Ended {
		if _, err := s.sessions.End(); err == nil {
			s.metrics.ActiveCalls.Set(float64(s.sessions.ActiveCount()))
			s.metrics.CallEvents.WithLabelValues("ended").Inc()
		}
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleEndCall(w http.ResponseWriter, r *http.Request) {
	call, err := s.sessions.End()
	if err != nil {
		respondError(w, http.StatusNotFound, "no_active_call", err.Error())
		return
	}
	s.metrics.ActiveCalls.Set(float64(s.sessions.ActiveCount()))
	s.metrics.CallEvents.WithLabelValues("force_ended").Inc()
	s.log.WithRequest(r).WithField("call_id", call.ID).Info("call force-ended")
	respondJSON(w, http.StatusOK, call)
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	transcript, err := s.pipeline.Transcript()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "transcript_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"transcript": transcript})
}

// handleEvents streams turn events to the UI shell over a websocket.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.CallEvents.WithLabelValues("ws_connected").Inc()
	defer s.metrics.CallEvents.WithLabelValues("ws_disconnected").Inc()

	events, unsub := s.pipeline.Events().Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader only detects the client going away; the feed is one-way.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

// readSegment extracts the audio segment from a multipart "audio" part, or
// from the raw body for non-multipart requests.
func readSegment(r *http.Request) (assist.Segment, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return assist.Segment{}, err
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			return assist.Segment{}, err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return assist.Segment{}, err
		}
		return assist.Segment{Audio: data, MIME: hdr.Header.Get("Content-Type")}, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		return assist.Segment{}, err
	}
	return assist.Segment{Audio: data, MIME: ct}, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
