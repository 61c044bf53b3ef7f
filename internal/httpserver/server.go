package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ILLUVRSE/trip-planner/internal/auth"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/service"
)

const maxBodyBytes = 1 << 20

type Server struct {
	service  *service.Service
	verifier *auth.Verifier
	logger   *log.Logger
}

func New(svc *service.Service, verifier *auth.Verifier, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[http] ", log.LstdFlags)
	}
	return &Server{service: svc, verifier: verifier, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/plan", func(r chi.Router) {
		r.With(s.writeAuth).Post("/", s.handleSubmit)
		r.Get("/status/{taskID}", s.handleStatus)
		r.Get("/jobs/{taskID}", s.handleJob)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC(),
	}
	if err := s.service.Ping(ctx); err != nil {
		status["ok"] = false
		status["db"] = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.TripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	handle, err := s.service.Submit(r.Context(), req)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
			return
		}
		s.logger.Printf("submit plan: %v", err)
		respondError(w, http.StatusInternalServerError, "could not queue plan")
		return
	}
	respondJSON(w, http.StatusAccepted, handle)
}

func (s *Server) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "task not found")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	view, err := s.service.Status(r.Context(), id)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.taskID(w, r)
	if !ok {
		return
	}
	job, err := s.service.Job(r.Context(), id)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) respondLookupError(w http.ResponseWriter, err error) {
	var nf *service.NotFoundError
	if errors.As(err, &nf) {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}
	s.logger.Printf("lookup job: %v", err)
	respondError(w, http.StatusInternalServerError, "could not load task")
}

func (s *Server) writeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		if err := s.verifier.VerifyRequest(r); err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
