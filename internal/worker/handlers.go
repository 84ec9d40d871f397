package worker

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/clusterizer/internal/cluster"
	"github.com/thebtf/clusterizer/internal/report"
	"github.com/thebtf/clusterizer/internal/worker/sse"
	"github.com/thebtf/clusterizer/pkg/similarity"
)

// clusterRequest is the body of POST /api/cluster. Unset fields use the
// service configuration.
type clusterRequest struct {
	BaselineScore     *float64 `json:"baseline_score,omitempty"`
	SingletonCohesion *float64 `json:"singleton_cohesion,omitempty"`
	Ngram             *int     `json:"ngram,omitempty"`
	Metric            string   `json:"metric,omitempty"`
	Cohesion          string   `json:"cohesion,omitempty"`
	Collisions        string   `json:"collisions,omitempty"`
	Records           []string `json:"records"`
	MinSize           int      `json:"min_size,omitempty"`
	Trace             bool     `json:"trace,omitempty"`
}

// options layers the request over the configured engine options.
func (s *Service) options(req *clusterRequest) (cluster.Options, error) {
	opts, err := s.config.EngineOptions()
	if err != nil {
		return opts, err
	}
	if req.Ngram != nil {
		opts.ShingleLength = *req.Ngram
	}
	if req.BaselineScore != nil {
		opts.BaselineScore = *req.BaselineScore
	}
	if req.SingletonCohesion != nil {
		opts.SingletonCohesion = *req.SingletonCohesion
	}
	if req.Metric != "" {
		if opts.Metric, err = similarity.ParseMetric(req.Metric); err != nil {
			return opts, err
		}
	}
	if req.Cohesion != "" {
		if opts.Cohesion, err = cluster.ParseCohesionMode(req.Cohesion); err != nil {
			return opts, err
		}
	}
	if req.Collisions != "" {
		if opts.Collisions, err = cluster.ParseCollisionPolicy(req.Collisions); err != nil {
			return opts, err
		}
	}
	opts.Trace = opts.Trace || req.Trace
	return opts, nil
}

// handleCluster clusters the posted records.
func (s *Service) handleCluster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	var req clusterRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if limit := s.config.Server.MaxRecords; len(req.Records) > limit {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("too many records: %d exceeds limit of %d", len(req.Records), limit))
		return
	}
	if req.MinSize < 0 {
		writeError(w, http.StatusBadRequest, "min_size must not be negative")
		return
	}

	opts, err := s.options(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.runner.Run(r.Context(), req.Records, opts)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Cluster request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.events.Broadcast(sse.RunEvent(rep))
	writeJSON(w, http.StatusOK, report.Filter(rep, req.MinSize))
}

func isValidationError(err error) bool {
	return errors.Is(err, cluster.ErrInvalidShingleLength) ||
		errors.Is(err, cluster.ErrInvalidOption) ||
		errors.Is(err, similarity.ErrUnknownMetric)
}

// handleHealth reports liveness, readiness and version.
func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleVersion reports the build version.
func (s *Service) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// handleReady returns 200 once the service accepts cluster requests.
func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "service not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
