package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobbridge/app/assist"
	"github.com/umputun/jobbridge/app/catalog"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/web/persistence"
)

// APIAskRequest is the JSON request for /api/v1/ask
type APIAskRequest struct {
	Question string `json:"question"`
}

// APIAskResponse is the JSON response for /api/v1/ask
type APIAskResponse struct {
	Question string `json:"question"`
	assist.Reply
}

// APIStatusResponse is the JSON response for /api/v1/status
type APIStatusResponse struct {
	Version   string        `json:"version"`
	Hostname  string        `json:"hostname,omitempty"`
	Uptime    string        `json:"uptime"`
	Pipeline  pipeline.Info `json:"pipeline"`
	History   *APIHistory   `json:"history,omitempty"`
	Host      HostStats     `json:"host"`
	Timestamp time.Time     `json:"timestamp"`
}

// APIHistory represents stored records counts in status response
type APIHistory struct {
	Analyses  int `json:"analyses"`
	Questions int `json:"questions"`
}

// APIAnalysesResponse is the JSON response for /api/v1/analyses
type APIAnalysesResponse struct {
	Analyses  []pipeline.Analysis `json:"analyses"`
	Questions []pipeline.Question `json:"questions"`
}

// handleAPIAnalyze runs analysis of the uploaded "document" file
func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(r)
	if err != nil {
		status, msg := uploadError(err, s.maxUpload)
		s.writeJSONError(w, status, msg)
		return
	}
	analysis, err := s.analyzer.Analyze(r.Context(), up)
	if err != nil {
		status, msg := uploadError(err, s.maxUpload)
		s.writeJSONError(w, status, msg)
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

// handleAPIAsk answers question sent as JSON body or form value
func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req APIAskRequest
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		req.Question = r.FormValue("question")
	}

	reply, ok := s.analyzer.Ask(r.Context(), req.Question)
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.writeJSON(w, http.StatusOK, APIAskResponse{Question: req.Question, Reply: reply})
}

// handleAPIJobs returns the job table in catalog order
func (s *Server) handleAPIJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.analyzer.Jobs())
}

// handleAPISkills returns the skill vocabulary
func (s *Server) handleAPISkills(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.analyzer.Skills())
}

// handleAPIStatus returns configured components, history counts and host stats
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	resp := APIStatusResponse{
		Version:   s.version,
		Hostname:  s.hostname,
		Uptime:    time.Since(s.startTime).Truncate(time.Second).String(),
		Pipeline:  s.analyzer.Info(),
		Host:      hostStats(r.Context(), s.dataPath),
		Timestamp: time.Now(),
	}
	if s.history != nil {
		analyses, questions, err := s.history.Counts(r.Context())
		if err != nil {
			log.Printf("[WARN] failed to count history records: %v", err)
		} else {
			resp.History = &APIHistory{Analyses: analyses, Questions: questions}
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPIAnalyses returns recent analyses and questions, ?limit=N
func (s *Server) handleAPIAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSONError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			s.writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	analyses, err := s.history.ListAnalyses(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] failed to list analyses: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load analyses")
		return
	}
	questions, err := s.history.ListQuestions(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] failed to list questions: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load questions")
		return
	}
	s.writeJSON(w, http.StatusOK, APIAnalysesResponse{Analyses: analyses, Questions: questions})
}

// handleAPIAnalysis returns stored analysis
func (s *Server) handleAPIAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, ok := s.storedAnalysis(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, analysis)
}

// handleAPIMatchesXLSX returns ranked jobs of stored analysis as excel file
func (s *Server) handleAPIMatchesXLSX(w http.ResponseWriter, r *http.Request) {
	analysis, ok := s.storedAnalysis(w, r)
	if !ok {
		return
	}
	buf, err := MatchesXLSX(analysis)
	if err != nil {
		log.Printf("[ERROR] failed to export analysis %s: %v", analysis.ID, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to export matches")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "matches-"+analysis.ID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write xlsx response: %v", err)
	}
}

// handleAPISchema returns JSON schema of the catalog file
func (s *Server) handleAPISchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, catalog.Schema())
}

// storedAnalysis loads analysis by path id, writes json error if not available
func (s *Server) storedAnalysis(w http.ResponseWriter, r *http.Request) (pipeline.Analysis, bool) {
	if s.history == nil {
		s.writeJSONError(w, http.StatusNotFound, "history is disabled")
		return pipeline.Analysis{}, false
	}
	id := r.PathValue("id")
	analysis, err := s.history.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "analysis not found")
			return pipeline.Analysis{}, false
		}
		log.Printf("[ERROR] failed to get analysis %s: %v", id, err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load analysis")
		return pipeline.Analysis{}, false
	}
	return analysis, true
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}
