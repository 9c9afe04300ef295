package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobbridge/app/ocr"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/web/enums"
	"github.com/umputun/jobbridge/app/web/persistence"
)

var errUploadTooLarge = errors.New("upload too large")

// handleDashboard renders the main page. Without upload sections 2 and 3 show the empty
// analysis with the job table in catalog order.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.analyzer.Analyze(r.Context(), nil)
	if err != nil {
		log.Printf("[ERROR] failed to make empty analysis: %v", err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	data := s.newTemplateData(r)
	data.Info = s.analyzer.Info()
	data.Skills = s.analyzer.Skills()
	data.Analysis = &analysis
	data.Analyses, data.Questions = s.recent(r.Context())
	s.render(w, "base.html", "base", data)
}

// handleAnalyze processes uploaded document and renders analysis partial.
// Errors are rendered as an alert with 200 status, htmx swaps only successful responses.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data := s.newTemplateData(r)
	up, err := s.readUpload(r)
	if err != nil {
		_, data.Error = uploadError(err, s.maxUpload)
		s.render(w, "partials", "alert", data)
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), up)
	if err != nil {
		_, data.Error = uploadError(err, s.maxUpload)
		s.render(w, "partials", "alert", data)
		return
	}

	if up != nil && s.history != nil {
		w.Header().Set("HX-Trigger", "history-updated")
	}
	data.Analysis = &analysis
	s.render(w, "partials", "analysis", data)
}

// handleAsk answers the question from the form
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	data := s.newTemplateData(r)
	data.Question = r.FormValue("question")
	reply, ok := s.analyzer.Ask(r.Context(), data.Question)
	if !ok {
		data.Error = "Please type a question."
		s.render(w, "partials", "answer", data)
		return
	}
	if s.history != nil {
		w.Header().Set("HX-Trigger", "history-updated")
	}
	data.Reply = &reply
	s.render(w, "partials", "answer", data)
}

// handleHistory renders recent analyses and questions
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	data := s.newTemplateData(r)
	data.Analyses, data.Questions = s.recent(r.Context())
	s.render(w, "partials", "history", data)
}

// handleAnalysis renders stored analysis
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}
	id := r.PathValue("id")
	analysis, err := s.history.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			http.Error(w, "Analysis not found", http.StatusNotFound)
			return
		}
		log.Printf("[ERROR] failed to load analysis %s: %v", id, err)
		http.Error(w, "Failed to load analysis", http.StatusInternalServerError)
		return
	}

	data := s.newTemplateData(r)
	data.Analysis = &analysis
	s.render(w, "partials", "analysis", data)
}

// handleThemeToggle switches between light and dark themes
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	nextTheme := enums.ThemeLight
	if s.getTheme(r) == enums.ThemeLight {
		nextTheme = enums.ThemeDark
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "theme",
		Value:    nextTheme.String(),
		Path:     s.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// trigger full page refresh for theme change
	w.Header().Set("HX-Refresh", "true")
	w.WriteHeader(http.StatusOK)
}

// recent returns recent analyses and questions, empty if history disabled or failed
func (s *Server) recent(ctx context.Context) ([]pipeline.Analysis, []pipeline.Question) {
	if s.history == nil {
		return nil, nil
	}
	analyses, err := s.history.ListAnalyses(ctx, s.historyLimit)
	if err != nil {
		log.Printf("[WARN] failed to list analyses: %v", err)
	}
	questions, err := s.history.ListQuestions(ctx, s.historyLimit)
	if err != nil {
		log.Printf("[WARN] failed to list questions: %v", err)
	}
	return analyses, questions
}

// readUpload reads the "document" file from multipart form. Missing file or non-multipart
// request gives nil upload.
func (s *Server) readUpload(r *http.Request) (*ocr.Upload, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid upload form: %w", err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Printf("[WARN] failed to remove multipart files: %v", err)
		}
	}()

	file, hdr, err := r.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, errUploadTooLarge
	}
	return &ocr.Upload{Name: filepath.Base(hdr.Filename), ContentType: hdr.Header.Get("Content-Type"), Data: data}, nil
}

// uploadError maps upload and analysis errors to http status and user-facing message
func uploadError(err error, maxUpload int64) (status int, msg string) {
	switch {
	case errors.Is(err, ocr.ErrUnsupported):
		return http.StatusUnsupportedMediaType, "Unsupported file type, upload a PNG or JPEG image, a PDF, DOCX or text document."
	case errors.Is(err, ocr.ErrEmptyUpload):
		return http.StatusBadRequest, "Uploaded file is empty."
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("File is too large, the limit is %d MB.", maxUpload/(1024*1024))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Processing took too long, please try again."
	}
	log.Printf("[WARN] upload failed: %v", err)
	return http.StatusBadRequest, "Could not process the upload."
}
