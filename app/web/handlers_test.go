package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/jobbridge/app/assist"
	"github.com/umputun/jobbridge/app/catalog"
	"github.com/umputun/jobbridge/app/match"
	"github.com/umputun/jobbridge/app/ocr"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/web/enums"
	"github.com/umputun/jobbridge/app/web/mocks"
	"github.com/umputun/jobbridge/app/web/persistence"
)

func testHistory() *mocks.HistoryMock {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &mocks.HistoryMock{
		ListAnalysesFunc: func(context.Context, int) ([]pipeline.Analysis, error) {
			return []pipeline.Analysis{{ID: "a1", CreatedAt: ts, FileName: "passport.png", Skills: []string{"Mason", "Helper"}}}, nil
		},
		ListQuestionsFunc: func(context.Context, int) ([]pipeline.Question, error) {
			return []pipeline.Question{{ID: "q1", CreatedAt: ts, Text: "Can my family join me?",
				Reply: assist.Reply{Topic: assist.TopicGeneric, Text: catalog.GenericAnswer}, Notified: true}}, nil
		},
		GetAnalysisFunc: func(_ context.Context, id string) (pipeline.Analysis, error) {
			switch id {
			case "a1":
				return pipeline.Analysis{ID: "a1", CreatedAt: ts, FileName: "passport.png",
					Extraction: ocr.Result{Text: "stored text about cooking"}, Skills: []string{"Cooking"},
					Ranking: match.Ranking{Jobs: []match.ScoredJob{{Job: catalog.DefaultJobs()[2], Score: 0.8}}, Scored: true}}, nil
			case "broken":
				return pipeline.Analysis{}, errors.New("database is locked")
			}
			return pipeline.Analysis{}, fmt.Errorf("analysis %s: %w", id, persistence.ErrNotFound)
		},
		CountsFunc: func(context.Context) (int, int, error) { return 1, 1, nil },
	}
}

func TestServer_handleDashboard(t *testing.T) {
	t.Run("empty analysis with unscored jobs", func(t *testing.T) {
		srv := newTestServer(t, Config{Hostname: "demo-host", Version: "v1.2.0-abc-20260301"})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "1. Upload ID / certificate")
		assert.Contains(t, body, "Upload a document to see the extracted text.")
		assert.Contains(t, body, "No skills detected.")
		assert.Contains(t, body, "Construction Helper")
		assert.Contains(t, body, "Patient Care Assistant")
		assert.NotContains(t, body, "<th>Score</th>")
		assert.Contains(t, body, "5. Ask the integration assistant")
		assert.Contains(t, body, "demo-host")
		assert.Contains(t, body, "jobbridge v1.2.0")
		assert.Contains(t, body, `data-theme="dark"`)
		assert.NotContains(t, body, "Recent activity", "history disabled")
		assert.NotContains(t, body, "Logout")
	})

	t.Run("no embedder warning", func(t *testing.T) {
		srv := newTestServer(t, Config{Analyzer: newTestPipeline(t, nil, nil)})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), match.WarnNoEmbedder)
	})

	t.Run("with history and light theme", func(t *testing.T) {
		hist := testHistory()
		srv := newTestServer(t, Config{History: hist, HistoryLimit: 7})
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.AddCookie(&http.Cookie{Name: "theme", Value: "light"})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, `data-theme="light"`)
		assert.Contains(t, body, "Recent activity")
		assert.Contains(t, body, "passport.png")
		assert.Contains(t, body, "Mason, Helper")
		assert.Contains(t, body, "Can my family join me?")
		assert.Contains(t, body, "forwarded")
		require.Len(t, hist.ListAnalysesCalls(), 1)
		assert.Equal(t, 7, hist.ListAnalysesCalls()[0].Limit)
	})

	t.Run("history failure does not break dashboard", func(t *testing.T) {
		hist := testHistory()
		hist.ListAnalysesFunc = func(context.Context, int) ([]pipeline.Analysis, error) { return nil, errors.New("locked") }
		srv := newTestServer(t, Config{History: hist})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "No documents analyzed yet.")
	})
}

func TestServer_handleAnalyze(t *testing.T) {
	srv := newTestServer(t, Config{MaxUploadSize: 1024 * 1024})
	handler := srv.routes()

	t.Run("image without ocr engine shows fallback text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "passport.png", pngImage(t, 40, 20)))
		require.Equal(t, http.StatusOK, rec.Code)

		body := rec.Body.String()
		assert.Contains(t, body, "is not available, showing sample text.")
		assert.Contains(t, body, "Sample OCR output:")
		for _, s := range []string{"Mason", "Construction", "Logistics", "Helper"} {
			assert.Contains(t, body, `<li class="skill">`+s+`</li>`)
		}
		assert.Contains(t, body, "<th>Score</th>")
		assert.Contains(t, body, "passport.png")
		assert.Contains(t, body, "40x20")
		assert.Less(t, strings.Index(body, "Construction Helper"), strings.Index(body, "Electrician Trainee"),
			"best match first")
		assert.NotContains(t, body, "matches.xlsx", "no export without history")
		assert.Empty(t, rec.Header().Get("HX-Trigger"))
	})

	t.Run("text document", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "cv.txt", []byte("Cooking and packing experience")))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Cooking and packing experience")
		assert.Contains(t, body, `<li class="skill">Packing</li>`)
		assert.Contains(t, body, `<li class="skill">Cooking</li>`)
		assert.NotContains(t, body, "alert-warning")
	})

	t.Run("no file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Upload a document to see the extracted text.")
		assert.Contains(t, rec.Body.String(), "No skills detected.")
	})

	t.Run("unsupported file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "anim.gif", []byte("GIF89a....")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unsupported file type")
		assert.Contains(t, rec.Body.String(), `id="upload-error"`)
	})

	t.Run("empty file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "empty.png", []byte{}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Uploaded file is empty.")
	})

	t.Run("too large file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/analyze", "big.txt", make([]byte, 1024*1024+10)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "File is too large, the limit is 1 MB.")
	})

	t.Run("history triggers refresh and export link", func(t *testing.T) {
		histSrv := newTestServer(t, Config{History: testHistory()})
		rec := httptest.NewRecorder()
		histSrv.routes().ServeHTTP(rec, uploadRequest(t, "/api/analyze", "cv.txt", []byte("warehouse")))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "history-updated", rec.Header().Get("HX-Trigger"))
		assert.Contains(t, rec.Body.String(), "/matches.xlsx")
	})
}

func TestServer_handleAsk(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{name: "documents", question: "What DOCUMENTS do I need?", want: catalog.DocumentsAnswer},
		{name: "hours", question: "how many hours is a shift", want: "Typical shifts in construction"},
		{name: "generic", question: "Can my family join me?", want: catalog.GenericAnswer},
		{name: "blank", question: "   ", want: "Please type a question."},
	}

	srv := newTestServer(t, Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("question="+strings.ReplaceAll(tt.question, " ", "+")))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			srv.routes().ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")
		})
	}

	t.Run("history triggers refresh", func(t *testing.T) {
		histSrv := newTestServer(t, Config{History: testHistory()})
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("question=hello"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		histSrv.routes().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "history-updated", rec.Header().Get("HX-Trigger"))
	})
}

func TestServer_handleHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, Config{})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "History is disabled.")
	})

	t.Run("enabled", func(t *testing.T) {
		srv := newTestServer(t, Config{History: testHistory()})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `hx-get="/api/analyses/a1"`)
		assert.Contains(t, body, "passport.png")
		assert.Contains(t, body, "Can my family join me?")
		assert.NotContains(t, body, "<html", "partial only")
	})
}

func TestServer_handleAnalysis(t *testing.T) {
	srv := newTestServer(t, Config{History: testHistory()})
	handler := srv.routes()

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/a1", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "stored text about cooking")
		assert.Contains(t, body, "Kitchen Staff")
		assert.Contains(t, body, "0.800")
		assert.Contains(t, body, "/api/v1/analyses/a1/matches.xlsx")
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/nope", http.NoBody))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/broken", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("history disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestServer(t, Config{}).routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/a1", http.NoBody))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_handleThemeToggle(t *testing.T) {
	srv := newTestServer(t, Config{})

	tests := []struct {
		name    string
		current string
		want    enums.Theme
	}{
		{name: "default dark to light", current: "", want: enums.ThemeLight},
		{name: "light to dark", current: "light", want: enums.ThemeDark},
		{name: "dark to light", current: "dark", want: enums.ThemeLight},
		{name: "invalid cookie treated as dark", current: "purple", want: enums.ThemeLight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/theme", http.NoBody)
			if tt.current != "" {
				req.AddCookie(&http.Cookie{Name: "theme", Value: tt.current})
			}
			rec := httptest.NewRecorder()
			srv.routes().ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "true", rec.Header().Get("HX-Refresh"))

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, "theme", cookies[0].Name)
			assert.Equal(t, tt.want.String(), cookies[0].Value)
			assert.Equal(t, "/", cookies[0].Path)
		})
	}
}

func TestServer_CSRFProtection(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.routes()

	t.Run("same origin post allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/theme", http.NoBody)
		req.Header.Set("Sec-Fetch-Site", "same-origin")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cross site post blocked", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("question=hi"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mismatched origin blocked", func(t *testing.T) {
		req := uploadRequest(t, "/api/analyze", "cv.txt", []byte("mason"))
		req.Host = "localhost:8080"
		req.Header.Set("Origin", "https://evil.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("get allowed cross origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/history", http.NoBody)
		req.Header.Set("Origin", "https://evil.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUploadError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("x: %w", ocr.ErrUnsupported), http.StatusUnsupportedMediaType, "Unsupported file type"},
		{ocr.ErrEmptyUpload, http.StatusBadRequest, "Uploaded file is empty."},
		{errUploadTooLarge, http.StatusRequestEntityTooLarge, "the limit is 2 MB"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "took too long"},
		{errors.New("boom"), http.StatusBadRequest, "Could not process the upload."},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := uploadError(tt.err, 2*1024*1024)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, msg, tt.msg)
		})
	}
}
