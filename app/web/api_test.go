package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/umputun/jobbridge/app/catalog"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/web/enums"
)

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var res T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func TestServer_handleAPIAnalyze(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.routes()

	t.Run("image fallback", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/v1/analyze", "id.png", pngImage(t, 10, 10)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		res := decodeJSON[pipeline.Analysis](t, rec)
		assert.NotEmpty(t, res.ID)
		assert.Equal(t, "id.png", res.FileName)
		assert.Equal(t, enums.TextSourceFallback, res.Extraction.Source)
		assert.Equal(t, catalog.DefaultFallbackText, res.Extraction.Text)
		assert.Equal(t, []string{"Mason", "Construction", "Logistics", "Helper"}, res.Skills)
		require.True(t, res.Ranking.Scored)
		require.Len(t, res.Ranking.Jobs, 6)
		for i := 1; i < len(res.Ranking.Jobs); i++ {
			assert.GreaterOrEqual(t, res.Ranking.Jobs[i-1].Score, res.Ranking.Jobs[i].Score, "sorted by score")
		}
		for _, j := range res.Ranking.Jobs {
			assert.True(t, j.Score >= -1 && j.Score <= 1, "score %v in range", j.Score)
		}
	})

	t.Run("no file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/analyze", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeJSON[pipeline.Analysis](t, rec)
		assert.Empty(t, res.Extraction.Text)
		assert.Empty(t, res.Skills)
		assert.False(t, res.Ranking.Scored)
	})

	t.Run("unsupported", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, uploadRequest(t, "/api/v1/analyze", "a.gif", []byte("GIF89a")))
		require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		res := decodeJSON[map[string]string](t, rec)
		assert.Contains(t, res["error"], "Unsupported file type")
	})

	t.Run("broken multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("--xyz\r\ngarbage"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_AnalyzeRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{AnalyzeRate: 1})
	handler := srv.routes()

	codes := []int{}
	for range 3 {
		req := uploadRequest(t, "/api/v1/analyze", "cv.txt", []byte("mason"))
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)

	// other client is not affected
	req := uploadRequest(t, "/api/v1/analyze", "cv.txt", []byte("mason"))
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_handleAPIAsk(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.routes()

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question": "which documents?"}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeJSON[APIAskResponse](t, rec)
		assert.Equal(t, "which documents?", res.Question)
		assert.Equal(t, "documents", res.Topic)
		assert.Equal(t, catalog.DocumentsAnswer, res.Text)
	})

	t.Run("form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("question=weather"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeJSON[APIAskResponse](t, rec)
		assert.Equal(t, "generic", res.Topic)
		assert.Equal(t, catalog.GenericAnswer, res.Text)
	})

	t.Run("blank", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question": " "}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(`{"question":`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid json body", decodeJSON[map[string]string](t, rec)["error"])
	})
}

func TestServer_handleAPICatalog(t *testing.T) {
	srv := newTestServer(t, Config{})
	handler := srv.routes()

	t.Run("jobs", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, catalog.DefaultJobs(), decodeJSON[[]catalog.Job](t, rec))
	})

	t.Run("skills", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/skills", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, catalog.DefaultSkills(), decodeJSON[[]string](t, rec))
	})

	t.Run("schema", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/schema", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeJSON[map[string]any](t, rec)
		assert.Equal(t, "Jobbridge Catalog Schema", res["title"])
		assert.Contains(t, rec.Body.String(), "required_skills")
	})
}

func TestServer_handleAPIStatus(t *testing.T) {
	t.Run("with history", func(t *testing.T) {
		srv := newTestServer(t, Config{History: testHistory(), Hostname: "demo", DataPath: t.TempDir()})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)

		res := decodeJSON[APIStatusResponse](t, rec)
		assert.Equal(t, "test", res.Version)
		assert.Equal(t, "demo", res.Hostname)
		assert.Equal(t, pipeline.Info{OCREngine: "none", Embedder: "local", EmbedderAvailable: true, Skills: 12, Jobs: 6},
			res.Pipeline)
		require.NotNil(t, res.History)
		assert.Equal(t, APIHistory{Analyses: 1, Questions: 1}, *res.History)
		assert.Equal(t, srv.dataPath, res.Host.DiskPath)
		assert.False(t, res.Timestamp.IsZero())
	})

	t.Run("history count failure", func(t *testing.T) {
		hist := testHistory()
		hist.CountsFunc = func(context.Context) (int, int, error) { return 0, 0, errors.New("locked") }
		srv := newTestServer(t, Config{History: hist})
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decodeJSON[APIStatusResponse](t, rec).History)
	})
}

func TestServer_handleAPIAnalyses(t *testing.T) {
	hist := testHistory()
	srv := newTestServer(t, Config{History: hist})
	handler := srv.routes()

	t.Run("default limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		res := decodeJSON[APIAnalysesResponse](t, rec)
		require.Len(t, res.Analyses, 1)
		assert.Equal(t, "a1", res.Analyses[0].ID)
		require.Len(t, res.Questions, 1)
		assert.Equal(t, defaultHistoryLimit, hist.ListAnalysesCalls()[0].Limit)
	})

	t.Run("custom limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=3", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
		calls := hist.ListAnalysesCalls()
		assert.Equal(t, 3, calls[len(calls)-1].Limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, v := range []string{"abc", "0", "-1", "5000"} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit="+v, http.NoBody))
			assert.Equal(t, http.StatusBadRequest, rec.Code, v)
		}
	})

	t.Run("store error", func(t *testing.T) {
		broken := testHistory()
		broken.ListQuestionsFunc = func(context.Context, int) ([]pipeline.Question, error) { return nil, errors.New("locked") }
		rec := httptest.NewRecorder()
		newTestServer(t, Config{History: broken}).routes().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/v1/analyses", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("history disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestServer(t, Config{}).routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", http.NoBody))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "history is disabled", decodeJSON[map[string]string](t, rec)["error"])
	})
}

func TestServer_handleAPIAnalysis(t *testing.T) {
	srv := newTestServer(t, Config{History: testHistory()})
	handler := srv.routes()

	tests := []struct {
		id     string
		status int
	}{
		{"a1", http.StatusOK},
		{"nope", http.StatusNotFound},
		{"broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+tt.id, http.NoBody))
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				res := decodeJSON[pipeline.Analysis](t, rec)
				assert.Equal(t, []string{"Cooking"}, res.Skills)
			}
		})
	}
}

func TestServer_handleAPIMatchesXLSX(t *testing.T) {
	srv := newTestServer(t, Config{History: testHistory()})
	handler := srv.routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/a1/matches.xlsx", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="matches-a1.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	role, err := f.GetCellValue(matchesSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen Staff", role)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/nope/matches.xlsx", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
