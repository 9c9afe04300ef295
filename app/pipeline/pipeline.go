// Package pipeline wires document text extraction, skill detection, job ranking and the
// scripted assistant into the two user operations: analyze a document and ask a question.
// History storage, upload archive and caseworker notifications are optional.
package pipeline

import (
	"context"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/jobbridge/app/assist"
	"github.com/umputun/jobbridge/app/catalog"
	"github.com/umputun/jobbridge/app/match"
	"github.com/umputun/jobbridge/app/notify"
	"github.com/umputun/jobbridge/app/ocr"
	"github.com/umputun/jobbridge/app/skills"
)

//go:generate moq -out mocks/archiver.go -pkg mocks -skip-ensure -fmt goimports . Archiver
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier

// Store persists analyses and questions
type Store interface {
	SaveAnalysis(ctx context.Context, a Analysis) error
	SaveQuestion(ctx context.Context, q Question) error
}

// Archiver keeps original uploads, returns storage key
type Archiver interface {
	Save(ctx context.Context, id, name, contentType string, ts time.Time, data []byte) (string, error)
}

// Notifier forwards unanswered questions to caseworkers
type Notifier interface {
	NotifyQuestion(ctx context.Context, q notify.Question) error
}

// Analysis is the outcome of a single document upload
type Analysis struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	FileName   string        `json:"file_name,omitempty"`
	Extraction ocr.Result    `json:"extraction"`
	Skills     []string      `json:"skills"`
	Ranking    match.Ranking `json:"ranking"`
	ArchiveKey string        `json:"archive_key,omitempty"`
}

// Question is an answered question
type Question struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Text      string       `json:"text"`
	Reply     assist.Reply `json:"reply"`
	Notified  bool         `json:"notified"`
}

// Params defines pipeline components, Store, Archiver and Notifier are optional
type Params struct {
	OCR           *ocr.Service
	Detector      *skills.Detector
	Ranker        *match.Ranker
	Responder     *assist.Responder
	Store         Store
	Archiver      Archiver
	Notifier      Notifier
	NotifyTimeout time.Duration
}

// Pipeline runs user operations
type Pipeline struct {
	Params
}

// Info describes configured components
type Info struct {
	OCREngine         string `json:"ocr_engine"`
	OCRAvailable      bool   `json:"ocr_available"`
	Embedder          string `json:"embedder"`
	EmbedderAvailable bool   `json:"embedder_available"`
	Skills            int    `json:"skills"`
	Jobs              int    `json:"jobs"`
	History           bool   `json:"history"`
	Archive           bool   `json:"archive"`
	Notify            bool   `json:"notify"`
}

// New makes pipeline
func New(p Params) *Pipeline {
	if p.NotifyTimeout <= 0 {
		p.NotifyTimeout = 10 * time.Second
	}
	return &Pipeline{Params: p}
}

// Analyze extracts text from the upload, detects skills and ranks jobs. Nil upload gives an empty
// analysis with the unscored job table. Archive and store failures are logged, not returned.
func (p *Pipeline) Analyze(ctx context.Context, up *ocr.Upload) (Analysis, error) {
	st := time.Now()
	extraction, err := p.OCR.Extract(ctx, up)
	if err != nil {
		return Analysis{}, err
	}

	detected := p.Detector.Detect(extraction.Text)
	res := Analysis{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Extraction: extraction,
		Skills:     detected,
		Ranking:    p.Ranker.Rank(ctx, detected),
	}
	if up == nil {
		return res, nil
	}
	res.FileName = up.Name

	if p.Archiver != nil {
		key, err := p.Archiver.Save(ctx, res.ID, up.Name, extraction.MIME, res.CreatedAt, up.Data)
		if err != nil {
			log.Printf("[WARN] failed to archive %q: %v", up.Name, err)
		}
		res.ArchiveKey = key
	}

	if p.Store != nil {
		if err := p.Store.SaveAnalysis(ctx, res); err != nil {
			log.Printf("[WARN] failed to save analysis %s: %v", res.ID, err)
		}
	}
	log.Printf("[INFO] analyzed %q (%s, %s), skills: %v, scored: %v, in %v", up.Name, extraction.MIME,
		extraction.Source, detected, res.Ranking.Scored, time.Since(st))
	return res, nil
}

// Ask answers the question. Generic replies are forwarded to caseworkers if notifier set.
// Blank question gives no reply.
func (p *Pipeline) Ask(ctx context.Context, question string) (assist.Reply, bool) {
	reply, ok := p.Responder.Answer(question)
	if !ok {
		return reply, false
	}

	rec := Question{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), Text: strings.TrimSpace(question), Reply: reply}
	if reply.Generic() && p.Notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, p.NotifyTimeout)
		err := p.Notifier.NotifyQuestion(nctx, notify.Question{ID: rec.ID, Question: rec.Text, Reply: reply.Text, TS: rec.CreatedAt})
		cancel()
		if err != nil {
			log.Printf("[WARN] failed to notify about question %s: %v", rec.ID, err)
		}
		rec.Notified = err == nil
	}

	if p.Store != nil {
		if err := p.Store.SaveQuestion(ctx, rec); err != nil {
			log.Printf("[WARN] failed to save question %s: %v", rec.ID, err)
		}
	}
	log.Printf("[DEBUG] question %q answered with %s reply", rec.Text, reply.Topic)
	return reply, true
}

// Info returns configured components
func (p *Pipeline) Info() Info {
	return Info{
		OCREngine:         p.OCR.EngineName(),
		OCRAvailable:      p.OCR.EngineAvailable(),
		Embedder:          p.Ranker.EmbedderName(),
		EmbedderAvailable: p.Ranker.Available(),
		Skills:            len(p.Detector.Vocabulary()),
		Jobs:              len(p.Ranker.Jobs()),
		History:           p.Store != nil,
		Archive:           p.Archiver != nil,
		Notify:            p.Notifier != nil,
	}
}

// Jobs returns the job table in catalog order
func (p *Pipeline) Jobs() []catalog.Job { return p.Ranker.Jobs() }

// Skills returns the skill vocabulary
func (p *Pipeline) Skills() []string { return p.Detector.Vocabulary() }
