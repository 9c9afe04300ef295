package match

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"

	"github.com/umputun/jobbridge/app/catalog"
)

// WarnNoEmbedder is shown instead of the score column when no embedder is configured
const WarnNoEmbedder = "Sentence embedding model is not available, job matching scores are disabled."

// Repeater retries a function, implemented by go-pkgz/repeater
type Repeater interface {
	Do(ctx context.Context, fun func() error, errs ...error) error
}

// ScoredJob is a job row with appended similarity score
type ScoredJob struct {
	catalog.Job
	Score float64 `json:"score"`
}

// Ranking is the result of ranking the job table
type Ranking struct {
	Jobs     []ScoredJob `json:"jobs"`
	Scored   bool        `json:"scored"` // score column present, jobs sorted by score
	Profile  string      `json:"profile,omitempty"`
	Embedder string      `json:"embedder,omitempty"`
	Warning  string      `json:"warning,omitempty"`
}

// RankerParams defines ranker dependencies
type RankerParams struct {
	Jobs        []catalog.Job
	Embedder    Embedder      // nil if embeddings unavailable
	Repeater    Repeater      // optional, retries embedding calls
	CacheTTL    time.Duration // embeddings cache ttl, 0 disables cache
	Concurrency int           // max parallel embedding calls, default 4
}

// Ranker scores the read-only job table against a skill profile
type Ranker struct {
	jobs        []catalog.Job
	embedder    Embedder
	repeater    Repeater
	cache       cache.Cache[string, []float64]
	concurrency int
}

// NewRanker makes ranker for the job table
func NewRanker(p RankerParams) *Ranker {
	res := &Ranker{
		jobs:        make([]catalog.Job, len(p.Jobs)),
		embedder:    p.Embedder,
		repeater:    p.Repeater,
		concurrency: p.Concurrency,
	}
	copy(res.jobs, p.Jobs)
	if res.concurrency <= 0 {
		res.concurrency = 4
	}
	if p.CacheTTL > 0 {
		res.cache = cache.NewCache[string, []float64]().WithTTL(p.CacheTTL).WithMaxKeys(1000)
	}
	return res
}

// Jobs returns a copy of the job table
func (r *Ranker) Jobs() []catalog.Job {
	res := make([]catalog.Job, len(r.jobs))
	copy(res, r.jobs)
	return res
}

// Available tells if the embedder is configured
func (r *Ranker) Available() bool { return r.embedder != nil }

// EmbedderName returns embedder name or "none"
func (r *Ranker) EmbedderName() string {
	if r.embedder == nil {
		return "none"
	}
	return r.embedder.Name()
}

// Rank scores jobs against skills joined into a single profile string. Without embedder or
// without skills the table is returned unscored, in original order. Embedding failures
// degrade to the unscored table with a warning.
func (r *Ranker) Rank(ctx context.Context, skills []string) Ranking {
	res := Ranking{Jobs: r.unscored()}
	if r.embedder == nil {
		res.Warning = WarnNoEmbedder
		return res
	}
	res.Embedder = r.embedder.Name()
	if len(skills) == 0 {
		return res
	}

	res.Profile = strings.Join(skills, " ")
	scores, err := r.scores(ctx, res.Profile)
	if err != nil {
		log.Printf("[WARN] failed to score jobs for %q: %v", res.Profile, err)
		res.Warning = "Job matching is temporarily unavailable, showing jobs without scores."
		return res
	}

	for i := range res.Jobs {
		res.Jobs[i].Score = scores[i]
	}
	sort.SliceStable(res.Jobs, func(i, j int) bool { return res.Jobs[i].Score > res.Jobs[j].Score })
	res.Scored = true
	return res
}

func (r *Ranker) unscored() []ScoredJob {
	res := make([]ScoredJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		res = append(res, ScoredJob{Job: j})
	}
	return res
}

// scores computes similarity of profile to each job, in job table order
func (r *Ranker) scores(ctx context.Context, profile string) ([]float64, error) {
	profileVec, err := r.embed(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}

	res := make([]float64, len(r.jobs))
	grp := syncs.NewErrSizedGroup(r.concurrency, syncs.Context(ctx), syncs.Preemptive)
	for i, job := range r.jobs {
		grp.Go(func() error {
			jobVec, err := r.embed(ctx, job.RequiredSkills)
			if err != nil {
				return fmt.Errorf("embed job %q: %w", job.Role, err)
			}
			score, err := Cosine(profileVec, jobVec)
			if err != nil {
				return fmt.Errorf("score job %q: %w", job.Role, err)
			}
			res[i] = score
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// embed returns cached vector or calls embedder, with retries if repeater set
func (r *Ranker) embed(ctx context.Context, text string) ([]float64, error) {
	key := r.embedder.Name() + "\x00" + text
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v, nil
		}
	}

	var vec []float64
	call := func() error {
		v, err := r.embedder.Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	}

	var err error
	if r.repeater != nil {
		err = r.repeater.Do(ctx, call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(key, vec, 0)
	}
	return vec, nil
}
