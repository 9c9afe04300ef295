// Package catalog provides the read-only demo data: skill vocabulary, job table, canned answers
// and the OCR fallback text. Everything has built-in defaults and can be overridden from a YAML file.
package catalog

import (
	"fmt"
	"os"
	"strings"

	log "github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

// Catalog is the full set of demo data used by the pipeline
type Catalog struct {
	Skills       []string `yaml:"skills" json:"skills,omitempty" jsonschema:"description=skill vocabulary matched as case-insensitive substrings"`
	Jobs         []Job    `yaml:"jobs" json:"jobs,omitempty" jsonschema:"description=job table ranked against detected skills"`
	Answers      Answers  `yaml:"answers" json:"answers,omitempty" jsonschema:"description=canned question-answering rules"`
	FallbackText string   `yaml:"fallback_text" json:"fallback_text,omitempty" jsonschema:"description=text substituted when OCR is unavailable or fails"`
}

// Job is a single row of the job table
type Job struct {
	Role           string `yaml:"role" json:"role" jsonschema:"required,description=job title"`
	RequiredSkills string `yaml:"required_skills" json:"required_skills" jsonschema:"required,description=space separated skills embedded for matching"`
	Employer       string `yaml:"employer,omitempty" json:"employer,omitempty"`
	Location       string `yaml:"location,omitempty" json:"location,omitempty"`
}

// Answers defines keyword rules and the generic fallback response
type Answers struct {
	Rules    []Rule `yaml:"rules" json:"rules,omitempty"`
	Fallback string `yaml:"fallback" json:"fallback,omitempty"`
}

// Rule maps a keyword found in a question to a canned response
type Rule struct {
	Topic   string `yaml:"topic" json:"topic" jsonschema:"required"`
	Keyword string `yaml:"keyword" json:"keyword" jsonschema:"required,description=case-insensitive substring of the question"`
	Text    string `yaml:"text" json:"text" jsonschema:"required"`
}

// default demo content
const (
	DefaultFallbackText = "Sample OCR output:\n" +
		"Refugee has 3 years experience as a construction helper and mason. " +
		"Worked on building sites, basic logistics and loading tasks."

	DocumentsAnswer = "In India, ensure your FRRO registration is updated. " +
		"Employers may require ID and skill proof."

	HoursAnswer = "Typical shifts in construction, logistics and kitchen work are 8 to 9 hours, six days a week. " +
		"Overtime should be paid extra, confirm shift length and weekly off with the employer before joining."

	GenericAnswer = "This is a demo assistant. In a full system an LLM would provide cultural, legal " +
		"and workplace guidance for your question."
)

// DefaultSkills returns the built-in skill vocabulary
func DefaultSkills() []string {
	return []string{
		"mason", "construction", "plumbing", "carpentry",
		"logistics", "packing", "warehouse", "cooking",
		"helper", "electrician", "nursing", "patient care",
	}
}

// DefaultJobs returns the built-in job table
func DefaultJobs() []Job {
	return []Job{
		{Role: "Construction Helper", RequiredSkills: "mason helper construction"},
		{Role: "Logistics Assistant", RequiredSkills: "logistics packing warehouse"},
		{Role: "Kitchen Staff", RequiredSkills: "cooking kitchen helper"},
		{Role: "Electrician Trainee", RequiredSkills: "electrician wiring"},
		{Role: "Carpentry & Plumbing Assistant", RequiredSkills: "plumbing carpentry repair"},
		{Role: "Patient Care Assistant", RequiredSkills: "nursing patient care"},
	}
}

// DefaultAnswers returns the built-in question rules, evaluated in order
func DefaultAnswers() Answers {
	return Answers{
		Rules: []Rule{
			{Topic: "documents", Keyword: "document", Text: DocumentsAnswer},
			{Topic: "hours", Keyword: "hours", Text: HoursAnswer},
		},
		Fallback: GenericAnswer,
	}
}

// MergeRules returns custom rules followed by the default rules whose keyword is not redefined.
// Custom rules are evaluated first.
func MergeRules(custom []Rule) []Rule {
	res := make([]Rule, 0, len(custom)+2)
	redefined := map[string]bool{}
	for _, r := range custom {
		res = append(res, r)
		redefined[strings.ToLower(strings.TrimSpace(r.Keyword))] = true
	}
	for _, r := range DefaultAnswers().Rules {
		if !redefined[r.Keyword] {
			res = append(res, r)
		}
	}
	return res
}

// Default returns catalog with built-in content only
func Default() *Catalog {
	return &Catalog{
		Skills:       DefaultSkills(),
		Jobs:         DefaultJobs(),
		Answers:      DefaultAnswers(),
		FallbackText: DefaultFallbackText,
	}
}

// Load reads catalog from a YAML file. Empty path returns the default catalog.
// Sections missing in the file are filled with defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	res := &Catalog{}
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	res.applyDefaults()

	if err := Verify(res); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}

	log.Printf("[INFO] catalog loaded from %s: %d skills, %d jobs, %d answer rules",
		path, len(res.Skills), len(res.Jobs), len(res.Answers.Rules))
	return res, nil
}

func (c *Catalog) applyDefaults() {
	if len(c.Skills) == 0 {
		c.Skills = DefaultSkills()
	}
	for i, s := range c.Skills {
		c.Skills[i] = strings.ToLower(strings.TrimSpace(s))
	}
	if len(c.Jobs) == 0 {
		c.Jobs = DefaultJobs()
	}
	defAnswers := DefaultAnswers()
	c.Answers.Rules = MergeRules(c.Answers.Rules)
	if strings.TrimSpace(c.Answers.Fallback) == "" {
		c.Answers.Fallback = defAnswers.Fallback
	}
	if strings.TrimSpace(c.FallbackText) == "" {
		c.FallbackText = DefaultFallbackText
	}
}
