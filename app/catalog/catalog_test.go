package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSkills(), c.Skills)
	assert.Len(t, c.Jobs, 6)
	assert.Equal(t, "Construction Helper", c.Jobs[0].Role)
	assert.Equal(t, DefaultFallbackText, c.FallbackText)
	require.Len(t, c.Answers.Rules, 2)
	assert.Equal(t, "document", c.Answers.Rules[0].Keyword)
	assert.Equal(t, "hours", c.Answers.Rules[1].Keyword)
	require.NoError(t, Verify(c))
}

func TestLoad_File(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "catalog.yml")
	content := `
skills:
  - " Welding "
  - driving
jobs:
  - role: Welder
    required_skills: welding metal
    location: Pune
  - role: Driver
    required_skills: driving logistics
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	c, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"welding", "driving"}, c.Skills)
	require.Len(t, c.Jobs, 2)
	assert.Equal(t, "Pune", c.Jobs[0].Location)
	assert.Equal(t, DefaultAnswers(), c.Answers, "answers section missing, defaults applied")
	assert.Equal(t, DefaultFallbackText, c.FallbackText)
}

func TestLoad_CustomRuleKeepsDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "catalog.yml")
	content := `
answers:
  rules:
    - topic: visa
      keyword: visa
      text: Check your visa category.
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	c, err := Load(file)
	require.NoError(t, err)
	require.Len(t, c.Answers.Rules, 3)
	assert.Equal(t, "visa", c.Answers.Rules[0].Keyword, "custom rules evaluated first")
	assert.Equal(t, "document", c.Answers.Rules[1].Keyword)
	assert.Equal(t, DocumentsAnswer, c.Answers.Rules[1].Text)
	assert.Equal(t, "hours", c.Answers.Rules[2].Keyword)
	assert.Equal(t, GenericAnswer, c.Answers.Fallback)
}

func TestMergeRules(t *testing.T) {
	assert.Equal(t, DefaultAnswers().Rules, MergeRules(nil))

	res := MergeRules([]Rule{{Topic: "shifts", Keyword: " HOURS ", Text: "Ask your supervisor."}})
	require.Len(t, res, 2, "redefined default dropped")
	assert.Equal(t, "shifts", res[0].Topic)
	assert.Equal(t, "document", res[1].Keyword)
}

func TestLoad_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(filepath.Join(tmpDir, "missing.yml"))
	require.Error(t, err)

	bad := filepath.Join(tmpDir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("skills: [a, b"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)

	invalid := filepath.Join(tmpDir, "invalid.yml")
	require.NoError(t, os.WriteFile(invalid, []byte("jobs:\n  - role: Welder\n"), 0o600))
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required_skills is required")
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Catalog)
		wantErr string
	}{
		{"valid default", func(*Catalog) {}, ""},
		{"no skills", func(c *Catalog) { c.Skills = nil }, "at least one skill is required"},
		{"empty skill", func(c *Catalog) { c.Skills = []string{"mason", ""} }, "skill 2: empty value"},
		{"duplicate skill", func(c *Catalog) { c.Skills = []string{"mason", "mason"} }, "skill 2: duplicate"},
		{"no jobs", func(c *Catalog) { c.Jobs = nil }, "at least one job is required"},
		{"job without role", func(c *Catalog) { c.Jobs[1].Role = " " }, "job 2: role is required"},
		{"rule without keyword", func(c *Catalog) { c.Answers.Rules[0].Keyword = "" }, "answer rule 1: keyword is required"},
		{"rule without text", func(c *Catalog) { c.Answers.Rules[1].Text = "" }, "answer rule 2 (hours): text is required"},
		{"duplicate keyword", func(c *Catalog) { c.Answers.Rules[1].Keyword = "Document" }, "duplicate keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := Verify(c)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchema(t *testing.T) {
	schema := Schema()
	assert.Equal(t, "Jobbridge Catalog Schema", schema.Title)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.Contains(t, string(data), "required_skills")
	assert.Contains(t, string(data), "fallback_text")
}
