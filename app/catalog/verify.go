package catalog

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Verify checks the catalog for empty or duplicated entries
func Verify(c *Catalog) error {
	if len(c.Skills) == 0 {
		return fmt.Errorf("at least one skill is required")
	}
	seen := map[string]bool{}
	for i, s := range c.Skills {
		if s == "" {
			return fmt.Errorf("skill %d: empty value", i+1)
		}
		if seen[s] {
			return fmt.Errorf("skill %d: duplicate %q", i+1, s)
		}
		seen[s] = true
	}

	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job is required")
	}
	for i, j := range c.Jobs {
		if strings.TrimSpace(j.Role) == "" {
			return fmt.Errorf("job %d: role is required", i+1)
		}
		if strings.TrimSpace(j.RequiredSkills) == "" {
			return fmt.Errorf("job %d (%s): required_skills is required", i+1, j.Role)
		}
	}

	keywords := map[string]bool{}
	for i, r := range c.Answers.Rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			return fmt.Errorf("answer rule %d: keyword is required", i+1)
		}
		if strings.TrimSpace(r.Text) == "" {
			return fmt.Errorf("answer rule %d (%s): text is required", i+1, kw)
		}
		if keywords[kw] {
			return fmt.Errorf("answer rule %d: duplicate keyword %q", i+1, kw)
		}
		keywords[kw] = true
	}
	return nil
}

// Schema generates a JSON schema for the catalog file
func Schema() *jsonschema.Schema {
	schema := jsonschema.Reflect(&Catalog{})
	schema.Title = "Jobbridge Catalog Schema"
	schema.Description = "Schema for jobbridge YAML catalog with skills, jobs and canned answers"
	schema.Version = "1.0.0"
	return schema
}
