package generatequestions

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"shopwhiz/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultTable []byte

// Table is the per-category rule table of candidate questions.
type Table struct {
	Baseline   string                               `yaml:"baseline"`
	Categories map[string][]models.FollowUpQuestion `yaml:"categories"`
}

// LoadTable reads the table at path, or the embedded table when path is empty.
func LoadTable(path string) (*Table, error) {
	data := defaultTable
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read question table: %w", err)
		}
		data = b
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse question table: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("question table has no categories")
	}
	for name, questions := range t.Categories {
		seen := make(map[string]bool, len(questions))
		for i, q := range questions {
			if strings.TrimSpace(q.Facet) == "" {
				return fmt.Errorf("%s[%d]: facet is required", name, i)
			}
			if seen[q.Facet] {
				return fmt.Errorf("%s: duplicate facet %q", name, q.Facet)
			}
			seen[q.Facet] = true

			switch {
			case q.IsChoice() && len(q.Options) == 0:
				return fmt.Errorf("%s.%s: %s question needs options", name, q.Facet, q.Type)
			case q.Type == models.QuestionRange && (q.Min == nil || q.Max == nil || *q.Min >= *q.Max):
				return fmt.Errorf("%s.%s: range question needs min < max", name, q.Facet)
			case !q.IsChoice() && q.Type != models.QuestionRange:
				return fmt.Errorf("%s.%s: unknown question type %q", name, q.Facet, q.Type)
			}
		}
	}
	return nil
}

// resolveBaseline picks the configured baseline, then the table's own.
func (t *Table) resolveBaseline(configured string) (string, error) {
	for _, c := range []string{configured, t.Baseline} {
		if c == "" {
			continue
		}
		if len(t.Categories[c]) >= 2 {
			return c, nil
		}
	}
	return "", fmt.Errorf("baseline category needs at least two questions")
}
