package conversation

import (
	"errors"
	"fmt"
	"strings"

	"shopwhiz/internal/models"
)

var (
	errMissingFacet = errors.New("facet is required")
	errMissingValue = errors.New("value is required")
)

// normalizeAnswer checks value against the question and returns the form
// stored in AnsweredQuestions: a string, a []string or a models.RangeAnswer.
func normalizeAnswer(q models.FollowUpQuestion, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, errMissingValue
	}

	switch q.Type {
	case models.QuestionRange:
		r, ok := asRange(value)
		if !ok {
			return nil, fmt.Errorf("facet %s expects a {min, max} range", q.Facet)
		}
		if r.Min > r.Max {
			return nil, fmt.Errorf("facet %s range min %v exceeds max %v", q.Facet, r.Min, r.Max)
		}
		return r, nil

	case models.QuestionMultiChoice:
		items, err := stringList(value)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(items))
		seen := make(map[string]bool)
		for _, item := range items {
			option, ok := matchOption(q.Options, item)
			if !ok {
				return nil, fmt.Errorf("%q is not an option for %s", item, q.Facet)
			}
			if !seen[option] {
				seen[option] = true
				out = append(out, option)
			}
		}
		if len(out) == 0 {
			return nil, errMissingValue
		}
		return out, nil

	default:
		s, ok := value.(string)
		if !ok {
			if v, isNum := toFloat(value); isNum && len(q.Options) == 0 {
				return formatNumber(v), nil
			}
			return nil, fmt.Errorf("facet %s expects a single value", q.Facet)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, errMissingValue
		}
		if len(q.Options) == 0 {
			return s, nil
		}
		option, ok := matchOption(q.Options, s)
		if !ok {
			return nil, fmt.Errorf("%q is not an option for %s", s, q.Facet)
		}
		return option, nil
	}
}

// stringList accepts a JSON array or a comma-joined string.
func stringList(value interface{}) ([]string, error) {
	var raw []string
	switch v := value.(type) {
	case []string:
		raw = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("list answers must contain strings")
			}
			raw = append(raw, s)
		}
	case string:
		raw = strings.Split(v, ",")
	default:
		return nil, errors.New("expected a list of options")
	}

	out := raw[:0:0]
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// matchOption returns the canonical option for a case-insensitive match.
func matchOption(options []string, value string) (string, bool) {
	if len(options) == 0 {
		return value, true
	}
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return o, true
		}
	}
	return "", false
}

// describeAnswer renders an answer for the message log.
func describeAnswer(facet string, value interface{}) string {
	if r, ok := asRange(value); ok {
		if strings.HasPrefix(strings.ToLower(facet), "price") {
			return formatRupees(r.Min) + " - " + formatRupees(r.Max)
		}
		return formatNumber(r.Min) + " - " + formatNumber(r.Max)
	}
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ", ")
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = scalarString(item)
		}
		return strings.Join(parts, ", ")
	}
	return scalarString(value)
}
