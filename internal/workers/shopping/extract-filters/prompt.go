package extractfilters

import (
	"fmt"
	"strings"

	"shopwhiz/internal/common/validation"
	"shopwhiz/internal/models"
)

const systemPrompt = "You are a precise JSON extraction bot. Return clean, accurate JSON."

var outputSchema = validation.SchemaJSON[models.ExtractedFilters]()

func buildPrompt(query string) string {
	return fmt.Sprintf(`You are an advanced filter extraction AI for an e-commerce shopping assistant.

STRICT RULES:
1. ONLY return valid JSON
2. Be precise and comprehensive
3. If unsure, return null for that field
4. "category" must be one of: %s, or null
5. Prices are numbers in INR without currency symbols or separators

Extract detailed filters from: %q

Return one JSON object matching this schema:
%s`, strings.Join(models.Categories, ", "), query, outputSchema)
}

// cleanCompletion removes markdown fencing and newlines the model adds despite instructions.
func cleanCompletion(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.ReplaceAll(content, "\n", "")
	return strings.TrimSpace(content)
}
