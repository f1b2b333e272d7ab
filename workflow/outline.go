package workflow

import (
	"encoding/json"
	"strings"

	"github.com/randalmurphal/reportflow/report"
)

// ParseOutline turns a planner response into sections.
//
// Two forms are accepted, tried in order:
//
//  1. JSON: {"sections": [{"name": ..., "description": ..., "research": bool}]},
//     bare or inside a ```json fence. A section without "research" gets the
//     heading-grammar default described below.
//  2. Headings: a trimmed, non-empty line is a header when it starts with '#'
//     or ends with ':'. The name is the line without leading '#'s and the
//     trailing ':'. Each following non-header line is appended to the
//     description followed by "\n". Lines before the first header are
//     ignored.
//
// A section requires research unless its description mentions "executive
// summary" or "recommendation" (case-insensitive).
func ParseOutline(text string) []*report.Section {
	if sections, ok := parseJSONOutline(text); ok {
		return sections
	}
	return parseHeadingOutline(text)
}

type outlineJSON struct {
	Sections []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Research    *bool  `json:"research"`
	} `json:"sections"`
}

func parseJSONOutline(text string) ([]*report.Section, bool) {
	body := extractJSON(text)
	if body == "" {
		return nil, false
	}
	var out outlineJSON
	if err := json.Unmarshal([]byte(body), &out); err != nil || out.Sections == nil {
		return nil, false
	}

	sections := make([]*report.Section, 0, len(out.Sections))
	for _, s := range out.Sections {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		research := requiresResearch(s.Description)
		if s.Research != nil {
			research = *s.Research
		}
		sections = append(sections, &report.Section{
			Name:             name,
			Description:      s.Description,
			RequiresResearch: research,
		})
	}
	return sections, true
}

// extractJSON returns the object inside a ```json fence, or the text from
// the first '{' to the last '}'.
func extractJSON(text string) string {
	if i := strings.Index(text, "```json"); i >= 0 {
		rest := text[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func parseHeadingOutline(text string) []*report.Section {
	var sections []*report.Section
	var current *report.Section

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasSuffix(line, ":") {
			name := strings.TrimSpace(strings.TrimLeft(line, "#"))
			name = strings.TrimSpace(strings.TrimRight(name, ":"))
			if name == "" {
				continue
			}
			current = &report.Section{Name: name}
			sections = append(sections, current)
			continue
		}
		if current != nil {
			current.Description += line + "\n"
		}
	}

	for _, s := range sections {
		s.RequiresResearch = requiresResearch(s.Description)
	}
	return sections
}

func requiresResearch(description string) bool {
	d := strings.ToLower(description)
	return !strings.Contains(d, "executive summary") && !strings.Contains(d, "recommendation")
}
