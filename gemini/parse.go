package gemini

import (
	"strings"
)

const summaryLimit = 200

// Article is one generated blog post. Immutable once parsed.
type Article struct {
	Title   string
	Body    string
	Tags    []string
	Summary string
}

// ParseArticle recovers title, body and tags from the free-form model output.
// The prompt asks for a "제목:" line, the body, then a "태그:" line, but the
// model is under no schema obligation, so every section is optional:
// missing title falls back to the topic, missing tags default to the topic.
// Blank lines inside the body are preserved, leading blanks are not.
func ParseArticle(response, defaultTopic string) *Article {
	var (
		title     string
		tags      []string
		bodyLines []string
		inBody    bool
	)

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		stripped := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(stripped, "제목:"):
			title = strings.TrimSpace(strings.TrimPrefix(stripped, "제목:"))
		case strings.HasPrefix(stripped, "태그:"):
			tags = splitTags(strings.TrimPrefix(stripped, "태그:"))
		case stripped == "":
			if inBody {
				bodyLines = append(bodyLines, "")
			}
		default:
			inBody = true
			bodyLines = append(bodyLines, line)
		}
	}

	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))

	if title == "" {
		title = defaultTopic
	}
	if len(tags) == 0 {
		tags = []string{defaultTopic}
	}

	return &Article{
		Title:   title,
		Body:    body,
		Tags:    tags,
		Summary: summarize(body),
	}
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(strings.ReplaceAll(t, "#", ""))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// summarize truncates at a rune boundary with an explicit marker.
func summarize(body string) string {
	runes := []rune(body)
	if len(runes) <= summaryLimit {
		return body
	}
	return string(runes[:summaryLimit]) + "..."
}

// ParseNumberedList extracts "1. 제목" style entries, bounded to max items.
// Used for title-suggestion responses.
func ParseNumberedList(response string, max int) []string {
	var items []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		parts := strings.SplitN(line, ".", 2)
		if len(parts) != 2 {
			continue
		}
		if item := strings.TrimSpace(parts[1]); item != "" {
			items = append(items, item)
		}
		if len(items) == max {
			break
		}
	}
	return items
}
