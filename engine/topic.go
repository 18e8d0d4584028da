package engine

import (
	"strings"

	"github.com/naver-blog-poster/trend"
)

// defaultTopic is the last-resort topic when nothing else is available.
const defaultTopic = "일상에서 발견한 소소한 이야기"

// SelectTopic picks the post topic. User keywords always win; otherwise a
// trend matching the category is preferred over the first trend, and the
// category name itself serves as a final fallback.
func SelectTopic(keywords []string, trends []trend.Keyword, category string) string {
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			return kw
		}
	}

	if token := categoryToken(category); token != "" {
		for _, t := range trends {
			if strings.Contains(t.Keyword, token) {
				return t.Keyword
			}
		}
	}
	if len(trends) > 0 {
		return trends[0].Keyword
	}

	if category != "" && category != "직접입력" {
		return category
	}
	return defaultTopic
}

// categoryToken reduces a "맛집/요리" style category to its leading segment
// for substring matching against trend keywords.
func categoryToken(category string) string {
	if category == "" || category == "직접입력" {
		return ""
	}
	if i := strings.IndexRune(category, '/'); i > 0 {
		return strings.TrimSpace(category[:i])
	}
	return strings.TrimSpace(category)
}
