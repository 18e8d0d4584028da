package gemini

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseArticleRoundTrip(t *testing.T) {
	response := `제목: 파이썬 자동화 완벽 가이드

파이썬으로 반복 업무를 줄여봅시다.

## 왜 자동화인가

시간이 절약됩니다.

태그: #파이썬, 자동화, #업무효율`

	art := ParseArticle(response, "파이썬 자동화")

	if art.Title != "파이썬 자동화 완벽 가이드" {
		t.Errorf("Title = %q", art.Title)
	}
	wantTags := []string{"파이썬", "자동화", "업무효율"}
	if !reflect.DeepEqual(art.Tags, wantTags) {
		t.Errorf("Tags = %v, want %v", art.Tags, wantTags)
	}
	wantBody := "파이썬으로 반복 업무를 줄여봅시다.\n\n## 왜 자동화인가\n\n시간이 절약됩니다."
	if art.Body != wantBody {
		t.Errorf("Body = %q, want %q", art.Body, wantBody)
	}
}

func TestParseArticleDefaults(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantTitle string
		wantTags  []string
	}{
		{"no markers at all", "그냥 본문만 있는 응답입니다.", "기본주제", []string{"기본주제"}},
		{"title only", "제목: 있음\n\n본문", "있음", []string{"기본주제"}},
		{"empty tags line", "제목: 있음\n태그:\n본문", "있음", []string{"기본주제"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := ParseArticle(tt.response, "기본주제")
			if art.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", art.Title, tt.wantTitle)
			}
			if !reflect.DeepEqual(art.Tags, tt.wantTags) {
				t.Errorf("Tags = %v, want %v", art.Tags, tt.wantTags)
			}
			if len(art.Tags) == 0 {
				t.Error("Tags must never be empty")
			}
		})
	}
}

func TestParseArticleLeadingBlanksDropped(t *testing.T) {
	response := "제목: T\n\n\n\n첫 문단\n\n둘째 문단"
	art := ParseArticle(response, "T")
	if strings.HasPrefix(art.Body, "\n") {
		t.Errorf("body starts with blank line: %q", art.Body)
	}
	if !strings.Contains(art.Body, "첫 문단\n\n둘째 문단") {
		t.Errorf("internal blank line lost: %q", art.Body)
	}
}

func TestSummaryTruncation(t *testing.T) {
	long := strings.Repeat("가", 500)
	art := ParseArticle("제목: T\n"+long, "T")
	if !strings.HasSuffix(art.Summary, "...") {
		t.Errorf("summary missing truncation marker: %q", art.Summary[:20])
	}
	if got := len([]rune(art.Summary)); got != summaryLimit+3 {
		t.Errorf("summary rune length = %d, want %d", got, summaryLimit+3)
	}

	short := ParseArticle("제목: T\n짧은 본문", "T")
	if short.Summary != "짧은 본문" {
		t.Errorf("short summary = %q", short.Summary)
	}
}

func TestParseNumberedList(t *testing.T) {
	response := `추천 제목입니다:
1. 첫 번째 제목
2. 두 번째 제목

3. 세 번째 제목
잡담 한 줄
4. 네 번째 제목`

	got := ParseNumberedList(response, 3)
	want := []string{"첫 번째 제목", "두 번째 제목", "세 번째 제목"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseNumberedList = %v, want %v", got, want)
	}

	if got := ParseNumberedList("번호 없는 응답", 5); got != nil {
		t.Errorf("expected nil for unnumbered response, got %v", got)
	}
}
