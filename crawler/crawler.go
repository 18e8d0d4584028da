// Package crawler extracts article text from a reference URL so the AI
// client can write grounded posts.
package crawler

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	fetchTimeout  = 10 * time.Second
	maxContent    = 5000
	summaryLength = 300
	maxKeywords   = 10
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// boilerplate tags stripped before content extraction.
var removeSelectors = "script, style, nav, footer, header, aside, iframe, noscript"

// content region candidates, most specific first. Naver blog selectors lead
// since references are usually other Naver posts.
var contentSelectors = []string{
	"div.se-main-container",
	"div#postViewArea",
	"div.post-view",
	"article",
	"div[class*='content'], div[class*='article'], div[class*='post'], div[class*='entry'], div[class*='body']",
	"div[id*='content'], div[id*='article'], div[id*='post'], div[id*='entry'], div[id*='body']",
	"main",
}

var (
	multiBlank  = regexp.MustCompile(`\n{3,}`)
	multiSpace  = regexp.MustCompile(`[ \t]{2,}`)
	sentenceEnd = regexp.MustCompile(`[.!?]\s+`)
)

// Result is the extracted reference material.
type Result struct {
	URL      string
	Title    string
	Content  string
	Markdown string
	Summary  string
	Keywords []string
}

// Crawler fetches and extracts one page at a time.
type Crawler struct {
	httpc     *http.Client
	converter *md.Converter

	Logger func(string)
}

func NewCrawler() *Crawler {
	return &Crawler{
		httpc:     &http.Client{Timeout: fetchTimeout},
		converter: md.NewConverter("", true, nil),
	}
}

func (c *Crawler) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if c.Logger != nil {
		c.Logger(msg)
	}
}

// Crawl fetches the URL and extracts title, plain-text content, a markdown
// rendition of the main region, a short summary and keywords.
func (c *Crawler) Crawl(rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("유효하지 않은 URL입니다: %s", rawURL)
	}

	c.logf("🔗 URL 크롤링 중: %s", rawURL)

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("URL 요청 실패: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("URL 요청 실패: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("HTML 파싱 실패: %v", err)
	}

	title := extractTitle(doc)
	keywords := extractKeywords(doc)

	doc.Find(removeSelectors).Remove()
	region := contentRegion(doc)

	content := cleanText(region.Text())
	markdown := ""
	if html, err := region.Html(); err == nil {
		if m, err := c.converter.ConvertString(html); err == nil {
			markdown = strings.TrimSpace(m)
		}
	}

	c.logf("✅ 크롤링 완료: %.50s", title)
	return &Result{
		URL:      rawURL,
		Title:    title,
		Content:  content,
		Markdown: markdown,
		Summary:  summarize(content),
		Keywords: keywords,
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// contentRegion picks the largest candidate region, falling back to body
// when nothing substantial matched.
func contentRegion(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestLen := 0
	for _, sel := range contentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if l := len(strings.TrimSpace(s.Text())); l > bestLen {
				best = s
				bestLen = l
			}
		})
	}
	if best == nil || bestLen < 100 {
		return doc.Find("body")
	}
	return best
}

func cleanText(text string) string {
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiBlank.ReplaceAllString(text, "\n\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	text = strings.Join(lines, "\n")

	if runes := []rune(text); len(runes) > maxContent {
		text = string(runes[:maxContent]) + "..."
	}
	return text
}

// summarize takes leading sentences up to the length budget.
func summarize(content string) string {
	var summary strings.Builder
	for _, sentence := range sentenceEnd.Split(content, -1) {
		if summary.Len()+len(sentence) > summaryLength {
			break
		}
		summary.WriteString(sentence)
		summary.WriteString(". ")
	}
	return strings.TrimSpace(summary.String())
}

// extractKeywords merges meta keywords, article tags and tag-styled anchors,
// deduplicated in order.
func extractKeywords(doc *goquery.Document) []string {
	var raw []string

	if content, ok := doc.Find("meta[name='keywords']").Attr("content"); ok {
		raw = append(raw, strings.Split(content, ",")...)
	}
	doc.Find("meta[property*='keywords'], meta[property*='tag']").Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			raw = append(raw, strings.Split(content, ",")...)
		}
	})
	doc.Find("a[class*='tag'], span[class*='tag']").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" && len([]rune(text)) < 30 {
			raw = append(raw, strings.ReplaceAll(text, "#", ""))
		}
	})

	seen := map[string]bool{}
	var keywords []string
	for _, k := range raw {
		k = strings.TrimSpace(k)
		if len([]rune(k)) < 2 || seen[k] {
			continue
		}
		seen[k] = true
		keywords = append(keywords, k)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
