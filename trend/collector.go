// Package trend collects posting-topic candidates from the Naver blog home
// page, category signal keywords and the seasonal calendar.
package trend

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	blogHomeURL    = "https://section.blog.naver.com/BlogHome.naver"
	fetchTimeout   = 10 * time.Second
	maxScraped     = 10
	signalPerQuery = 3
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Keyword is one ranked topic candidate.
type Keyword struct {
	Keyword  string
	Rank     int
	Category string
	Source   string
}

// categorySignals holds always-relevant keywords per blog category, used to
// pad scrape results and to pick topics offline.
var categorySignals = map[string][]string{
	"의료/약학":   {"건강", "영양제", "다이어트", "병원", "약국", "의사", "치료"},
	"IT/테크":   {"앱", "프로그램", "AI", "코딩", "개발", "스마트폰", "노트북"},
	"여행":      {"여행", "호텔", "항공", "관광", "맛집", "휴가", "펜션"},
	"맛집/요리":   {"맛집", "레시피", "요리", "카페", "디저트", "배달", "음식점"},
	"육아/교육":   {"육아", "교육", "학원", "공부", "아이", "유아", "학교"},
	"재테크/경제":  {"주식", "투자", "부동산", "금리", "경제", "재테크", "코인"},
	"뷰티/패션":   {"화장품", "패션", "옷", "뷰티", "메이크업", "스타일", "브랜드"},
	"운동/다이어트": {"운동", "헬스", "다이어트", "피트니스", "요가", "필라테스"},
	"반려동물":    {"강아지", "고양이", "펫", "반려동물", "동물병원", "사료"},
	"자기계발":    {"자기계발", "독서", "습관", "목표", "성공", "공부", "영어"},
}

// seasonalKeywords maps each month to its topical keywords.
var seasonalKeywords = map[time.Month][]string{
	time.January:   {"신년", "새해", "다이어리", "계획"},
	time.February:  {"발렌타인", "졸업", "입학준비"},
	time.March:     {"봄", "벚꽃", "입학", "개강"},
	time.April:     {"봄나들이", "피크닉", "꽃구경"},
	time.May:       {"어버이날", "스승의날", "가정의달"},
	time.June:      {"여름준비", "휴가계획", "장마"},
	time.July:      {"휴가", "바캉스", "여름", "해수욕장"},
	time.August:    {"피서", "여름휴가", "물놀이"},
	time.September: {"가을", "추석", "단풍"},
	time.October:   {"할로윈", "가을여행", "단풍놀이"},
	time.November:  {"수능", "블랙프라이데이", "김장"},
	time.December:  {"크리스마스", "연말", "송년회", "겨울"},
}

// Collector gathers keywords. The zero source set always works: scrape
// failure degrades to signal and seasonal keywords.
type Collector struct {
	homeURL string
	httpc   *http.Client

	Logger func(string)

	now func() time.Time
}

func NewCollector() *Collector {
	return &Collector{
		homeURL: blogHomeURL,
		httpc:   &http.Client{Timeout: fetchTimeout},
		now:     time.Now,
	}
}

func (c *Collector) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if c.Logger != nil {
		c.Logger(msg)
	}
}

// Collect returns up to count deduplicated keywords: scraped popular-post
// titles first, then category signals, then seasonal keywords.
func (c *Collector) Collect(category string, count int) []Keyword {
	if count <= 0 {
		count = 10
	}
	c.logf("📈 트렌드 키워드 수집 중...")

	keywords := c.scrapeBlogHome()

	if signals, ok := categorySignals[category]; ok {
		limit := signalPerQuery
		if limit > len(signals) {
			limit = len(signals)
		}
		for _, s := range signals[:limit] {
			keywords = append(keywords, Keyword{
				Keyword:  s,
				Rank:     len(keywords) + 1,
				Category: category,
				Source:   "category_signal",
			})
		}
	}

	keywords = append(keywords, c.seasonal()...)

	seen := map[string]bool{}
	unique := keywords[:0]
	for _, kw := range keywords {
		if seen[kw.Keyword] {
			continue
		}
		seen[kw.Keyword] = true
		unique = append(unique, kw)
	}

	if len(unique) > count {
		unique = unique[:count]
	}
	c.logf("✅ 총 %d개 키워드 수집 완료", len(unique))
	return unique
}

// scrapeBlogHome pulls popular-post titles off the blog home page. Failure
// is logged and returns nothing; the other sources cover for it.
func (c *Collector) scrapeBlogHome() []Keyword {
	req, err := http.NewRequest(http.MethodGet, c.homeURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logf("⚠️ 네이버 블로그 키워드 수집 실패: %v", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logf("⚠️ 네이버 블로그 키워드 수집 실패: HTTP %d", resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.logf("⚠️ 네이버 블로그 파싱 실패: %v", err)
		return nil
	}

	var keywords []Keyword
	doc.Find(".title_post, .post_title, .tit").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if runes := []rune(text); len(runes) > 30 {
			text = string(runes[:30])
		}
		if len([]rune(text)) > 2 {
			keywords = append(keywords, Keyword{
				Keyword: text,
				Rank:    len(keywords) + 1,
				Source:  "naver_blog",
			})
		}
		return len(keywords) < maxScraped
	})
	return keywords
}

// seasonal returns the current month's keywords, ranked after every scraped
// entry.
func (c *Collector) seasonal() []Keyword {
	month := c.now().Month()
	var keywords []Keyword
	for i, kw := range seasonalKeywords[month] {
		keywords = append(keywords, Keyword{
			Keyword: kw,
			Rank:    100 + i,
			Source:  "seasonal",
		})
	}
	return keywords
}

// Signals exposes the signal keywords for a category; nil when unknown.
func Signals(category string) []string {
	return categorySignals[category]
}
