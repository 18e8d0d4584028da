package gemini

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TextGenerator is the provider boundary: one prompt in, raw text out.
type TextGenerator interface {
	Generate(model, systemPrompt, userPrompt string) (string, error)
}

const (
	rateWindowSpan  = time.Minute
	rateWindowSlack = time.Second
	minCallInterval = 4 * time.Second

	// Bounded same-model retries on quota before cascading to the next
	// candidate, and how deep into the candidate list the cascade goes.
	maxQuotaRetries = 2
	maxModelTries   = 4

	maxBackoff  = 3 * time.Minute
	backoffBase = 30 * time.Second
	sleepChunk  = time.Second
	defaultRPM  = 10
)

// defaultModels is the candidate list in priority order: fast variants first,
// pro variants as the fallback of last resort.
var defaultModels = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// GenerateRequest describes one article to produce.
type GenerateRequest struct {
	Topic     string
	Category  string
	Keywords  []string
	UseEmoji  bool
	MinLength int
	MaxLength int
	// Reference switches to the reference-material instruction template
	// when non-empty. Parsing and model selection are unchanged.
	Reference string
}

// Client is a quota-aware Gemini wrapper: ranked model fallback, a sliding
// 60 second request window, minimum inter-call pacing and classified errors.
// Not safe for concurrent Generate* calls from more than one goroutine per
// the single-workflow ownership model; the mutex only guards the window and
// the working-model cache against progress readers.
type Client struct {
	gen     TextGenerator
	prompts *Prompts
	models  []string

	// Logger receives the same human-readable lines that go to the log;
	// optional, set by the hosting layer before first use.
	Logger func(string)

	mu      sync.Mutex
	working string
	window  []time.Time
	rpm     int
	span    time.Duration

	pacer   *rate.Limiter
	sleep   func(time.Duration)
	stopped func() bool
}

// NewClient builds a client talking to the Gemini API with the default
// candidate models.
func NewClient(apiKey string) *Client {
	return newClient(&googleGenerator{apiKey: apiKey})
}

func newClient(gen TextGenerator) *Client {
	return &Client{
		gen:     gen,
		prompts: DefaultPrompts(),
		models:  defaultModels,
		rpm:     defaultRPM,
		span:    rateWindowSpan,
		pacer:   rate.NewLimiter(rate.Every(minCallInterval), 1),
		sleep:   time.Sleep,
	}
}

// SetPrompts replaces the instruction templates (see LoadPrompts).
func (c *Client) SetPrompts(p *Prompts) {
	if p != nil {
		c.prompts = p
	}
}

// SetRPM overrides the requests-per-minute ceiling.
func (c *Client) SetRPM(rpm int) {
	if rpm > 0 {
		c.mu.Lock()
		c.rpm = rpm
		c.mu.Unlock()
	}
}

// SetStopProbe installs a cancellation probe observed during long quota
// sleeps. Browser-free waits are the only interruptible points in the client.
func (c *Client) SetStopProbe(stopped func() bool) {
	c.stopped = stopped
}

// WorkingModel reports the model currently believed reliable, if any.
func (c *Client) WorkingModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.working
}

func (c *Client) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if c.Logger != nil {
		c.Logger(msg)
	}
}

// GenerateArticle produces one parsed blog post for the request.
func (c *Client) GenerateArticle(req GenerateRequest) (*Article, error) {
	if req.MinLength <= 0 {
		req.MinLength = 1500
	}
	if req.MaxLength <= 0 {
		req.MaxLength = 3000
	}

	keywords := strings.Join(req.Keywords, ", ")
	if keywords == "" {
		keywords = req.Topic
	}
	emoji := "이모지 없이"
	if req.UseEmoji {
		emoji = "이모지를 적절히 사용해서"
	}

	vars := map[string]string{
		"Topic":            req.Topic,
		"Category":         req.Category,
		"Keywords":         keywords,
		"EmojiInstruction": emoji,
		"MinLength":        strconv.Itoa(req.MinLength),
		"MaxLength":        strconv.Itoa(req.MaxLength),
		"Reference":        req.Reference,
	}

	template := c.prompts.BlogPost
	if req.Reference != "" {
		template = c.prompts.Reference
	}

	c.logf("📝 블로그 글 생성 중: %s", req.Topic)
	response, err := c.generate(render(template, vars))
	if err != nil {
		return nil, err
	}
	return ParseArticle(response, req.Topic), nil
}

// GenerateTitles suggests count candidate titles for a topic.
func (c *Client) GenerateTitles(topic string, count int) ([]string, error) {
	if count <= 0 {
		count = 5
	}
	c.logf("📝 제목 제안 생성 중: %s", topic)
	response, err := c.generate(render(c.prompts.Titles, map[string]string{
		"Topic": topic,
		"Count": strconv.Itoa(count),
	}))
	if err != nil {
		return nil, err
	}
	return ParseNumberedList(response, count), nil
}

// GenerateImagePrompt produces an English image-generation prompt.
func (c *Client) GenerateImagePrompt(topic, style string) (string, error) {
	if style == "" {
		style = "modern, clean, professional"
	}
	c.logf("🎨 이미지 프롬프트 생성 중: %s", topic)
	response, err := c.generate(render(c.prompts.ImagePrompt, map[string]string{
		"Topic": topic,
		"Style": style,
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// improveInstructions maps named styles to Korean rewrite instructions.
var improveInstructions = map[string]string{
	"more engaging":     "더 흥미롭고 독자의 관심을 끌 수 있게",
	"more professional": "더 전문적이고 신뢰감 있게",
	"more casual":       "더 친근하고 대화하듯이",
	"shorter":           "핵심만 간결하게",
	"longer":            "더 자세하고 풍부하게",
	"seo":               "SEO에 최적화되도록 키워드를 자연스럽게 포함해서",
}

// ImproveContent rewrites a draft. style may be a named preset or a literal
// Korean instruction.
func (c *Client) ImproveContent(content, style string) (string, error) {
	instruction, ok := improveInstructions[style]
	if !ok {
		instruction = style
	}
	if instruction == "" {
		instruction = "더 자연스럽고 읽기 쉽게"
	}
	c.logf("✍️ 콘텐츠 개선 중...")
	return c.generate(render(c.prompts.Improve, map[string]string{
		"Instruction": instruction,
		"Content":     content,
	}))
}

// TestConnection pings the provider with a trivial prompt.
func (c *Client) TestConnection() bool {
	response, err := c.generate("Say 'OK' if you can hear me.")
	return err == nil && strings.Contains(strings.ToUpper(response), "OK")
}

// generate runs the model-fallback pipeline for one prompt.
func (c *Client) generate(userPrompt string) (string, error) {
	var (
		lastErr     *Error
		quotaFailed int
		attempted   int
		maxRetry    time.Duration
	)

	for _, model := range c.candidateOrder() {
		if attempted == maxModelTries {
			break
		}
		attempted++

		text, err := c.tryModel(model, userPrompt)
		if err == nil {
			c.setWorking(model)
			return text, nil
		}

		cls := Classify(err)
		lastErr = cls

		switch cls.Kind {
		case KindCredentialInvalid:
			// No model switch can fix a bad key.
			return "", cls
		case KindQuotaExceeded:
			quotaFailed++
			if cls.RetryAfter > maxRetry {
				maxRetry = cls.RetryAfter
			}
			c.logf("⚠️ %s 할당량 초과, 다음 모델로 전환", model)
		default:
			c.logf("⚠️ %s 실패 (%s), 다음 모델로 전환", model, cls.Kind)
		}
		c.clearWorking(model)
	}

	if lastErr == nil {
		return "", &Error{Kind: KindUnknown, Message: "no candidate models configured"}
	}
	if quotaFailed == attempted {
		return "", &Error{
			Kind:       KindQuotaExceeded,
			Message:    lastErr.Message,
			RetryAfter: maxRetry,
			Exhausted:  true,
		}
	}
	return "", lastErr
}

// tryModel calls one model, absorbing a bounded number of quota errors with
// the computed wait before giving up on it.
func (c *Client) tryModel(model, userPrompt string) (string, error) {
	for attempt := 0; ; attempt++ {
		c.waitTurn()

		text, err := c.gen.Generate(model, c.prompts.System, userPrompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", &Error{Kind: KindUnknown, Message: "empty provider response"}
			}
			return text, nil
		}

		cls := Classify(err)
		if cls.Kind != KindQuotaExceeded || attempt >= maxQuotaRetries {
			return "", cls
		}

		wait := c.quotaWait(cls, attempt)
		c.logf("⏳ %s 할당량 초과, %.0f초 대기 후 재시도 (%d/%d)",
			model, wait.Seconds(), attempt+1, maxQuotaRetries)
		if !c.sleepChunked(wait) {
			return "", cls
		}
		c.resetWindow()
	}
}

// quotaWait computes how long to back off for a quota error: the provider's
// suggestion when present, a 60 second floor when the text names a per-minute
// limit, else exponential backoff capped at maxBackoff.
func (c *Client) quotaWait(cls *Error, attempt int) time.Duration {
	if cls.RetryAfter > 0 {
		return cls.RetryAfter + rateWindowSlack
	}
	if mentionsPerMinuteLimit(cls.Message) {
		return rateWindowSpan + rateWindowSlack
	}
	backoff := backoffBase << attempt
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// sleepChunked sleeps in one-second chunks so a stop request during a long
// quota wait is honored. Returns false when interrupted.
func (c *Client) sleepChunked(d time.Duration) bool {
	for d > 0 {
		if c.stopped != nil && c.stopped() {
			return false
		}
		chunk := sleepChunk
		if d < chunk {
			chunk = d
		}
		c.sleep(chunk)
		d -= chunk
	}
	return true
}

// waitTurn enforces both limits before a provider call: the sliding 60
// second window against the RPM ceiling, then the fixed inter-call delay.
// The pacer reservation is taken only after window admission; a reservation
// taken earlier would be consumed by a long window wait and let the next
// call depart back-to-back with the previous one.
func (c *Client) waitTurn() {
	for {
		c.mu.Lock()
		now := time.Now()
		c.pruneWindowLocked(now)
		if len(c.window) < c.rpm {
			c.window = append(c.window, now)
			c.mu.Unlock()
			break
		}
		wait := c.window[0].Add(c.span + rateWindowSlack).Sub(now)
		c.mu.Unlock()

		if wait > 0 {
			c.logf("⏳ 분당 요청 한도 도달, %.1f초 대기", wait.Seconds())
			c.sleep(wait)
		}
	}

	if delay := c.pacer.Reserve().Delay(); delay > 0 {
		c.sleep(delay)
	}
}

func (c *Client) pruneWindowLocked(now time.Time) {
	cutoff := now.Add(-c.span)
	i := 0
	for i < len(c.window) && c.window[i].Before(cutoff) {
		i++
	}
	c.window = c.window[i:]
}

func (c *Client) resetWindow() {
	c.mu.Lock()
	c.window = nil
	c.mu.Unlock()
}

// candidateOrder puts the working model first, then the static priority list.
func (c *Client) candidateOrder() []string {
	c.mu.Lock()
	working := c.working
	c.mu.Unlock()

	if working == "" {
		return c.models
	}
	order := make([]string, 0, len(c.models)+1)
	order = append(order, working)
	for _, m := range c.models {
		if m != working {
			order = append(order, m)
		}
	}
	return order
}

func (c *Client) setWorking(model string) {
	c.mu.Lock()
	if c.working != model {
		c.working = model
	}
	c.mu.Unlock()
}

// clearWorking drops the cache only when the failed model was the cached one.
func (c *Client) clearWorking(model string) {
	c.mu.Lock()
	if c.working == model {
		c.working = ""
	}
	c.mu.Unlock()
}
