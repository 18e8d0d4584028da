// Package engine orchestrates one posting run: trends, topic, content,
// image, publish. A single run owns the browser session for its duration.
package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/naver-blog-poster/gemini"
	"github.com/naver-blog-poster/history"
	"github.com/naver-blog-poster/naver"
	"github.com/naver-blog-poster/trend"
)

// Stage names the workflow's progression. Terminal stages are completed,
// failed and cancelled.
type Stage string

const (
	StagePending           Stage = "pending"
	StageCollectingTrends  Stage = "collecting-trends"
	StageSelectingTopic    Stage = "selecting-topic"
	StageGeneratingContent Stage = "generating-content"
	StageGeneratingImage   Stage = "generating-image"
	StagePosting           Stage = "posting"
	StageCompleted         Stage = "completed"
	StageFailed            Stage = "failed"
	StageCancelled         Stage = "cancelled"
)

// ErrCancelled reports a run stopped at a stage boundary by request.
var ErrCancelled = errors.New("사용자 요청으로 중단되었습니다")

// ErrAlreadyRunning rejects a second concurrent run; runs are never queued.
var ErrAlreadyRunning = errors.New("이미 실행 중입니다")

// Progress is one snapshot of the run, delivered to the progress callback.
type Progress struct {
	Stage   Stage
	Message string
	Topic   string
	Title   string
	URL     string
	Err     error
}

// ProgressFunc receives stage transitions. Called from the run's goroutine;
// implementations must be quick and thread-safe.
type ProgressFunc func(Progress)

// ContentGenerator produces the article text.
type ContentGenerator interface {
	GenerateArticle(req gemini.GenerateRequest) (*gemini.Article, error)
}

// ImageGenerator renders an illustrative image for a topic.
type ImageGenerator interface {
	GenerateForKoreanTopic(topic, extraStyle string) (path string, err error)
}

// TrendSource supplies topic candidates.
type TrendSource interface {
	Collect(category string, count int) []trend.Keyword
}

// Session is one authenticated browser session able to publish posts. The
// engine owns it for the duration of a run and closes it on teardown.
type Session interface {
	Login() error
	Publish(post *naver.Post) (string, error)
	Close()
}

// Recorder persists run outcomes.
type Recorder interface {
	Add(r history.Record) error
}

// Options are the per-run posting settings.
type Options struct {
	Category  string
	Keywords  []string
	UseImage  bool
	UseEmoji  bool
	MinLength int
	MaxLength int
	// MaxRetries bounds whole posting attempts; each retry gets a fresh
	// browser session. Values below 1 mean a single attempt.
	MaxRetries int
	// Reference switches content generation to reference-material mode.
	Reference string
}

// Result is the terminal outcome of a run, including whatever partial
// progress was made before a failure.
type Result struct {
	Stage Stage
	Topic string
	Title string
	URL   string
	Err   error
}

// Engine runs the posting workflow. One run at a time; starting a second
// while one is active returns ErrAlreadyRunning.
type Engine struct {
	gen       ContentGenerator
	images    ImageGenerator
	trends    TrendSource
	publisher *Publisher
	recorder  Recorder
	dupProbe  func(topic string) bool
	opts      Options

	Logger     func(string)
	OnProgress ProgressFunc

	running atomic.Bool
	stop    atomic.Bool

	mu       sync.Mutex
	progress Progress
}

// New wires an engine. images, trends and recorder may be nil; their stages
// are skipped.
func New(gen ContentGenerator, images ImageGenerator, trends TrendSource,
	newSession func() (Session, error), opts Options) *Engine {
	e := &Engine{
		gen:    gen,
		images: images,
		trends: trends,
		opts:   opts,
	}
	e.publisher = NewPublisher(newSession)
	e.publisher.Logger = func(msg string) { e.logf("%s", msg) }
	return e
}

// SetRecorder installs the history store.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetDuplicateProbe installs a check for topics covered recently. A hit is
// logged as a warning; the run continues with the selected topic.
func (e *Engine) SetDuplicateProbe(probe func(topic string) bool) {
	e.dupProbe = probe
}

// Stop requests cancellation. Observed at the next stage boundary; work
// inside a stage always runs to completion.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Running reports whether a run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Stopping reports whether cancellation has been requested. Collaborators
// with long internal waits can poll it to bail out early.
func (e *Engine) Stopping() bool {
	return e.stop.Load()
}

// Progress returns the latest snapshot.
func (e *Engine) Progress() Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

func (e *Engine) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if e.Logger != nil {
		e.Logger(msg)
	}
}

// transition updates shared progress, logs and notifies the callback.
func (e *Engine) transition(stage Stage, message string) {
	e.mu.Lock()
	e.progress.Stage = stage
	e.progress.Message = message
	snapshot := e.progress
	e.mu.Unlock()

	e.logf("%s", message)
	if e.OnProgress != nil {
		e.OnProgress(snapshot)
	}
}

func (e *Engine) setTopic(topic string) {
	e.mu.Lock()
	e.progress.Topic = topic
	e.mu.Unlock()
}

func (e *Engine) setTitle(title string) {
	e.mu.Lock()
	e.progress.Title = title
	e.mu.Unlock()
}

func (e *Engine) cancelled() bool {
	return e.stop.Load()
}

// Run executes the full workflow and returns its terminal result. The
// returned error mirrors Result.Err for convenience.
func (e *Engine) Run() (*Result, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer e.running.Store(false)
	e.stop.Store(false)

	e.mu.Lock()
	e.progress = Progress{Stage: StagePending}
	e.mu.Unlock()

	result := e.run()

	e.mu.Lock()
	e.progress.Stage = result.Stage
	e.progress.Err = result.Err
	e.progress.URL = result.URL
	e.mu.Unlock()

	e.record(result)
	if e.OnProgress != nil {
		e.OnProgress(e.Progress())
	}
	return result, result.Err
}

func (e *Engine) run() *Result {
	result := &Result{}
	fail := func(err error) *Result {
		result.Stage = StageFailed
		result.Err = err
		e.logf("❌ 포스팅 실패: %v", err)
		return result
	}
	cancel := func() *Result {
		result.Stage = StageCancelled
		result.Err = ErrCancelled
		e.logf("⏹️ 포스팅 중단됨")
		return result
	}

	// 1. Trends.
	if e.cancelled() {
		return cancel()
	}
	e.transition(StageCollectingTrends, "1단계: 트렌드 키워드 수집 중...")
	var trending []trend.Keyword
	if e.trends != nil {
		trending = e.trends.Collect(e.opts.Category, 10)
	}

	// 2. Topic.
	if e.cancelled() {
		return cancel()
	}
	e.transition(StageSelectingTopic, "2단계: 주제 선정 중...")
	topic := SelectTopic(e.opts.Keywords, trending, e.opts.Category)
	result.Topic = topic
	e.setTopic(topic)
	e.logf("📌 선정된 주제: %s", topic)
	if e.dupProbe != nil && e.dupProbe(topic) {
		e.logf("⚠️ 최근에 다룬 주제입니다: %s", topic)
	}

	// 3. Content.
	if e.cancelled() {
		return cancel()
	}
	e.transition(StageGeneratingContent, "3단계: 블로그 글 작성 중...")
	article, err := e.gen.GenerateArticle(gemini.GenerateRequest{
		Topic:     topic,
		Category:  e.opts.Category,
		Keywords:  e.opts.Keywords,
		UseEmoji:  e.opts.UseEmoji,
		MinLength: e.opts.MinLength,
		MaxLength: e.opts.MaxLength,
		Reference: e.opts.Reference,
	})
	if err != nil {
		return fail(err)
	}
	result.Title = article.Title
	e.setTitle(article.Title)

	// 4. Image, best-effort: a post without its illustration still goes out.
	var images []string
	if e.opts.UseImage && e.images != nil {
		if e.cancelled() {
			return cancel()
		}
		e.transition(StageGeneratingImage, "4단계: 이미지 생성 중...")
		path, err := e.images.GenerateForKoreanTopic(topic, "")
		if err != nil {
			e.logf("⚠️ 이미지 생성 실패 (계속 진행): %v", err)
		} else {
			images = append(images, path)
		}
	}

	// 5. Publish.
	if e.cancelled() {
		return cancel()
	}
	e.transition(StagePosting, "5단계: 네이버 블로그에 포스팅 중...")
	url, err := e.publisher.PostWithRetry(&naver.Post{
		Title:  article.Title,
		Body:   article.Body,
		Tags:   article.Tags,
		Images: images,
	}, e.opts.MaxRetries)
	if err != nil {
		return fail(err)
	}

	result.Stage = StageCompleted
	result.URL = url
	e.transition(StageCompleted, "🎉 포스팅이 완료되었습니다!")
	return result
}

func (e *Engine) record(result *Result) {
	if e.recorder == nil {
		return
	}
	rec := history.Record{
		Topic: result.Topic,
		Title: result.Title,
		URL:   result.URL,
		Stage: string(result.Stage),
	}
	if result.Err != nil {
		rec.Error = result.Err.Error()
	}
	if err := e.recorder.Add(rec); err != nil {
		e.logf("⚠️ 기록 저장 실패: %v", err)
	}
}
