package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/naver-blog-poster/gemini"
	"github.com/naver-blog-poster/history"
	"github.com/naver-blog-poster/naver"
	"github.com/naver-blog-poster/trend"
)

type fakeGen struct {
	article *gemini.Article
	err     error
	calls   int
	block   chan struct{}
}

func (g *fakeGen) GenerateArticle(req gemini.GenerateRequest) (*gemini.Article, error) {
	g.calls++
	if g.block != nil {
		<-g.block
	}
	if g.err != nil {
		return nil, g.err
	}
	if g.article != nil {
		return g.article, nil
	}
	return &gemini.Article{Title: req.Topic + " 후기", Body: "본문", Tags: []string{req.Topic}}, nil
}

type fakeImages struct {
	path string
	err  error
}

func (f *fakeImages) GenerateForKoreanTopic(topic, extraStyle string) (string, error) {
	return f.path, f.err
}

type fakeTrends struct {
	keywords []trend.Keyword
}

func (f *fakeTrends) Collect(category string, count int) []trend.Keyword {
	return f.keywords
}

type fakeSession struct {
	loginErr   error
	publishErr error
	url        string

	logins    int
	published []*naver.Post
	closed    int
}

func (s *fakeSession) Login() error { s.logins++; return s.loginErr }

func (s *fakeSession) Publish(post *naver.Post) (string, error) {
	s.published = append(s.published, post)
	if s.publishErr != nil {
		return "", s.publishErr
	}
	return s.url, nil
}

func (s *fakeSession) Close() { s.closed++ }

func sessionFactory(s *fakeSession) func() (Session, error) {
	return func() (Session, error) { return s, nil }
}

type memRecorder struct {
	records []history.Record
}

func (r *memRecorder) Add(rec history.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func newTestEngine(gen ContentGenerator, session *fakeSession, opts Options) *Engine {
	return New(gen, nil, nil, sessionFactory(session), opts)
}

func TestRunCompletes(t *testing.T) {
	session := &fakeSession{url: "https://blog.naver.com/me/1"}
	e := newTestEngine(&fakeGen{}, session, Options{Keywords: []string{"제주 여행"}})

	var stages []Stage
	e.OnProgress = func(p Progress) { stages = append(stages, p.Stage) }

	result, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stage != StageCompleted {
		t.Errorf("Stage = %s", result.Stage)
	}
	if result.Topic != "제주 여행" || result.URL != "https://blog.naver.com/me/1" {
		t.Errorf("result = %+v", result)
	}
	if session.logins != 1 || len(session.published) != 1 || session.closed != 1 {
		t.Errorf("session usage: logins=%d published=%d closed=%d",
			session.logins, len(session.published), session.closed)
	}

	want := []Stage{StageCollectingTrends, StageSelectingTopic,
		StageGeneratingContent, StagePosting, StageCompleted, StageCompleted}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v", stages)
	}
	for i, s := range want {
		if stages[i] != s {
			t.Errorf("stage[%d] = %s, want %s", i, stages[i], s)
		}
	}
}

func TestRunImageFailureIsNotFatal(t *testing.T) {
	session := &fakeSession{url: "https://blog.naver.com/me/2"}
	e := New(&fakeGen{}, &fakeImages{err: errors.New("image service down")},
		nil, sessionFactory(session), Options{Keywords: []string{"맛집"}, UseImage: true})

	result, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stage != StageCompleted {
		t.Errorf("Stage = %s", result.Stage)
	}
	if len(session.published[0].Images) != 0 {
		t.Errorf("Images = %v", session.published[0].Images)
	}
}

func TestRunAttachesGeneratedImage(t *testing.T) {
	session := &fakeSession{url: "https://blog.naver.com/me/3"}
	e := New(&fakeGen{}, &fakeImages{path: "/tmp/header.png"},
		nil, sessionFactory(session), Options{Keywords: []string{"맛집"}, UseImage: true})

	if _, err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := session.published[0].Images; len(got) != 1 || got[0] != "/tmp/header.png" {
		t.Errorf("Images = %v", got)
	}
}

func TestRunContentFailureCarriesTopic(t *testing.T) {
	session := &fakeSession{}
	e := newTestEngine(&fakeGen{err: errors.New("할당량 초과")}, session,
		Options{Keywords: []string{"캠핑"}})

	result, err := e.Run()
	if err == nil {
		t.Fatal("expected failure")
	}
	if result.Stage != StageFailed {
		t.Errorf("Stage = %s", result.Stage)
	}
	if result.Topic != "캠핑" {
		t.Errorf("partial topic lost: %+v", result)
	}
	if session.logins != 0 {
		t.Error("browser session opened despite content failure")
	}
}

func TestRunLoginFailure(t *testing.T) {
	session := &fakeSession{loginErr: errors.New("로그인 실패")}
	e := newTestEngine(&fakeGen{}, session, Options{Keywords: []string{"캠핑"}})

	result, _ := e.Run()
	if result.Stage != StageFailed {
		t.Errorf("Stage = %s", result.Stage)
	}
	if result.Title == "" {
		t.Error("partial title lost on posting failure")
	}
	if session.closed != 1 {
		t.Error("session not closed after login failure")
	}
}

func TestRunRetriesPostingWithFreshSession(t *testing.T) {
	factory := &flakySessionFactory{failures: 1}
	e := New(&fakeGen{}, nil, nil, factory.new, Options{Keywords: []string{"제주"}, MaxRetries: 3})
	e.publisher.sleep = func(time.Duration) {}

	result, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Stage != StageCompleted {
		t.Errorf("Stage = %s", result.Stage)
	}
	if result.URL != "https://blog.naver.com/me/2" {
		t.Errorf("URL = %s", result.URL)
	}

	// The failed attempt's session is torn down and a fresh one retried.
	if len(factory.made) != 2 {
		t.Fatalf("sessions = %d", len(factory.made))
	}
	for i, s := range factory.made {
		if s.closed != 1 {
			t.Errorf("session %d closed %d times", i, s.closed)
		}
	}
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	block := make(chan struct{})
	gen := &fakeGen{block: block}
	session := &fakeSession{url: "u"}
	e := newTestEngine(gen, session, Options{Keywords: []string{"x"}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.Run()
	}()

	// Wait for the first run to reach the blocking generator.
	for i := 0; i < 100 && !e.Running(); i++ {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := e.Run(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run err = %v", err)
	}

	close(block)
	wg.Wait()

	// A finished engine accepts new runs.
	if _, err := e.Run(); err != nil {
		t.Errorf("rerun after completion: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d", gen.calls)
	}
}

func TestStopCancelsAtStageBoundary(t *testing.T) {
	session := &fakeSession{url: "u"}
	gen := &fakeGen{}
	e := newTestEngine(gen, session, Options{Keywords: []string{"x"}})
	// Request the stop from inside a stage; the boundary check picks it up.
	e.OnProgress = func(p Progress) {
		if p.Stage == StageSelectingTopic {
			e.Stop()
		}
	}

	result, err := e.Run()
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v", err)
	}
	if result.Stage != StageCancelled {
		t.Errorf("Stage = %s", result.Stage)
	}
	if gen.calls != 0 {
		t.Error("content generated after cancellation")
	}
	if session.logins != 0 {
		t.Error("browser touched after cancellation")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	rec := &memRecorder{}
	session := &fakeSession{url: "https://blog.naver.com/me/9"}
	e := newTestEngine(&fakeGen{}, session, Options{Keywords: []string{"서울 맛집"}})
	e.SetRecorder(rec)

	if _, err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.records) != 1 {
		t.Fatalf("records = %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Topic != "서울 맛집" || r.URL != "https://blog.naver.com/me/9" || r.Stage != string(StageCompleted) {
		t.Errorf("record = %+v", r)
	}
	if r.Error != "" {
		t.Errorf("Error = %q", r.Error)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	rec := &memRecorder{}
	session := &fakeSession{publishErr: errors.New("발행 버튼 없음")}
	e := newTestEngine(&fakeGen{}, session, Options{Keywords: []string{"x"}})
	e.SetRecorder(rec)

	e.Run()
	if len(rec.records) != 1 {
		t.Fatalf("records = %d", len(rec.records))
	}
	r := rec.records[0]
	if r.Stage != string(StageFailed) || !strings.Contains(r.Error, "발행 버튼") {
		t.Errorf("record = %+v", r)
	}
}

func TestSelectTopic(t *testing.T) {
	trends := []trend.Keyword{
		{Keyword: "가을 캠핑 준비물"},
		{Keyword: "서울 맛집 추천"},
	}
	tests := []struct {
		name     string
		keywords []string
		trends   []trend.Keyword
		category string
		want     string
	}{
		{"user keyword wins", []string{"제주 여행"}, trends, "맛집/요리", "제주 여행"},
		{"blank keywords skipped", []string{" ", "제주 여행"}, trends, "", "제주 여행"},
		{"category-matching trend", nil, trends, "맛집/요리", "서울 맛집 추천"},
		{"first trend fallback", nil, trends, "육아", "가을 캠핑 준비물"},
		{"category fallback", nil, nil, "여행", "여행"},
		{"generic default", nil, nil, "", defaultTopic},
		{"manual category ignored", nil, nil, "직접입력", defaultTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectTopic(tt.keywords, tt.trends, tt.category); got != tt.want {
				t.Errorf("SelectTopic = %q, want %q", got, tt.want)
			}
		})
	}
}

// flakySessionFactory fails the first n publishes, each on a fresh session.
type flakySessionFactory struct {
	failures int
	made     []*fakeSession
}

func (f *flakySessionFactory) new() (Session, error) {
	s := &fakeSession{url: fmt.Sprintf("https://blog.naver.com/me/%d", len(f.made)+1)}
	if len(f.made) < f.failures {
		s.publishErr = errors.New("에디터 로딩 실패")
	}
	f.made = append(f.made, s)
	return s, nil
}

func TestPostWithRetryRecovers(t *testing.T) {
	factory := &flakySessionFactory{failures: 2}
	p := NewPublisher(factory.new)
	var waits []time.Duration
	p.sleep = func(d time.Duration) { waits = append(waits, d) }

	url, err := p.PostWithRetry(&naver.Post{Title: "t"}, 3)
	if err != nil {
		t.Fatalf("PostWithRetry: %v", err)
	}
	if url != "https://blog.naver.com/me/3" {
		t.Errorf("url = %s", url)
	}

	// Every attempt runs on its own session, and each one is torn down.
	if len(factory.made) != 3 {
		t.Fatalf("sessions = %d", len(factory.made))
	}
	for i, s := range factory.made {
		if s.closed != 1 {
			t.Errorf("session %d closed %d times", i, s.closed)
		}
	}

	// Linear backoff: 10s before attempt 2, 15s before attempt 3.
	if len(waits) != 2 || waits[0] != 10*time.Second || waits[1] != 15*time.Second {
		t.Errorf("waits = %v", waits)
	}
}

func TestPostWithRetryExhausted(t *testing.T) {
	factory := &flakySessionFactory{failures: 10}
	p := NewPublisher(factory.new)
	p.sleep = func(time.Duration) {}

	_, err := p.PostWithRetry(&naver.Post{Title: "t"}, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "3회") {
		t.Errorf("err = %v", err)
	}
	if len(factory.made) != 3 {
		t.Errorf("sessions = %d", len(factory.made))
	}
}

func TestBatchPostSharesOneSession(t *testing.T) {
	session := &fakeSession{url: "u"}
	p := NewPublisher(sessionFactory(session))
	var waits []time.Duration
	p.sleep = func(d time.Duration) { waits = append(waits, d) }

	posts := []*naver.Post{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	results := p.BatchPost(posts, 5*time.Second)

	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Err != nil || r.Title != posts[i].Title {
			t.Errorf("result[%d] = %+v", i, r)
		}
	}
	if session.logins != 1 || session.closed != 1 {
		t.Errorf("logins=%d closed=%d", session.logins, session.closed)
	}
	// Delay between posts, not before the first.
	if len(waits) != 2 {
		t.Errorf("waits = %v", waits)
	}
}

func TestBatchPostAbortsOnLoginFailure(t *testing.T) {
	session := &fakeSession{loginErr: errors.New("아이디 또는 비밀번호 오류")}
	p := NewPublisher(sessionFactory(session))
	p.sleep = func(time.Duration) {}

	results := p.BatchPost([]*naver.Post{{Title: "a"}, {Title: "b"}}, 0)

	// One failure entry for the whole batch; no posts were attempted.
	if len(results) != 1 {
		t.Fatalf("results = %v", results)
	}
	if results[0].Err == nil || !strings.Contains(results[0].Err.Error(), "로그인 실패") {
		t.Errorf("err = %v", results[0].Err)
	}
	if len(session.published) != 0 {
		t.Error("posts attempted after login failure")
	}
}

func TestBatchPostContinuesPastPostFailure(t *testing.T) {
	session := &scriptedSession{inner: &fakeSession{url: "u"}, failAt: 2}
	p := NewPublisher(func() (Session, error) { return session, nil })
	p.sleep = func(time.Duration) {}

	results := p.BatchPost([]*naver.Post{{Title: "a"}, {Title: "b"}, {Title: "c"}}, 0)

	if len(results) != 3 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("neighbours failed: %+v", results)
	}
	if results[1].Err == nil {
		t.Error("middle failure not reported")
	}
}

// scriptedSession fails the nth publish and delegates the rest.
type scriptedSession struct {
	inner  *fakeSession
	failAt int
	calls  int
}

func (s *scriptedSession) Login() error { return s.inner.Login() }

func (s *scriptedSession) Publish(post *naver.Post) (string, error) {
	s.calls++
	if s.calls == s.failAt {
		return "", errors.New("일시적 오류")
	}
	return s.inner.Publish(post)
}

func (s *scriptedSession) Close() { s.inner.Close() }
