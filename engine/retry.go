package engine

import (
	"fmt"
	"time"

	"github.com/naver-blog-poster/naver"
)

// retryBaseDelay grows linearly with the attempt number.
const retryBaseDelay = 5 * time.Second

// PostResult is the outcome of one post in a batch.
type PostResult struct {
	Title string
	URL   string
	Err   error
}

// Publisher runs publish operations against prepared posts, with retry and
// batch behaviour layered over a session factory. Each retry attempt gets a
// fresh browser session; a half-broken one is never reused.
type Publisher struct {
	newSession func() (Session, error)
	Logger     func(string)

	sleep func(time.Duration)
}

// NewPublisher wires a retrying publisher over the session factory.
func NewPublisher(newSession func() (Session, error)) *Publisher {
	return &Publisher{
		newSession: newSession,
		sleep:      time.Sleep,
	}
}

func (p *Publisher) logf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger(fmt.Sprintf(format, args...))
	}
}

// PostWithRetry publishes one post, retrying up to maxRetries times. The
// wait before attempt n is retryBaseDelay * n.
func (p *Publisher) PostWithRetry(post *naver.Post, maxRetries int) (string, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			wait := retryBaseDelay * time.Duration(attempt)
			p.logf("⚠️ 재시도 %d/%d, %s 대기 중...", attempt, maxRetries, wait)
			p.sleep(wait)
		}

		url, err := p.postOnce(post)
		if err == nil {
			return url, nil
		}
		lastErr = err
		p.logf("❌ 포스팅 시도 %d 실패: %v", attempt, err)
	}
	return "", fmt.Errorf("포스팅이 %d회 모두 실패했습니다: %v", maxRetries, lastErr)
}

// postOnce runs a full session lifecycle for a single publish.
func (p *Publisher) postOnce(post *naver.Post) (string, error) {
	session, err := p.newSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	if err := session.Login(); err != nil {
		return "", err
	}
	return session.Publish(post)
}

// BatchPost publishes posts in order over one shared session, pausing delay
// between posts. A login failure aborts the whole batch with a single
// failure result; per-post failures are recorded and the batch continues.
func (p *Publisher) BatchPost(posts []*naver.Post, delay time.Duration) []PostResult {
	if len(posts) == 0 {
		return nil
	}

	session, err := p.newSession()
	if err != nil {
		return []PostResult{{Err: fmt.Errorf("로그인 실패: %v", err)}}
	}
	defer session.Close()

	if err := session.Login(); err != nil {
		p.logf("❌ 로그인 실패, 배치를 중단합니다: %v", err)
		return []PostResult{{Err: fmt.Errorf("로그인 실패: %v", err)}}
	}

	results := make([]PostResult, 0, len(posts))
	for i, post := range posts {
		if i > 0 && delay > 0 {
			p.sleep(delay)
		}

		url, err := session.Publish(post)
		results = append(results, PostResult{Title: post.Title, URL: url, Err: err})
		if err != nil {
			p.logf("❌ [%d/%d] %s 실패: %v", i+1, len(posts), post.Title, err)
			continue
		}
		p.logf("✅ [%d/%d] %s 완료", i+1, len(posts), post.Title)
	}
	return results
}
