package naver

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	loginURL = "https://nid.naver.com/nidlogin.login"

	pageLoadWait   = 3 * time.Second
	fieldWait      = 10 * time.Second
	fieldPause     = 500 * time.Millisecond
	challengePoll  = 2 * time.Second
	challengeLimit = 90 * time.Second
)

// sessionCookies mark an authenticated Naver session.
var sessionCookies = []string{"NID_AUT", "NID_SES"}

// ErrLoginFailed is returned when the form round-trip completes but the
// session never becomes authenticated.
type ErrLoginFailed struct {
	Reason string
}

func (e *ErrLoginFailed) Error() string {
	return fmt.Sprintf("로그인 실패: %s", e.Reason)
}

// Auth drives the Naver login form. Credentials go in through the clipboard
// rather than direct value assignment so autofill-detection heuristics see a
// paste, not a script.
type Auth struct {
	dom      DOM
	id       string
	password string
	blogID   string

	Logger func(string)

	// challengeWait bounds how long a manual captcha/2FA completion may
	// take before the flow gives up.
	challengeWait time.Duration
}

func NewAuth(dom DOM, id, password string) *Auth {
	return &Auth{
		dom:           dom,
		id:            id,
		password:      password,
		challengeWait: challengeLimit,
	}
}

// SetBlogID overrides the blog address when it differs from the login id.
func (a *Auth) SetBlogID(id string) {
	if id != "" {
		a.blogID = id
	}
}

// BlogID is the blog address segment used to build editor URLs. Defaults to
// the login id, which holds for personal blogs.
func (a *Auth) BlogID() string {
	if a.blogID != "" {
		return a.blogID
	}
	return a.id
}

func (a *Auth) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if a.Logger != nil {
		a.Logger(msg)
	}
}

// LoggedIn checks the two authentication signals: the page has left the
// login flow and a session cookie is present.
func (a *Auth) LoggedIn() bool {
	if strings.Contains(a.dom.URL(), "nidlogin") {
		return false
	}
	return a.dom.HasAnyCookie(sessionCookies...)
}

// Login performs the full form flow. When a captcha or security challenge
// blocks the automated path, the user gets a bounded window to complete it
// in the visible browser before the attempt is abandoned.
func (a *Auth) Login() error {
	a.logf("🔐 네이버 로그인 시도 중...")

	if err := a.dom.Navigate(loginURL); err != nil {
		return err
	}
	a.dom.Sleep(pageLoadWait)

	// A persisted session may already be valid; the login page redirects
	// away in that case.
	if a.LoggedIn() {
		a.logf("✅ 저장된 세션으로 로그인됨")
		return nil
	}

	idField, err := firstVisible(a.dom, "아이디 입력란", fieldWait, CSS("#id"))
	if err != nil {
		return err
	}
	if err := a.dom.Inject(idField, a.id, ModePaste); err != nil {
		return err
	}
	a.dom.Sleep(fieldPause)

	if err := a.dom.Inject(CSS("#pw"), a.password, ModePaste); err != nil {
		return err
	}
	a.dom.Sleep(fieldPause)

	if err := a.dom.Click(CSS(`#log\.login`)); err != nil {
		return err
	}
	a.dom.Sleep(pageLoadWait)

	if a.LoggedIn() {
		a.logf("✅ 로그인 성공")
		return nil
	}

	if a.challengePresent() {
		a.logf("⚠️ 보안 인증이 필요합니다. 브라우저에서 직접 완료해주세요 (%.0f초 대기)",
			a.challengeWait.Seconds())
		if a.waitForChallenge() {
			a.logf("✅ 로그인 성공")
			return nil
		}
		return &ErrLoginFailed{Reason: "보안 인증이 완료되지 않았습니다"}
	}

	return &ErrLoginFailed{Reason: "ID/PW를 확인해주세요"}
}

// challengePresent sniffs the page text for captcha/security-step markers.
func (a *Auth) challengePresent() bool {
	text, err := a.dom.PageText()
	if err != nil {
		return false
	}
	return strings.Contains(text, "캡차") || strings.Contains(text, "보안")
}

// waitForChallenge polls for authentication while the user completes the
// challenge by hand.
func (a *Auth) waitForChallenge() bool {
	attempts := int(a.challengeWait / challengePoll)
	for i := 0; i < attempts; i++ {
		if a.LoggedIn() {
			return true
		}
		a.dom.Sleep(challengePoll)
	}
	return a.LoggedIn()
}
