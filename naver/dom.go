package naver

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a query string is interpreted.
type Strategy string

const (
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
)

// Locator is one (strategy, query) pair in a selector cascade.
type Locator struct {
	Strategy Strategy
	Query    string
}

func CSS(query string) Locator   { return Locator{Strategy: ByCSS, Query: query} }
func XPath(query string) Locator { return Locator{Strategy: ByXPath, Query: query} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Strategy, l.Query)
}

// InputMode picks the text-injection primitive. Paste goes through the OS
// clipboard and a paste key-combo, which plain form inputs accept without
// tripping autofill heuristics. Type issues synthetic keystrokes, which
// contenteditable editors need to keep their internal document model in sync.
type InputMode int

const (
	ModePaste InputMode = iota
	ModeType
)

// ElementNotFoundError reports an exhausted selector cascade. URL is the page
// address at the time of failure, for diagnosis against UI changes.
type ElementNotFoundError struct {
	Stage string
	Tried []Locator
	URL   string
}

func (e *ElementNotFoundError) Error() string {
	queries := make([]string, len(e.Tried))
	for i, l := range e.Tried {
		queries[i] = l.String()
	}
	return fmt.Sprintf("%s 요소를 찾을 수 없습니다 (url=%s, tried: %s)",
		e.Stage, e.URL, strings.Join(queries, ", "))
}

// DOM is the browser surface the login/editor flows drive. The playwright
// implementation lives in page.go; tests use an in-memory fake.
type DOM interface {
	Navigate(url string) error
	URL() string
	// PageText returns the full document markup for text probes.
	PageText() (string, error)
	HasAnyCookie(names ...string) bool

	// EnterFrame switches the locator scope into the first frame the
	// cascade resolves. Reports false when no frame matched; the caller
	// then operates on the top-level document.
	EnterFrame(timeout time.Duration, cascade ...Locator) bool
	ExitFrame()

	WaitVisible(loc Locator, timeout time.Duration) bool
	Click(loc Locator) error
	// DispatchClick fires a DOM click event directly, for controls whose
	// hit target is obscured by overlay layers.
	DispatchClick(loc Locator) error
	ScrollIntoView(loc Locator) error

	// Inject focuses the element and writes text using the given mode.
	// The field is not cleared first; see SelectAll.
	Inject(loc Locator, text string, mode InputMode) error
	SelectAll() error
	Press(key string) error

	UploadFile(loc Locator, path string) error
	Options(loc Locator) ([]Option, error)

	Sleep(d time.Duration)
}

// Option is one entry of a select-like control.
type Option struct {
	Name  string
	Value string
}

// firstVisible walks a cascade and returns the first locator that becomes
// visible within the per-strategy timeout.
func firstVisible(d DOM, stage string, timeout time.Duration, cascade ...Locator) (Locator, error) {
	for _, loc := range cascade {
		if d.WaitVisible(loc, timeout) {
			return loc, nil
		}
	}
	return Locator{}, &ElementNotFoundError{Stage: stage, Tried: cascade, URL: d.URL()}
}
