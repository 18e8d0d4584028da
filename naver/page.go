package naver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/playwright-community/playwright-go"
)

const typeDelayMs = 30

// Page drives a live playwright page through the DOM interface. A non-nil
// frame scopes element lookups into the editor iframe until ExitFrame.
type Page struct {
	page  playwright.Page
	frame playwright.Frame
}

func NewPage(page playwright.Page) *Page {
	return &Page{page: page}
}

// selector renders a Locator into playwright's selector syntax.
func selector(loc Locator) string {
	if loc.Strategy == ByXPath {
		return "xpath=" + loc.Query
	}
	return loc.Query
}

func (p *Page) locate(loc Locator) playwright.Locator {
	if p.frame != nil {
		return p.frame.Locator(selector(loc))
	}
	return p.page.Locator(selector(loc))
}

func (p *Page) Navigate(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return fmt.Errorf("페이지 이동 실패 (%s): %v", url, err)
	}
	return nil
}

func (p *Page) URL() string {
	return p.page.URL()
}

func (p *Page) PageText() (string, error) {
	return p.page.Content()
}

func (p *Page) HasAnyCookie(names ...string) bool {
	cookies, err := p.page.Context().Cookies()
	if err != nil {
		return false
	}
	for _, c := range cookies {
		for _, name := range names {
			if c.Name == name {
				return true
			}
		}
	}
	return false
}

func (p *Page) EnterFrame(timeout time.Duration, cascade ...Locator) bool {
	for _, loc := range cascade {
		l := p.page.Locator(selector(loc)).First()
		if err := l.WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(float64(timeout.Milliseconds())),
			State:   playwright.WaitForSelectorStateAttached,
		}); err != nil {
			continue
		}
		handle, err := p.page.QuerySelector(selector(loc))
		if err != nil || handle == nil {
			continue
		}
		frame, err := handle.ContentFrame()
		if err != nil || frame == nil {
			continue
		}
		p.frame = frame
		return true
	}
	return false
}

func (p *Page) ExitFrame() {
	p.frame = nil
}

func (p *Page) WaitVisible(loc Locator, timeout time.Duration) bool {
	err := p.locate(loc).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
		State:   playwright.WaitForSelectorStateVisible,
	})
	return err == nil
}

func (p *Page) Click(loc Locator) error {
	if err := p.locate(loc).First().Click(); err != nil {
		return fmt.Errorf("클릭 실패 (%s): %v", loc, err)
	}
	return nil
}

func (p *Page) DispatchClick(loc Locator) error {
	if err := p.locate(loc).First().DispatchEvent("click", nil); err != nil {
		return fmt.Errorf("클릭 이벤트 전송 실패 (%s): %v", loc, err)
	}
	return nil
}

func (p *Page) ScrollIntoView(loc Locator) error {
	return p.locate(loc).First().ScrollIntoViewIfNeeded()
}

func (p *Page) Inject(loc Locator, text string, mode InputMode) error {
	if err := p.Click(loc); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)

	switch mode {
	case ModePaste:
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("클립보드 복사 실패: %v", err)
		}
		if err := p.page.Keyboard().Press("Control+v"); err != nil {
			return fmt.Errorf("붙여넣기 실패: %v", err)
		}
	default:
		if err := p.page.Keyboard().Type(text, playwright.KeyboardTypeOptions{
			Delay: playwright.Float(typeDelayMs),
		}); err != nil {
			return fmt.Errorf("키보드 입력 실패: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

func (p *Page) SelectAll() error {
	return p.page.Keyboard().Press("Control+a")
}

func (p *Page) Press(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *Page) UploadFile(loc Locator, path string) error {
	file, err := readInputFile(path)
	if err != nil {
		return err
	}
	if err := p.locate(loc).First().SetInputFiles([]playwright.InputFile{file}); err != nil {
		return fmt.Errorf("파일 업로드 실패 (%s): %v", path, err)
	}
	return nil
}

// readInputFile loads the file into an in-memory InputFile so the upload
// works the same against framed and unframed file inputs.
func readInputFile(path string) (playwright.InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return playwright.InputFile{}, fmt.Errorf("이미지 파일 읽기 실패 (%s): %v", path, err)
	}
	mimeType := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mimeType = "image/png"
	case ".gif":
		mimeType = "image/gif"
	case ".webp":
		mimeType = "image/webp"
	}
	return playwright.InputFile{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Buffer:   data,
	}, nil
}

func (p *Page) Options(loc Locator) ([]Option, error) {
	all, err := p.locate(loc).All()
	if err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(all))
	for _, l := range all {
		name, err := l.InnerText()
		if err != nil {
			continue
		}
		value, _ := l.GetAttribute("value")
		options = append(options, Option{Name: name, Value: value})
	}
	return options, nil
}

func (p *Page) Sleep(d time.Duration) {
	time.Sleep(d)
}
