package browser

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	stealth "github.com/jonfriesen/playwright-go-stealth"
	"github.com/playwright-community/playwright-go"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures a browser session.
type Options struct {
	Headless bool
	// StateDir, when set, persists cookies/storage between runs so an
	// authenticated session survives a restart. Empty disables persistence.
	StateDir string
}

// Session owns one Chromium process and the single page all automation runs
// on. It is not safe for concurrent use; one workflow drives it at a time.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	stateFile string

	mu     sync.Mutex
	closed bool
}

// Open launches Chromium with the anti-detection setup: automation blink
// features disabled, a realistic desktop user agent, a fixed viewport, the
// Korean locale/timezone, and the stealth script injected into the page.
func Open(opts Options) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright 시작 실패: %v", err)
	}

	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-extensions",
		"--disable-plugins",
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--no-sandbox")
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("브라우저 실행 실패: %v", err)
	}

	contextOptions := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport: &playwright.Size{
			Width:  1920,
			Height: 1080,
		},
		DeviceScaleFactor: playwright.Float(1.0),
		IsMobile:          playwright.Bool(false),
		HasTouch:          playwright.Bool(false),
		Locale:            playwright.String("ko-KR"),
		TimezoneId:        playwright.String("Asia/Seoul"),
		JavaScriptEnabled: playwright.Bool(true),
	}

	var stateFile string
	if opts.StateDir != "" {
		stateFile = filepath.Join(opts.StateDir, "state.json")
		if _, err := os.Stat(stateFile); err == nil {
			contextOptions.StorageStatePath = playwright.String(stateFile)
			log.Println("💾 저장된 세션 상태를 불러옵니다")
		} else {
			log.Println("첫 실행, 새 세션을 만듭니다")
		}
	}

	context, err := b.NewContext(contextOptions)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("브라우저 컨텍스트 생성 실패: %v", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("페이지 생성 실패: %v", err)
	}

	if err := stealth.Inject(page); err != nil {
		log.Printf("⚠️ stealth 스크립트 주입 실패: %v", err)
	}

	s := &Session{
		pw:        pw,
		browser:   b,
		context:   context,
		page:      page,
		stateFile: stateFile,
	}

	// The user may close the window by hand; save what we can before the
	// context disappears.
	b.On("disconnected", func() {
		s.mu.Lock()
		closing := s.closed
		s.mu.Unlock()
		if !closing {
			log.Println("🔴 브라우저가 닫혔습니다, 세션 상태 저장")
			if err := s.SaveState(); err != nil {
				log.Printf("🚫 세션 상태 저장 실패: %v", err)
			}
		}
	})

	log.Println("✅ 브라우저 초기화 완료")
	return s, nil
}

// Page exposes the session's page to the automation layer.
func (s *Session) Page() playwright.Page {
	return s.page
}

// Navigate opens a URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("페이지 이동 실패 (%s): %v", url, err)
	}
	return nil
}

// SaveState writes cookies/storage to the state file when persistence is on.
func (s *Session) SaveState() error {
	if s.stateFile == "" || s.context == nil {
		return nil
	}
	state, err := s.context.StorageState()
	if err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.stateFile, data, 0644); err != nil {
		return err
	}
	if state.Cookies != nil {
		log.Printf("📊 세션 저장: 쿠키 %d개, %d bytes", len(state.Cookies), len(data))
	}
	return nil
}

// Close tears the whole stack down. Idempotent, and safe after a browser
// crash: every step swallows its error so cleanup always runs to the end.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.SaveState(); err != nil {
		log.Printf("🚫 종료 시 세션 상태 저장 실패: %v", err)
	}
	if s.context != nil {
		_ = s.context.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
	log.Println("브라우저 종료")
}
