// Package installer makes sure the playwright driver and Chromium are
// present before any browser work starts.
package installer

import (
	"log"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// EnsurePlaywrightInstalled probes the driver and browser, installing them
// on first run or after a broken upgrade.
func EnsurePlaywrightInstalled() error {
	pw, err := playwright.Run()
	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") ||
			strings.Contains(err.Error(), "could not start driver") {
			log.Println("Playwright가 설치되어 있지 않습니다. 설치를 시작합니다...")
			return install()
		}
		return err
	}

	browser, err := pw.Chromium.Launch()
	if err != nil {
		pw.Stop()
		if strings.Contains(err.Error(), "Executable doesn't exist") {
			log.Println("브라우저 파일이 없습니다. 재설치합니다...")
			return install()
		}
		return err
	}
	browser.Close()
	pw.Stop()
	return nil
}

func install() error {
	log.Println("Playwright Chromium 브라우저 설치 중...")

	options := &playwright.RunOptions{
		Browsers: []string{"chromium"},
	}
	if err := playwright.Install(options); err != nil {
		log.Printf("설치 실패: %v", err)
		return err
	}

	// Verify the fresh install actually launches.
	pw, err := playwright.Run()
	if err != nil {
		return err
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch()
	if err != nil {
		return err
	}
	browser.Close()

	log.Println("✅ Playwright 브라우저 설치 완료")
	return nil
}
