package naver

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

const (
	writeURLFormat = "https://blog.naver.com/%s/postwrite"

	cascadeWait  = 3 * time.Second
	frameWait    = 5 * time.Second
	editorSettle = 3 * time.Second
	uploadSettle = 3 * time.Second
	clickSettle  = 2 * time.Second
	tagPace      = 200 * time.Millisecond
	maxTags      = 10
)

// Selector cascades for the SmartEditor surfaces, in priority order. The UI
// ships un-versioned; older variants sit later in each list.
var (
	editorFrameCascade = []Locator{
		CSS("#mainFrame"),
		CSS("iframe[name='mainFrame']"),
		CSS("iframe#mainFrame"),
	}
	titleCascade = []Locator{
		CSS(".se-title-text"),
		CSS("textarea.se-textarea"),
		CSS(".se-ff-nanumgothic"),
		XPath("//span[@class='se-title-text']//span"),
	}
	bodyCascade = []Locator{
		CSS(".se-content"),
		CSS(".se-component-content"),
		CSS(".se-text-paragraph"),
	}
	tagCascade = []Locator{
		CSS(".post_tag input"),
		CSS("input[placeholder*='태그']"),
	}
	publishCascade = []Locator{
		CSS(".publish_btn"),
		XPath("//button[contains(text(), '발행')]"),
		CSS("[data-name='publish']"),
	}
	popupCascade = []Locator{
		CSS(".se-popup-button-cancel"),
		CSS(".se-help-panel-close-button"),
	}
)

// Post is one publish request for the editor.
type Post struct {
	Title  string
	Body   string
	Tags   []string
	Images []string
}

// Publisher drives the SmartEditor write flow as a strict stage sequence:
// frame entry, title, images, body, tags, publish. Title and body failures
// abort the post; images and tags are best-effort.
type Publisher struct {
	dom    DOM
	blogID string

	Logger func(string)
}

func NewPublisher(dom DOM, blogID string) *Publisher {
	return &Publisher{dom: dom, blogID: blogID}
}

func (p *Publisher) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if p.Logger != nil {
		p.Logger(msg)
	}
}

func (p *Publisher) writeURL() string {
	return fmt.Sprintf(writeURLFormat, p.blogID)
}

// Publish submits one post and returns the page URL after the publish
// round-trip, which is the post address on success.
func (p *Publisher) Publish(post *Post) (string, error) {
	p.logf("📝 블로그 포스트 작성 중: %s", post.Title)

	if err := p.dom.Navigate(p.writeURL()); err != nil {
		return "", err
	}
	p.dom.Sleep(pageLoadWait)

	p.dismissPopups()
	p.enterEditorFrame()

	if err := p.setTitle(post.Title); err != nil {
		p.dom.ExitFrame()
		return "", err
	}

	p.uploadImages(post.Images)

	// The title must lose logical focus before the body is touched, or
	// the editor keeps routing keystrokes into the title model.
	_ = p.dom.Press("Escape")

	if err := p.setBody(post.Body); err != nil {
		p.dom.ExitFrame()
		return "", err
	}

	// Tag and publish controls live outside the editor frame.
	p.dom.ExitFrame()

	p.setTags(post.Tags)

	url, err := p.publish()
	if err != nil {
		return "", err
	}

	p.logf("🎉 포스팅 완료: %s", url)
	return url, nil
}

// dismissPopups closes the draft-restore and help panels that steal focus on
// a fresh editor load. Absence of either is the normal case.
func (p *Publisher) dismissPopups() {
	for _, loc := range popupCascade {
		if p.dom.WaitVisible(loc, time.Second) {
			if err := p.dom.Click(loc); err == nil {
				p.logf("팝업 닫음: %s", loc)
			}
		}
	}
}

// enterEditorFrame resets to the top-level document, then tries the named
// frame cascade. No frame means the unframed editor variant; the flow
// proceeds on the top document.
func (p *Publisher) enterEditorFrame() {
	p.dom.ExitFrame()
	if p.dom.EnterFrame(frameWait, editorFrameCascade...) {
		p.logf("에디터 프레임 진입")
	} else {
		p.logf("에디터 프레임 없음, 새 에디터로 진행")
	}
	// Editor widgets mount after the frame's load event; a DOM-ready wait
	// is not enough.
	p.dom.Sleep(editorSettle)
}

func (p *Publisher) setTitle(title string) error {
	loc, err := firstVisible(p.dom, "제목 입력란", cascadeWait, titleCascade...)
	if err != nil {
		return err
	}
	if err := p.dom.ScrollIntoView(loc); err != nil {
		return err
	}
	if err := p.dom.Click(loc); err != nil {
		return err
	}
	if err := p.dom.SelectAll(); err != nil {
		return err
	}
	if err := p.dom.Inject(loc, title, ModeType); err != nil {
		return fmt.Errorf("제목 입력 실패: %v", err)
	}
	p.logf("✅ 제목 입력 완료: %s", title)
	return nil
}

func (p *Publisher) setBody(body string) error {
	loc, err := firstVisible(p.dom, "본문 입력란", cascadeWait, bodyCascade...)
	if err != nil {
		return err
	}
	if err := p.dom.ScrollIntoView(loc); err != nil {
		return err
	}
	if err := p.dom.Click(loc); err != nil {
		return err
	}
	if err := p.dom.SelectAll(); err != nil {
		return err
	}
	if err := p.dom.Inject(loc, body, ModeType); err != nil {
		return fmt.Errorf("본문 입력 실패: %v", err)
	}
	p.logf("✅ 본문 입력 완료")
	return nil
}

// uploadImages attaches each existing file through the native file input.
// Every failure here is logged and skipped.
func (p *Publisher) uploadImages(images []string) {
	for _, path := range images {
		if _, err := os.Stat(path); err != nil {
			p.logf("⚠️ 이미지 파일 없음: %s", path)
			continue
		}

		button, err := firstVisible(p.dom, "이미지 버튼", cascadeWait, CSS("[data-name='image']"))
		if err != nil {
			p.logf("⚠️ 이미지 버튼을 찾을 수 없어 업로드 생략")
			return
		}
		if err := p.dom.Click(button); err != nil {
			p.logf("⚠️ 이미지 버튼 클릭 실패: %v", err)
			return
		}
		p.dom.Sleep(time.Second)

		if err := p.dom.UploadFile(CSS("input[type='file']"), path); err != nil {
			p.logf("⚠️ 이미지 업로드 실패: %v", err)
			continue
		}
		p.dom.Sleep(uploadSettle)
		p.logf("✅ 이미지 업로드 완료: %s", path)
	}
}

// setTags enters up to maxTags tags, one Enter keystroke each. Best-effort.
func (p *Publisher) setTags(tags []string) {
	if len(tags) == 0 {
		return
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	input, err := firstVisible(p.dom, "태그 입력란", cascadeWait, tagCascade...)
	if err != nil {
		p.logf("⚠️ 태그 입력 실패 (무시): %v", err)
		return
	}

	for _, tag := range tags {
		if err := p.dom.Inject(input, tag, ModeType); err != nil {
			p.logf("⚠️ 태그 입력 실패 (무시): %v", err)
			return
		}
		if err := p.dom.Press("Enter"); err != nil {
			p.logf("⚠️ 태그 입력 실패 (무시): %v", err)
			return
		}
		p.dom.Sleep(tagPace)
	}
	p.logf("✅ 태그 입력 완료: %s", strings.Join(tags, ", "))
}

// publish drives the two-step publish/confirm sequence. The click goes out
// as a DOM event since overlay layers often cover the button's hit target.
func (p *Publisher) publish() (string, error) {
	button, err := firstVisible(p.dom, "발행 버튼", cascadeWait, publishCascade...)
	if err != nil {
		return "", err
	}
	if err := p.dom.DispatchClick(button); err != nil {
		return "", fmt.Errorf("발행 실패: %v", err)
	}
	p.dom.Sleep(clickSettle)

	// The confirm layer only appears on some editor variants.
	if p.dom.WaitVisible(CSS(".confirm_btn"), cascadeWait) {
		if err := p.dom.DispatchClick(CSS(".confirm_btn")); err != nil {
			return "", fmt.Errorf("발행 확인 실패: %v", err)
		}
		p.dom.Sleep(clickSettle)
	}

	return p.dom.URL(), nil
}
