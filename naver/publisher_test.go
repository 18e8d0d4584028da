package naver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func editorReadyDOM() *fakeDOM {
	dom := newFakeDOM()
	dom.frames["css=#mainFrame"] = true
	dom.visible["css=.se-title-text"] = true
	dom.visible["css=.se-content"] = true
	dom.visible["css=.post_tag input"] = true
	dom.visible["css=.publish_btn"] = true
	return dom
}

func TestPublishHappyPath(t *testing.T) {
	dom := editorReadyDOM()
	dom.visible["css=.confirm_btn"] = true
	dom.onClick = func(loc Locator) {
		if loc.Query == ".confirm_btn" {
			dom.url = "https://blog.naver.com/blogger/223000000001"
		}
	}

	p := NewPublisher(dom, "blogger")
	url, err := p.Publish(&Post{
		Title: "오늘의 포스트",
		Body:  "본문입니다.",
		Tags:  []string{"여행", "맛집"},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://blog.naver.com/blogger/223000000001" {
		t.Errorf("url = %q", url)
	}

	title := dom.indexOf(`inject[type] css=.se-title-text "오늘의 포스트"`)
	escape := dom.indexOf("press Escape")
	body := dom.indexOf(`inject[type] css=.se-content "본문입니다."`)
	publish := dom.indexOf("dispatchclick css=.publish_btn")
	confirm := dom.indexOf("dispatchclick css=.confirm_btn")
	for name, idx := range map[string]int{
		"title": title, "escape": escape, "body": body,
		"publish": publish, "confirm": confirm,
	} {
		if idx == -1 {
			t.Fatalf("missing %s step, calls: %v", name, dom.calls)
		}
	}
	// Title must be defocused before the body is touched.
	if !(title < escape && escape < body && body < publish && publish < confirm) {
		t.Errorf("stages out of order: title=%d escape=%d body=%d publish=%d confirm=%d",
			title, escape, body, publish, confirm)
	}
}

func TestPublishEditorInjectionIsTyped(t *testing.T) {
	dom := editorReadyDOM()
	p := NewPublisher(dom, "blogger")
	if _, err := p.Publish(&Post{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if dom.indexOf("inject[paste]") != -1 {
		t.Error("editor content was pasted, want synthetic typing")
	}
}

func TestPublishTitleNotFoundIsFatal(t *testing.T) {
	dom := newFakeDOM()
	dom.frames["css=#mainFrame"] = true
	dom.url = "https://blog.naver.com/blogger/postwrite"

	p := NewPublisher(dom, "blogger")
	_, err := p.Publish(&Post{Title: "T", Body: "B"})

	var notFound *ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ElementNotFoundError", err)
	}
	if notFound.Stage != "제목 입력란" {
		t.Errorf("Stage = %q", notFound.Stage)
	}
	if !strings.Contains(notFound.Error(), "postwrite") {
		t.Errorf("error lacks page URL: %v", notFound)
	}
	if dom.indexOf("inject[type] css=.se-content") != -1 {
		t.Error("body was touched after title failure")
	}
}

func TestPublishBodyNotFoundIsFatal(t *testing.T) {
	dom := newFakeDOM()
	dom.frames["css=#mainFrame"] = true
	dom.visible["css=.se-title-text"] = true

	p := NewPublisher(dom, "blogger")
	_, err := p.Publish(&Post{Title: "T", Body: "B"})

	var notFound *ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want ElementNotFoundError", err)
	}
	if notFound.Stage != "본문 입력란" {
		t.Errorf("Stage = %q", notFound.Stage)
	}
}

func TestPublishTitleCascadeFallsBack(t *testing.T) {
	dom := editorReadyDOM()
	delete(dom.visible, "css=.se-title-text")
	dom.visible["css=textarea.se-textarea"] = true

	p := NewPublisher(dom, "blogger")
	if _, err := p.Publish(&Post{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if dom.indexOf(`inject[type] css=textarea.se-textarea "T"`) == -1 {
		t.Errorf("fallback title selector unused: %v", dom.calls)
	}
}

func TestPublishUnframedEditor(t *testing.T) {
	dom := editorReadyDOM()
	dom.frames = map[string]bool{}

	p := NewPublisher(dom, "blogger")
	if _, err := p.Publish(&Post{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("unframed editor must not fail: %v", err)
	}
}

func TestPublishTagLimitAndPacing(t *testing.T) {
	dom := editorReadyDOM()

	tags := make([]string, 14)
	for i := range tags {
		tags[i] = "태그"
	}

	p := NewPublisher(dom, "blogger")
	if _, err := p.Publish(&Post{Title: "T", Body: "B", Tags: tags}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	enters := 0
	for _, c := range dom.calls {
		if c == "press Enter" {
			enters++
		}
	}
	if enters != maxTags {
		t.Errorf("entered %d tags, want %d", enters, maxTags)
	}
}

func TestPublishTagFailureDoesNotAbort(t *testing.T) {
	dom := editorReadyDOM()
	delete(dom.visible, "css=.post_tag input")

	p := NewPublisher(dom, "blogger")
	if _, err := p.Publish(&Post{Title: "T", Body: "B", Tags: []string{"여행"}}); err != nil {
		t.Fatalf("tag failure aborted the post: %v", err)
	}
	if dom.indexOf("dispatchclick css=.publish_btn") == -1 {
		t.Error("publish step skipped")
	}
}

func TestPublishMissingImageSkipped(t *testing.T) {
	dom := editorReadyDOM()
	dom.visible["css=[data-name='image']"] = true

	p := NewPublisher(dom, "blogger")
	_, err := p.Publish(&Post{
		Title:  "T",
		Body:   "B",
		Images: []string{"/no/such/file.png"},
	})
	if err != nil {
		t.Fatalf("missing image aborted the post: %v", err)
	}
	if dom.indexOf("upload") != -1 {
		t.Error("upload attempted for missing file")
	}
}

func TestPublishUploadsExistingImage(t *testing.T) {
	img := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(img, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	dom := editorReadyDOM()
	dom.visible["css=[data-name='image']"] = true

	p := NewPublisher(dom, "blogger")
	if _, err := p.Publish(&Post{Title: "T", Body: "B", Images: []string{img}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if dom.indexOf("upload css=input[type='file'] "+img) == -1 {
		t.Errorf("image not uploaded: %v", dom.calls)
	}
}

func TestCategoriesFiltersPlaceholders(t *testing.T) {
	dom := newFakeDOM()
	dom.frames["css=#mainFrame"] = true
	dom.options["css=.category_select option"] = []Option{
		{Name: "카테고리 선택", Value: ""},
		{Name: "전체보기", Value: "0"},
		{Name: " 일상 ", Value: "6"},
		{Name: "여행", Value: "12"},
	}

	p := NewPublisher(dom, "blogger")
	got := p.Categories()
	want := []Category{{Name: "일상", ID: "6"}, {Name: "여행", ID: "12"}}
	if len(got) != len(want) {
		t.Fatalf("Categories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCategoriesSentinelOnEmpty(t *testing.T) {
	dom := newFakeDOM()

	p := NewPublisher(dom, "blogger")
	got := p.Categories()
	if len(got) != 1 || got[0] != DefaultCategory {
		t.Errorf("Categories = %v, want the whole-blog sentinel", got)
	}
}

func TestFindCategory(t *testing.T) {
	categories := []Category{
		{Name: "일상", ID: "1"},
		{Name: "여행", ID: "2"},
		{Name: "일상", ID: "3"},
	}

	got, err := FindCategory(categories, " 여행 ")
	if err != nil || got.ID != "2" {
		t.Errorf("FindCategory(여행) = %v, %v", got, err)
	}
	if _, err := FindCategory(categories, "요리"); err == nil {
		t.Error("missing name accepted")
	}
	if _, err := FindCategory(categories, "일상"); err == nil {
		t.Error("ambiguous name accepted")
	}
}
