package naver

import (
	"fmt"
	"strings"
	"time"
)

// fakeDOM is an in-memory DOM scripted per test. Every operation appends a
// line to calls so ordering can be asserted.
type fakeDOM struct {
	url      string
	pageText string
	cookies  map[string]bool
	visible  map[string]bool
	frames   map[string]bool
	options  map[string][]Option
	inFrame  bool

	clickErr map[string]error

	calls  []string
	sleeps int

	onNavigate func(url string)
	onClick    func(loc Locator)
	onSleep    func()
}

func newFakeDOM() *fakeDOM {
	return &fakeDOM{
		cookies:  map[string]bool{},
		visible:  map[string]bool{},
		frames:   map[string]bool{},
		options:  map[string][]Option{},
		clickErr: map[string]error{},
	}
}

func (f *fakeDOM) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDOM) Navigate(url string) error {
	f.url = url
	f.record("navigate %s", url)
	if f.onNavigate != nil {
		f.onNavigate(url)
	}
	return nil
}

func (f *fakeDOM) URL() string { return f.url }

func (f *fakeDOM) PageText() (string, error) { return f.pageText, nil }

func (f *fakeDOM) HasAnyCookie(names ...string) bool {
	for _, n := range names {
		if f.cookies[n] {
			return true
		}
	}
	return false
}

func (f *fakeDOM) EnterFrame(_ time.Duration, cascade ...Locator) bool {
	for _, loc := range cascade {
		if f.frames[loc.String()] {
			f.inFrame = true
			f.record("enterframe %s", loc)
			return true
		}
	}
	return false
}

func (f *fakeDOM) ExitFrame() {
	f.inFrame = false
	f.record("exitframe")
}

func (f *fakeDOM) WaitVisible(loc Locator, _ time.Duration) bool {
	return f.visible[loc.String()]
}

func (f *fakeDOM) Click(loc Locator) error {
	f.record("click %s", loc)
	if err := f.clickErr[loc.String()]; err != nil {
		return err
	}
	if f.onClick != nil {
		f.onClick(loc)
	}
	return nil
}

func (f *fakeDOM) DispatchClick(loc Locator) error {
	f.record("dispatchclick %s", loc)
	if err := f.clickErr[loc.String()]; err != nil {
		return err
	}
	if f.onClick != nil {
		f.onClick(loc)
	}
	return nil
}

func (f *fakeDOM) ScrollIntoView(loc Locator) error {
	f.record("scroll %s", loc)
	return nil
}

func (f *fakeDOM) Inject(loc Locator, text string, mode InputMode) error {
	kind := "type"
	if mode == ModePaste {
		kind = "paste"
	}
	f.record("inject[%s] %s %q", kind, loc, text)
	return nil
}

func (f *fakeDOM) SelectAll() error {
	f.record("selectall")
	return nil
}

func (f *fakeDOM) Press(key string) error {
	f.record("press %s", key)
	return nil
}

func (f *fakeDOM) UploadFile(loc Locator, path string) error {
	f.record("upload %s %s", loc, path)
	return nil
}

func (f *fakeDOM) Options(loc Locator) ([]Option, error) {
	return f.options[loc.String()], nil
}

func (f *fakeDOM) Sleep(time.Duration) {
	f.sleeps++
	if f.onSleep != nil {
		f.onSleep()
	}
}

// indexOf returns the position of the first call containing substr, or -1.
func (f *fakeDOM) indexOf(substr string) int {
	for i, c := range f.calls {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}
