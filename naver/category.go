package naver

import (
	"fmt"
	"strings"
)

// Category is one blog category as shown in the editor's dropdown.
type Category struct {
	Name string
	ID   string
}

// DefaultCategory is the whole-blog fallback used when discovery finds
// nothing usable.
var DefaultCategory = Category{Name: "전체", ID: "0"}

var categoryCascade = []Locator{
	CSS(".category_select option"),
	CSS("select[name='categoryNo'] option"),
	CSS(".se-category-list li"),
	XPath("//select[contains(@class, 'category')]//option"),
}

// placeholder options the dropdown carries that are not real categories.
var categoryPlaceholders = map[string]bool{
	"카테고리 선택": true,
	"선택":      true,
	"":        true,
}

// Categories opens the write page and reads the category dropdown. Never
// fails: any problem degrades to the whole-blog default.
func (p *Publisher) Categories() []Category {
	if err := p.dom.Navigate(p.writeURL()); err != nil {
		p.logf("⚠️ 카테고리 가져오기 실패: %v", err)
		return []Category{DefaultCategory}
	}
	p.dom.Sleep(pageLoadWait)

	p.enterEditorFrame()
	defer p.dom.ExitFrame()

	for _, loc := range categoryCascade {
		options, err := p.dom.Options(loc)
		if err != nil || len(options) == 0 {
			continue
		}
		categories := filterCategories(options)
		if len(categories) > 0 {
			p.logf("✅ 카테고리 %d개 불러옴", len(categories))
			return categories
		}
	}

	p.logf("카테고리를 찾지 못했습니다. 기본 카테고리를 사용합니다.")
	return []Category{DefaultCategory}
}

// FindCategory resolves a display name to its id. The name must match
// exactly one category; a missing or duplicated name is an error rather
// than a silent first-match pick.
func FindCategory(categories []Category, name string) (Category, error) {
	name = strings.TrimSpace(name)
	var found []Category
	for _, c := range categories {
		if c.Name == name {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return Category{}, fmt.Errorf("카테고리를 찾을 수 없습니다: %s", name)
	default:
		return Category{}, fmt.Errorf("같은 이름의 카테고리가 %d개 있습니다: %s", len(found), name)
	}
}

func filterCategories(options []Option) []Category {
	var categories []Category
	for _, o := range options {
		name := strings.TrimSpace(o.Name)
		if categoryPlaceholders[name] || o.Value == "0" {
			continue
		}
		categories = append(categories, Category{Name: name, ID: o.Value})
	}
	return categories
}
