// Package article loads local markdown post specs for batch publishing.
// File format: first line is the title, the rest is the body. An optional
// "태그:" line carries comma-separated tags, and markdown image references
// are resolved to absolute paths for upload.
package article

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

const tagMarker = "태그:"

// Article is one parsed post spec.
type Article struct {
	Title  string
	Body   string
	Tags   []string
	Images []Image
	Path   string
}

// Image is one markdown image reference, resolved against the file's
// directory.
type Image struct {
	AltText      string
	RelativePath string
	AbsolutePath string
}

// Parser loads post specs from a directory.
type Parser struct {
	dir string
}

func NewParser(dir string) *Parser {
	return &Parser{dir: dir}
}

// ParseFile reads one markdown file. Image-reference lines and the tag line
// are lifted out of the body; the editor uploads images separately.
func (p *Parser) ParseFile(path string) (*Article, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("파일을 열 수 없습니다 (%s): %v", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("파일 읽기 실패 (%s): %v", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("빈 파일입니다: %s", path)
	}

	title := strings.TrimSpace(strings.TrimLeft(lines[0], "# "))
	if title == "" {
		return nil, fmt.Errorf("제목이 없습니다: %s", path)
	}

	art := &Article{Title: title, Path: path}
	dir := filepath.Dir(path)

	var body []string
	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, tagMarker) {
			art.Tags = splitTags(strings.TrimPrefix(trimmed, tagMarker))
			continue
		}

		matches := imagePattern.FindAllStringSubmatch(line, -1)
		if len(matches) > 0 {
			for _, m := range matches {
				art.Images = append(art.Images, resolveImage(m[1], m[2], dir))
			}
			// Image-only lines do not belong in the typed body.
			if strings.TrimSpace(imagePattern.ReplaceAllString(line, "")) == "" {
				continue
			}
			line = imagePattern.ReplaceAllString(line, "")
		}
		body = append(body, line)
	}

	// Drop leading blank lines left by the title.
	for len(body) > 0 && strings.TrimSpace(body[0]) == "" {
		body = body[1:]
	}
	art.Body = strings.Join(body, "\n")
	return art, nil
}

// ParseAll loads every .md file under the parser's directory.
func (p *Parser) ParseAll() ([]*Article, error) {
	var articles []*Article
	err := filepath.Walk(p.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(info.Name()), ".md") {
			return nil
		}
		art, err := p.ParseFile(path)
		if err != nil {
			return fmt.Errorf("파일 해석 실패 (%s): %v", path, err)
		}
		articles = append(articles, art)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// ImagePaths lists the absolute paths of the article's images in order.
func (a *Article) ImagePaths() []string {
	paths := make([]string, len(a.Images))
	for i, img := range a.Images {
		paths[i] = img.AbsolutePath
	}
	return paths
}

func resolveImage(alt, ref, dir string) Image {
	var abs string
	switch {
	case filepath.IsAbs(ref):
		abs = ref
	case strings.HasPrefix(ref, "./"):
		abs = filepath.Join(dir, ref[2:])
	default:
		abs = filepath.Join(dir, ref)
	}
	if resolved, err := filepath.Abs(abs); err == nil {
		abs = resolved
	}
	return Image{AltText: alt, RelativePath: ref, AbsolutePath: abs}
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
