// Package pollinations downloads AI-generated images from the free
// pollinations.ai endpoint.
package pollinations

import (
	"crypto/md5"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://image.pollinations.ai/prompt"
	defaultWidth   = 1024
	defaultHeight  = 768
	defaultModel   = "flux"
	requestTimeout = 120 * time.Second
)

// AvailableModels lists the generation models the endpoint accepts.
var AvailableModels = []string{"flux", "turbo", "flux-realism", "flux-anime", "flux-3d"}

// koreanTopics maps common Korean blog topics to English prompt stems. A
// topic with no mapping is sent as-is; the endpoint handles Korean poorly
// but does not reject it.
var koreanTopics = map[string]string{
	"맛집":   "delicious food restaurant",
	"여행":   "beautiful travel destination",
	"카페":   "cozy cafe interior",
	"요리":   "home cooking food",
	"운동":   "fitness exercise",
	"독서":   "reading books",
	"음악":   "music instruments",
	"영화":   "cinema movie",
	"패션":   "fashion style",
	"뷰티":   "beauty cosmetics",
	"육아":   "parenting family",
	"반려동물": "cute pets",
	"자기계발": "personal development growth",
	"재테크":  "financial investment money",
	"IT":   "technology digital",
	"건강":   "health wellness",
}

// Request describes one image to generate.
type Request struct {
	Prompt   string
	Filename string
	Width    int
	Height   int
	Model    string
	Seed     int64
	// Enhance asks the service to rewrite the prompt; NoLogo drops the
	// watermark. Both default on via NewClient.
	Enhance bool
	NoLogo  bool
}

// Result is a generated image on disk.
type Result struct {
	Path   string
	URL    string
	Prompt string
	Width  int
	Height int
}

// Client fetches images and writes them under SaveDir.
type Client struct {
	baseURL string
	saveDir string
	httpc   *http.Client

	Logger func(string)

	// now is the clock for cache-busting and filenames.
	now func() time.Time
}

func NewClient(saveDir string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		saveDir: saveDir,
		httpc:   &http.Client{Timeout: requestTimeout},
		now:     time.Now,
	}
}

func (c *Client) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	if c.Logger != nil {
		c.Logger(msg)
	}
}

// buildURL encodes the prompt into the path and the options into the query,
// with a timestamp parameter so the CDN cannot serve a cached image.
func (c *Client) buildURL(req Request) string {
	params := []string{
		"width=" + strconv.Itoa(req.Width),
		"height=" + strconv.Itoa(req.Height),
		"model=" + req.Model,
	}
	if req.Seed != 0 {
		params = append(params, "seed="+strconv.FormatInt(req.Seed, 10))
	}
	if req.Enhance {
		params = append(params, "enhance=true")
	}
	if req.NoLogo {
		params = append(params, "nologo=true")
	}
	params = append(params, "t="+strconv.FormatInt(c.now().Unix(), 10))

	return c.baseURL + "/" + url.PathEscape(req.Prompt) + "?" + strings.Join(params, "&")
}

// Generate fetches one image and saves it. A missing filename gets an
// md5-prefix + timestamp name so repeated prompts never collide.
func (c *Client) Generate(req Request) (*Result, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("빈 프롬프트입니다")
	}
	if req.Width <= 0 {
		req.Width = defaultWidth
	}
	if req.Height <= 0 {
		req.Height = defaultHeight
	}
	if req.Model == "" {
		req.Model = defaultModel
	}

	imageURL := c.buildURL(req)
	c.logf("🎨 이미지 생성 중: %.50s...", req.Prompt)

	resp, err := c.httpc.Get(imageURL)
	if err != nil {
		return nil, fmt.Errorf("이미지 다운로드 실패: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("이미지 생성 실패: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("이미지 다운로드 실패: %v", err)
	}

	filename := req.Filename
	if filename == "" {
		hash := fmt.Sprintf("%x", md5.Sum([]byte(req.Prompt)))[:8]
		filename = fmt.Sprintf("image_%s_%d.png", hash, c.now().Unix())
	}
	if !hasImageExt(filename) {
		filename += ".png"
	}

	if err := os.MkdirAll(c.saveDir, 0755); err != nil {
		return nil, fmt.Errorf("이미지 저장 실패: %v", err)
	}
	path := filepath.Join(c.saveDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("이미지 저장 실패: %v", err)
	}

	c.logf("✅ 이미지 저장 완료: %s", path)
	return &Result{
		Path:   path,
		URL:    imageURL,
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
	}, nil
}

func hasImageExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// GenerateBlogHeader renders a wide header image in the blog's 1200x630
// share ratio.
func (c *Client) GenerateBlogHeader(topic string) (*Result, error) {
	return c.Generate(Request{
		Prompt:  topic + ", modern minimalist blog header, professional, high quality, no text",
		Width:   1200,
		Height:  630,
		Enhance: true,
		NoLogo:  true,
	})
}

// GenerateThumbnail renders a square thumbnail.
func (c *Client) GenerateThumbnail(topic string) (*Result, error) {
	return c.Generate(Request{
		Prompt:  topic + ", eye-catching thumbnail, vibrant colors, clean design, no text",
		Width:   800,
		Height:  800,
		Enhance: true,
		NoLogo:  true,
	})
}

// GenerateForKoreanTopic maps a Korean topic to an English prompt stem and
// generates with the default blog styling.
func (c *Client) GenerateForKoreanTopic(topic, extraStyle string) (*Result, error) {
	prompt := TranslateTopic(topic)
	if extraStyle != "" {
		prompt += ", " + extraStyle
	}
	return c.Generate(Request{
		Prompt:  prompt + ", modern blog image, professional quality, no text",
		Enhance: true,
		NoLogo:  true,
	})
}

// TranslateTopic returns the English prompt stem for a Korean topic, or the
// topic unchanged when no keyword matches.
func TranslateTopic(topic string) string {
	for kr, en := range koreanTopics {
		if strings.Contains(topic, kr) {
			return en
		}
	}
	return topic
}

// TestConnection probes the endpoint with a tiny request.
func (c *Client) TestConnection() bool {
	probe := &http.Client{Timeout: 10 * time.Second}
	resp, err := probe.Head(c.baseURL + "/test?width=64&height=64")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// CleanOld removes generated images older than the given number of days and
// reports how many were deleted.
func (c *Client) CleanOld(days int) int {
	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)
	matches, err := filepath.Glob(filepath.Join(c.saveDir, "image_*.png"))
	if err != nil {
		return 0
	}

	deleted := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(path) == nil {
			deleted++
		}
	}
	c.logf("🧹 캐시 정리 완료: %d개 파일 삭제", deleted)
	return deleted
}
