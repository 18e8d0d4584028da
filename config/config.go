// Package config reads the ini settings file.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config holds everything the posting workflow needs from disk.
type Config struct {
	Naver   NaverConfig
	Gemini  GeminiConfig
	Posting PostingConfig
}

type NaverConfig struct {
	ID       string
	Password string
	// BlogID overrides the blog address when it differs from the login id.
	BlogID string
}

type GeminiConfig struct {
	APIKey string
	RPM    int
	// PromptFile optionally overrides the built-in Korean templates.
	PromptFile string
}

type PostingConfig struct {
	Category  string
	Keywords  []string
	UseImage  bool
	UseEmoji  bool
	Headless  bool
	MinLength int
	MaxLength int
	// PostDelay is the pause between batch posts, in seconds.
	PostDelay  int
	MaxRetries int
}

// Load reads and validates the config file.
func Load(filename string) (*Config, error) {
	file, err := ini.Load(filename)
	if err != nil {
		return nil, fmt.Errorf("설정 파일을 읽을 수 없습니다 (%s): %v", filename, err)
	}

	naver := file.Section("naver")
	gemini := file.Section("gemini")
	posting := file.Section("posting")

	cfg := &Config{
		Naver: NaverConfig{
			ID:       naver.Key("id").String(),
			Password: naver.Key("pw").String(),
			BlogID:   naver.Key("blog_id").String(),
		},
		Gemini: GeminiConfig{
			APIKey:     gemini.Key("api_key").String(),
			RPM:        gemini.Key("rpm").MustInt(10),
			PromptFile: gemini.Key("prompt_file").String(),
		},
		Posting: PostingConfig{
			Category:   posting.Key("category").MustString("직접입력"),
			Keywords:   posting.Key("keywords").Strings(","),
			UseImage:   posting.Key("use_image").MustBool(true),
			UseEmoji:   posting.Key("use_emoji").MustBool(true),
			Headless:   posting.Key("headless").MustBool(false),
			MinLength:  posting.Key("min_length").MustInt(1500),
			MaxLength:  posting.Key("max_length").MustInt(3000),
			PostDelay:  posting.Key("post_delay").MustInt(5),
			MaxRetries: posting.Key("max_retries").MustInt(3),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Naver.ID == "" {
		return fmt.Errorf("설정 오류: naver.id가 비어 있습니다")
	}
	if c.Naver.Password == "" {
		return fmt.Errorf("설정 오류: naver.pw가 비어 있습니다")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("설정 오류: gemini.api_key가 비어 있습니다")
	}
	if c.Posting.MinLength > c.Posting.MaxLength {
		return fmt.Errorf("설정 오류: min_length가 max_length보다 큽니다")
	}
	return nil
}

// WriteTemplate creates a commented starter config at the path.
func WriteTemplate(filename string) error {
	file := ini.Empty()

	naver := file.Section("naver")
	naver.Key("id").SetValue("your_naver_id")
	naver.Key("pw").SetValue("your_password")
	naver.Key("blog_id").SetValue("")

	gemini := file.Section("gemini")
	gemini.Key("api_key").SetValue("YOUR_GEMINI_API_KEY")
	gemini.Key("rpm").SetValue("10")

	posting := file.Section("posting")
	posting.Key("category").SetValue("IT/테크")
	posting.Key("keywords").SetValue("")
	posting.Key("use_image").SetValue("true")
	posting.Key("use_emoji").SetValue("true")
	posting.Key("headless").SetValue("false")
	posting.Key("min_length").SetValue("1500")
	posting.Key("max_length").SetValue("3000")
	posting.Key("post_delay").SetValue("5")
	posting.Key("max_retries").SetValue("3")

	return file.SaveTo(filename)
}
