package gemini

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultSystemPrompt = "당신은 네이버 블로그 전문 작가입니다."

const defaultBlogPrompt = `다음 조건에 맞는 블로그 글을 작성해주세요:

[주제] {{.Topic}}
[카테고리] {{.Category}}
[키워드] {{.Keywords}}

[작성 조건]
1. {{.EmojiInstruction}} 친근하고 읽기 쉬운 문체로 작성
2. 글 길이: {{.MinLength}}~{{.MaxLength}}자
3. 서론, 본론, 결론 구조로 작성
4. 소제목(##)을 3-5개 사용하여 가독성 높이기
5. 실용적인 정보와 팁 포함
6. 독자가 공감할 수 있는 경험담이나 예시 포함
7. 마지막에 독자 참여를 유도하는 질문 추가

[출력 형식]
제목: (흥미로운 제목)

(본문 내용)

태그: (쉼표로 구분된 5-7개 태그)
`

const defaultReferencePrompt = `아래 참고 자료를 바탕으로 블로그 글을 작성해주세요.
참고 자료를 그대로 옮기지 말고, 핵심을 재구성해서 새로운 글로 써주세요.

[주제] {{.Topic}}
[카테고리] {{.Category}}
[키워드] {{.Keywords}}

[참고 자료]
{{.Reference}}

[작성 조건]
1. {{.EmojiInstruction}} 친근하고 읽기 쉬운 문체로 작성
2. 글 길이: {{.MinLength}}~{{.MaxLength}}자
3. 소제목(##)으로 단락 구분

[출력 형식]
제목: (흥미로운 제목)

(본문 내용)

태그: (쉼표로 구분된 5-7개 태그)
`

const defaultTitlePrompt = `다음 주제에 대한 네이버 블로그 제목을 {{.Count}}개 제안해주세요.
클릭을 유도하는 매력적인 제목으로 작성해주세요.

주제: {{.Topic}}

형식: 번호. 제목
`

const defaultImagePromptPrompt = `Create an English image generation prompt for the following topic.
The prompt should describe a visually appealing blog header image.

Topic: {{.Topic}}
Style: {{.Style}}

Requirements:
- Write in English only
- Be descriptive but concise (under 100 words)
- Focus on visual elements, colors, and composition
- No text or words in the image
- Professional blog quality

Output only the prompt, nothing else.`

const defaultImprovePrompt = `다음 블로그 글을 개선해주세요.

[개선 방향]
{{.Instruction}}

[원본 글]
{{.Content}}

[출력]
개선된 글만 출력 (설명 없이)`

// Prompts holds the instruction templates fed to the model. All fields are
// {{.Var}} substitution templates; an optional YAML file overrides any subset.
type Prompts struct {
	System      string `yaml:"system"`
	BlogPost    string `yaml:"blog_post"`
	Reference   string `yaml:"reference"`
	Titles      string `yaml:"titles"`
	ImagePrompt string `yaml:"image_prompt"`
	Improve     string `yaml:"improve"`
}

// DefaultPrompts returns the built-in Korean templates.
func DefaultPrompts() *Prompts {
	return &Prompts{
		System:      defaultSystemPrompt,
		BlogPost:    defaultBlogPrompt,
		Reference:   defaultReferencePrompt,
		Titles:      defaultTitlePrompt,
		ImagePrompt: defaultImagePromptPrompt,
		Improve:     defaultImprovePrompt,
	}
}

// LoadPrompts reads a YAML override file on top of the defaults. Empty fields
// keep their built-in value.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}

	p := DefaultPrompts()
	merge := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	merge(&p.System, override.System)
	merge(&p.BlogPost, override.BlogPost)
	merge(&p.Reference, override.Reference)
	merge(&p.Titles, override.Titles)
	merge(&p.ImagePrompt, override.ImagePrompt)
	merge(&p.Improve, override.Improve)
	return p, nil
}

// render substitutes {{.Key}} variables into a template.
func render(template string, vars map[string]string) string {
	out := template
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{{."+key+"}}", val)
	}
	return out
}
