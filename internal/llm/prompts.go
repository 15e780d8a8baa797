package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const defaultTagPrompt = `你是一個專業的新聞分析師。請從以下新聞中提取 3-5 個關鍵標籤。

標籤應該：
1. 反映新聞的核心主題和產業領域
2. 包含可能激發商業靈感的關鍵詞
3. 簡潔明確，每個標籤 2-4 個字

新聞標題：{{.Title}}
新聞摘要：{{.Summary}}

請直接輸出標籤，用逗號分隔，不要加任何額外說明。
範例輸出：人工智慧, 醫療科技, 數據分析, 創業投資`

const defaultIdeaPrompt = "你是一位創新商業顧問，專門將看似無關的新聞趨勢結合成獨特的商業構想。\n\n" +
	"## 你的任務\n根據以下兩則新聞的標籤，創造一個結合兩者元素的創新商業點子。\n\n" +
	"## 新聞 A\n標題：{{.TitleA}}\n標籤：{{.TagsA}}\n\n" +
	"## 新聞 B\n標題：{{.TitleB}}\n標籤：{{.TagsB}}\n\n" +
	"## 輸出格式（請嚴格遵守）\n```\n" +
	"點子名稱：[一句話標題，最多 20 字]\n\n" +
	"概念說明：\n[用 2-3 句話說明這個商業構想的核心價值主張]\n\n" +
	"目標客群：\n[明確指出誰會為這個產品/服務付費]\n\n" +
	"獲利模式：\n[說明如何賺錢，包含定價策略]\n\n" +
	"競爭優勢：\n[為什麼這個構想難以被複製]\n\n" +
	"第一步行動：\n[明天就能開始做的具體行動]\n```\n\n" +
	"請確保點子具有可執行性，不是空泛的構想。"

const defaultAuditPrompt = `你是一位極度挑剔的風險投資人，專門找出商業構想的漏洞。

你的性格：
- 尖酸刻薄但不惡毒
- 直接了當不繞彎子
- 關心的是真實的風險，不是理論上的問題

## 要審計的點子
{{.Content}}

## 你的任務
提出 5 個最狠的問題，挑戰這個構想的可行性。

## 輸出格式
每個問題一行，以「🔥」開頭，簡短有力（每個問題最多 50 字）。

範例：
🔥 你打算怎麼獲取第一批用戶？冷啟動問題怎麼解決？
🔥 為什麼大公司不能明天就複製你？
🔥 單位經濟合理嗎？客戶獲取成本 vs 終身價值？`

// TagPromptData feeds the tag extraction template.
type TagPromptData struct {
	Title   string
	Summary string
}

// IdeaPromptData feeds the idea synthesis template. Tags are comma-joined strings.
type IdeaPromptData struct {
	TitleA string
	TagsA  string
	TitleB string
	TagsB  string
}

// AuditPromptData feeds the devil audit template.
type AuditPromptData struct {
	Content string
}

// PromptOverrides replaces individual templates; empty strings keep the defaults.
type PromptOverrides struct {
	Tags  string
	Idea  string
	Audit string
}

// Prompts holds the parsed prompt templates.
type Prompts struct {
	tags  *template.Template
	idea  *template.Template
	audit *template.Template
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	p, err := NewPrompts(PromptOverrides{})
	if err != nil {
		panic(err)
	}
	return p
}

// NewPrompts parses the templates, applying any overrides.
func NewPrompts(o PromptOverrides) (*Prompts, error) {
	parse := func(name, override, def string) (*template.Template, error) {
		src := def
		if strings.TrimSpace(override) != "" {
			src = override
		}
		t, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s prompt: %w", name, err)
		}
		return t, nil
	}
	var (
		p   Prompts
		err error
	)
	if p.tags, err = parse("tags", o.Tags, defaultTagPrompt); err != nil {
		return nil, err
	}
	if p.idea, err = parse("idea", o.Idea, defaultIdeaPrompt); err != nil {
		return nil, err
	}
	if p.audit, err = parse("audit", o.Audit, defaultAuditPrompt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Tags renders the tag extraction prompt.
func (p *Prompts) Tags(d TagPromptData) (string, error) {
	return render(p.tags, d)
}

// Idea renders the idea synthesis prompt.
func (p *Prompts) Idea(d IdeaPromptData) (string, error) {
	return render(p.idea, d)
}

// Audit renders the devil audit prompt.
func (p *Prompts) Audit(d AuditPromptData) (string, error) {
	return render(p.audit, d)
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
