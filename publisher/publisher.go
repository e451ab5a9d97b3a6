// Package publisher renders galleries and feedback for output: Markdown for the CLI
// (and terminal rendering via glamour), HTML for the HTTP API.
package publisher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"ai_gallery_simulator/generator"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const previewRunes = 40

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// MarkdownToHTML converts model-written Markdown to HTML. Raw HTML in the input is
// dropped (goldmark default), external links open in a new tab.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return externalLinks(buf.String()), nil
}

var externalLinkRe = regexp.MustCompile(`<a href="(https?://[^"]*)"`)

func externalLinks(html string) string {
	return externalLinkRe.ReplaceAllString(html, `<a href="$1" target="_blank" rel="noopener noreferrer"`)
}

// Digest 压缩空白后截取前 limit 个字符，超出时追加省略号。
func Digest(text string, limit int) string {
	joined := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}
	r := []rune(joined)
	return string(r[:limit]) + "…"
}

// GalleryMarkdown 把画廊渲染成 Markdown：先是帖子列表，再是每篇帖子的正文和评论。
func GalleryMarkdown(g generator.Gallery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", g.Title)

	b.WriteString("| # | 제목 | 글쓴이 | 조회 | 추천 | 댓글 |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for i, p := range g.Posts {
		title := escapeCell(p.Title)
		if p.IsBestPost {
			title = "⭐ " + title
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %d | %d |\n",
			i+1, title, escapeCell(p.Author), p.Views, p.Recommendations, len(p.Comments))
	}
	b.WriteString("\n")

	for i, p := range g.Posts {
		writePost(&b, i+1, p)
	}

	if len(g.Sources) > 0 {
		b.WriteString("## 출처\n\n")
		for _, s := range g.Sources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			if s.URI == "" {
				fmt.Fprintf(&b, "- %s\n", title)
				continue
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, s.URI)
		}
	}
	return b.String()
}

func writePost(b *strings.Builder, n int, p generator.Post) {
	badge := ""
	if p.IsBestPost {
		badge = " [개념글]"
	}
	fmt.Fprintf(b, "## %d. %s%s\n\n", n, p.Title, badge)
	fmt.Fprintf(b, "**%s** · %s · 조회 %d · 추천 %d · 비추 %d\n\n",
		p.Author, formatTime(p.Timestamp), p.Views, p.Recommendations, p.NonRecommendations)
	if preview := Digest(p.Content, previewRunes); preview != "" {
		fmt.Fprintf(b, "> %s\n\n", preview)
	}
	b.WriteString(p.Content)
	b.WriteString("\n\n")

	if len(p.Comments) == 0 {
		return
	}
	fmt.Fprintf(b, "**댓글 %d**\n\n", len(p.Comments))
	for _, c := range p.Comments {
		fmt.Fprintf(b, "- **%s**: %s _(%s, +%d/-%d)_\n",
			c.Author, strings.ReplaceAll(c.Text, "\n", " "), formatTime(c.Timestamp), c.Recommendations, c.NonRecommendations)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("01.02 15:04")
}

// RenderTerminal 用 glamour 渲染 Markdown 到终端；width <= 0 时按 80 列折行。
func RenderTerminal(src string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(src)
}
