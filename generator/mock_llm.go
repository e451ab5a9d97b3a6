package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
)

// MockLLM 离线占位实现，不调用外部模型，用 gofakeit 生成结构合法的假数据。
type MockLLM struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
	// ChunkSize 流式输出每个 chunk 的字节数，<=0 时使用 64。
	ChunkSize int
}

func NewMockLLM(seed int64) *MockLLM {
	return &MockLLM{faker: gofakeit.New(seed)}
}

var requestedCountRe = regexp.MustCompile(`(\d+) (?:new )?comments`)

func (m *MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch prompt.Kind {
	case OpGallery:
		return m.gallery()
	case OpComments, OpFollowUps:
		n := 5
		if mm := requestedCountRe.FindStringSubmatch(prompt.User); mm != nil {
			n, _ = strconv.Atoi(mm[1])
		}
		return m.comments(n)
	case OpEvaluate:
		return fmt.Sprintf(`{"suggestedViews": %d, "suggestedRecommendations": %d, "suggestedNonRecommendations": %d}`,
			m.faker.Number(50, 5000), m.faker.Number(0, 120), m.faker.Number(0, 30)), nil
	default:
		var sb strings.Builder
		sb.WriteString("## 장점\n\n")
		sb.WriteString(m.faker.Sentence(12))
		sb.WriteString("\n\n## 약점\n\n")
		sb.WriteString(m.faker.Sentence(12))
		sb.WriteString("\n\n## 확장 아이디어\n\n- ")
		sb.WriteString(m.faker.Sentence(8))
		sb.WriteString("\n- ")
		sb.WriteString(m.faker.Sentence(8))
		sb.WriteString("\n")
		return sb.String(), nil
	}
}

// Stream 把 Complete 的结果切成固定大小的 chunk；开启搜索时附带一条假引用。
func (m *MockLLM) Stream(ctx context.Context, prompt Prompt) (<-chan Chunk, <-chan error) {
	text, err := m.Complete(ctx, prompt)
	if err != nil {
		return failedStream(err)
	}
	size := m.ChunkSize
	if size <= 0 {
		size = 64
	}
	var source []Source
	if prompt.Search {
		m.mu.Lock()
		source = []Source{{Title: m.faker.Sentence(3), URI: m.faker.URL()}}
		m.mu.Unlock()
	}

	out := make(chan Chunk)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		for i := 0; i < len(text); {
			end := min(i+size, len(text))
			for end < len(text) && !utf8.RuneStart(text[end]) {
				end++
			}
			c := Chunk{Text: text[i:end]}
			if i == 0 {
				c.Sources = source
			}
			i = end
			select {
			case out <- c:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

type mockComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type mockPost struct {
	Title    string        `json:"title"`
	Author   string        `json:"author"`
	Content  string        `json:"content"`
	Comments []mockComment `json:"comments"`
}

func (m *MockLLM) gallery() (string, error) {
	payload := struct {
		GalleryTitle string     `json:"galleryTitle"`
		Posts        []mockPost `json:"posts"`
	}{GalleryTitle: "[mock] 갤러리"}

	lim := DefaultLimits()
	for i := 0; i < lim.Posts; i++ {
		r := lim.Comments
		if i == 0 {
			r = lim.BestComments
		}
		post := mockPost{
			Title:   m.faker.Sentence(5),
			Author:  m.faker.Username(),
			Content: m.faker.Paragraph(1, 3, 10, "\n"),
		}
		for j := m.faker.Number(r.Min, r.Max); j > 0; j-- {
			post.Comments = append(post.Comments, mockComment{Author: m.faker.Username(), Text: m.faker.Sentence(6)})
		}
		payload.Posts = append(payload.Posts, post)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return "```json\n" + string(b) + "\n```", nil
}

func (m *MockLLM) comments(n int) (string, error) {
	out := make([]mockComment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mockComment{Author: m.faker.Username(), Text: m.faker.Sentence(6)})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
