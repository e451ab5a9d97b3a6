package generator

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// 解码错误里携带的上下文名，直接出现在给用户的提示中。
const (
	contextGallery    = "갤러리 데이터"
	contextComments   = "댓글 배열"
	contextEvaluation = "평가 지표"
)

const anonymousAuthor = "익명"

var (
	fenceRe = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)\\s*```")

	errInvalidJSON = errors.New("invalid json")
	errShape       = errors.New("unexpected json shape")

	// 模型经常换用的字段名，按优先级排列。
	authorKeys = []string{"author", "nickname", "user", "username"}
	textKeys   = []string{"text", "content", "comment", "message"}
)

// ExtractJSON 从模型原始输出中截出 JSON 文本：
// 优先取代码块内部，再按首个 { 或 [ 截到最后一个对应的括号，最后去掉 // 注释。
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(s); m != nil && m[1] != "" {
		s = strings.TrimSpace(m[1])
	}

	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')
	start, closer := -1, byte('}')
	switch {
	case obj >= 0 && (arr < 0 || obj < arr):
		start = obj
	case arr >= 0:
		start, closer = arr, ']'
	}
	if start >= 0 {
		if end := strings.LastIndexByte(s, closer); end > start {
			s = s[start : end+1]
		}
	}
	return stripLineComments(s)
}

// stripLineComments 删除字符串字面量之外、且前一个字符不是 ':' 的 // 注释（保留 URL）。
func stripLineComments(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			inString, escaped = false, false
			b.WriteByte(c)
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' && (i == 0 || s[i-1] != ':') {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			i--
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func parseProtected(text, context string) (gjson.Result, error) {
	js := ExtractJSON(text)
	if js == "" || !gjson.Valid(js) {
		return gjson.Result{}, &DecodeError{Context: context, Kind: DecodeParse, Err: errInvalidJSON}
	}
	return gjson.Parse(js), nil
}

// DecodeGallery 需要字符串 galleryTitle 和非空的 posts 数组。
func DecodeGallery(text string) (RawGallery, error) {
	root, err := parseProtected(text, contextGallery)
	if err != nil {
		return RawGallery{}, err
	}
	title := root.Get("galleryTitle")
	posts := root.Get("posts")
	if !root.IsObject() || title.Type != gjson.String || !posts.IsArray() {
		return RawGallery{}, &DecodeError{Context: contextGallery, Kind: DecodeShape, Err: errShape}
	}

	out := RawGallery{Title: title.String()}
	for _, p := range posts.Array() {
		if !p.IsObject() {
			continue
		}
		rp := RawPost{
			Title:   coerceString(p.Get("title")),
			Author:  coerceString(p.Get("author")),
			Content: coerceString(p.Get("content")),
		}
		for _, c := range p.Get("comments").Array() {
			if rc, ok := normalizeComment(c); ok {
				rp.Comments = append(rp.Comments, rc)
			}
		}
		out.Posts = append(out.Posts, rp)
	}
	if len(out.Posts) == 0 {
		return RawGallery{}, &DecodeError{Context: contextGallery, Kind: DecodeShape, Err: errors.New("empty post list")}
	}
	return out, nil
}

// DecodeComments 接受数组或包了一层数组的对象；缺少文本的元素直接丢弃。
func DecodeComments(text string) ([]RawComment, error) {
	root, err := parseProtected(text, contextComments)
	if err != nil {
		return nil, err
	}

	list := findCommentArray(root)
	out := make([]RawComment, 0, len(list))
	for _, item := range list {
		rc, ok := normalizeComment(item)
		if !ok || rc.Text == "" {
			continue
		}
		out = append(out, rc)
	}
	return out, nil
}

func findCommentArray(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	if !root.IsObject() {
		return nil
	}
	for _, key := range []string{"comments", "replies"} {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	var found []gjson.Result
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsArray() {
			found = v.Array()
			return false
		}
		return true
	})
	return found
}

func normalizeComment(item gjson.Result) (RawComment, bool) {
	if !item.IsObject() {
		return RawComment{}, false
	}
	author := firstValue(item, authorKeys)
	if author == "" {
		author = anonymousAuthor
	}
	return RawComment{Author: author, Text: firstValue(item, textKeys)}, true
}

func firstValue(item gjson.Result, keys []string) string {
	for _, k := range keys {
		if s := coerceString(item.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func coerceString(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.False:
		return ""
	default:
		if v.Type == gjson.Number && v.Num == 0 {
			return ""
		}
		return v.String()
	}
}

// DecodeEvaluation 三个指标必须是数字；数字字符串也接受。
func DecodeEvaluation(text string) (Evaluation, error) {
	root, err := parseProtected(text, contextEvaluation)
	if err != nil {
		return Evaluation{}, err
	}
	shapeErr := &DecodeError{Context: contextEvaluation, Kind: DecodeShape, Err: errShape}
	if !root.IsObject() {
		return Evaluation{}, shapeErr
	}

	var ev Evaluation
	fields := []struct {
		key string
		dst *int
	}{
		{"suggestedViews", &ev.Views},
		{"suggestedRecommendations", &ev.Recommendations},
		{"suggestedNonRecommendations", &ev.NonRecommendations},
	}
	for _, f := range fields {
		n, ok := coerceInt(root.Get(f.key))
		if !ok {
			return Evaluation{}, shapeErr
		}
		*f.dst = n
	}
	return ev, nil
}

func coerceInt(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		return int(math.Round(v.Num)), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	default:
		return 0, false
	}
}
