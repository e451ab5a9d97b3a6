package generator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator 用 json 名作为字段名，错误信息按 json 名查表。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldMessages 字段 -> 规则 -> 韩文提示，{n} 替换为规则参数。
var fieldMessages = map[string]map[string]string{
	"topic": {
		"required": "주제를 입력해주세요.",
		"max":      "갤러리 주제는 {n}자 이내로 입력해주세요.",
	},
	"discussionContext": {"max": "현재 논의중인 내용은 {n}자 이내로 입력해주세요."},
	"worldview":         {"oneof": "알 수 없는 세계관입니다."},
	"customWorldview": {
		"required_if": "직접 입력 세계관 설명을 입력해주세요.",
		"max":         "세계관 설명은 {n}자 이내로 입력해주세요.",
	},
	"species":     {"max": "사용자 종족은 {n}자 이내로 입력해주세요."},
	"affiliation": {"max": "사용자 소속은 {n}자 이내로 입력해주세요."},
	"nickname": {
		"required_if": "고정 닉네임을 입력해주세요.",
		"max":         "닉네임은 {n}자 이내로 입력해주세요.",
	},
	"reputation": {
		"min": "평판은 0에서 100 사이여야 합니다.",
		"max": "평판은 0에서 100 사이여야 합니다.",
	},
	"title": {
		"required": "제목을 입력해주세요.",
		"max":      "제목은 {n}자 이내로 입력해주세요.",
	},
	"content": {
		"required": "내용을 입력해주세요.",
		"max":      "내용은 {n}자 이내로 입력해주세요.",
	},
	"author": {
		"required": "닉네임을 입력해주세요.",
		"max":      "닉네임이 너무 깁니다.",
	},
	"text": {
		"required": "댓글 내용을 입력해주세요.",
		"max":      "댓글은 {n}자 이내로 입력해주세요.",
	},
	"replyTo": {"max": "답글 대상 닉네임이 너무 깁니다."},
}

// validateStruct 运行 tag 校验并把 validator 的错误转成 ValidationError。
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.add(fe.Field(), fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()][fe.Tag()]; ok {
		return strings.ReplaceAll(msg, "{n}", fe.Param())
	}
	return fe.Field() + " 값이 올바르지 않습니다."
}

// Validate 检查表单输入，错误信息与前端一致（韩文）。前后空白不计入长度。
func (s Settings) Validate() error {
	s.Topic = strings.TrimSpace(s.Topic)
	s.DiscussionContext = strings.TrimSpace(s.DiscussionContext)
	s.CustomWorldview = strings.TrimSpace(s.CustomWorldview)
	s.Species = strings.TrimSpace(s.Species)
	s.Affiliation = strings.TrimSpace(s.Affiliation)
	if s.User != nil {
		u := *s.User
		u.Nickname = strings.TrimSpace(u.Nickname)
		s.User = &u
	}
	return validateStruct(s)
}

func (u UserProfile) Validate() error {
	u.Nickname = strings.TrimSpace(u.Nickname)
	return validateStruct(u)
}

// Validate 检查用户帖子草稿。
func (d PostDraft) Validate() error {
	return validateStruct(d.trimmed())
}

func (d PostDraft) trimmed() PostDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Author = strings.TrimSpace(d.Author)
	d.Content = strings.TrimSpace(d.Content)
	return d
}

func (c CommentDraft) Validate() error {
	return validateStruct(c.trimmed())
}

func (c CommentDraft) trimmed() CommentDraft {
	c.Author = strings.TrimSpace(c.Author)
	c.Text = strings.TrimSpace(c.Text)
	c.ReplyTo = strings.TrimSpace(c.ReplyTo)
	return c
}

// FinalText 回复时在正文前加 "@作者 "。
func (c CommentDraft) FinalText() string {
	c = c.trimmed()
	if c.ReplyTo == "" {
		return c.Text
	}
	return "@" + c.ReplyTo + " " + c.Text
}
