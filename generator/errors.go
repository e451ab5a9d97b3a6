package generator

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultErrorMessage 服务失败时展示给用户的通用提示。
const DefaultErrorMessage = "응답을 처리하는 중 오류가 발생했습니다. 재시도를 해주시고, 지속적으로 발생 시, 개발자에게 알려주시면 감사하겠습니다."

var (
	// ErrMissingCredential 未配置 API key；调用方据此展示持久的配置错误，永不重试。
	ErrMissingCredential = errors.New("API_KEY가 설정되지 않았습니다. 애플리케이션 기능이 제한됩니다. 환경 변수 설정을 확인해주세요.")
	// ErrBusy 同一 session 上已有操作在执行。
	ErrBusy = errors.New("이전 요청을 처리하는 중입니다. 잠시 후 다시 시도해주세요.")
	// ErrPostNotFound 目标帖子不存在。
	ErrPostNotFound = errors.New("게시물을 찾을 수 없습니다.")
	// ErrNoGallery session 还没有生成画廊。
	ErrNoGallery = errors.New("갤러리가 아직 생성되지 않았습니다.")
)

// Operation 编排层的操作名，同时用作日志字段和指标标签。
type Operation string

const (
	OpGallery   Operation = "gallery"
	OpComments  Operation = "comments"
	OpFollowUps Operation = "follow_ups"
	OpEvaluate  Operation = "evaluation"
	OpFeedback  Operation = "worldview_feedback"
)

func (op Operation) failureContext() string {
	switch op {
	case OpGallery:
		return "AI 서비스 접속 또는 데이터 파싱 오류"
	case OpComments:
		return "AI 댓글 생성 서비스 접속 또는 데이터 파싱 오류"
	case OpFollowUps:
		return "AI 후속 댓글 생성 서비스 접속 또는 데이터 파싱 오류"
	case OpEvaluate:
		return "AI 게시물 평가 서비스 접속 또는 데이터 파싱 오류"
	case OpFeedback:
		return "AI 피드백 생성 서비스 접속 오류"
	default:
		return "AI 서비스 접속 오류"
	}
}

// ServiceError 传输或服务端失败（重试耗尽后）。
type ServiceError struct {
	Op  Operation
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s (%s)", DefaultErrorMessage, e.Op.failureContext())
}

func (e *ServiceError) Unwrap() error { return e.Err }

type DecodeKind int

const (
	DecodeParse DecodeKind = iota
	DecodeShape
)

// DecodeError 模型输出无法解析或结构不符。
type DecodeError struct {
	Context string
	Kind    DecodeKind
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Kind == DecodeShape {
		return fmt.Sprintf("AI 응답이 기대하는 %s 구조와 일치하지 않습니다.", e.Context)
	}
	return fmt.Sprintf("AI %s 응답 JSON 파싱에 실패했습니다. (문법 오류 또는 불완전한 데이터)", e.Context)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 用户输入不合法，在任何外部调用之前返回。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, " ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func newValidationError(field, msg string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// IsCredentialError reports whether err (or anything it wraps) is ErrMissingCredential.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}
