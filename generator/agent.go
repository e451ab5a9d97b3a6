package generator

import (
	"context"
	"errors"
	"strings"
	"time"

	"ai_gallery_simulator/metrics"

	"go.uber.org/zap"
)

// Stage 一次生成操作所处的阶段，供前端展示状态。
type Stage string

const (
	StageIdle           Stage = "idle"
	StageRequesting     Stage = "requesting"
	StageStreaming      Stage = "streaming"
	StageDecoding       Stage = "decoding"
	StagePostProcessing Stage = "post_processing"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// StageFunc 阶段变化回调，在调用 goroutine 上同步执行。
type StageFunc func(op Operation, stage Stage)

// Agent 编排 prompt 构建、模型调用、解码与后处理。
type Agent struct {
	llm     LLMClient
	pp      *PostProcessor
	retry   RetryPolicy
	rng     Rand
	logger  *zap.Logger
	onStage StageFunc
}

type AgentOption func(*Agent)

func WithLogger(l *zap.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithPostProcessor(p *PostProcessor) AgentOption {
	return func(a *Agent) {
		if p != nil {
			a.pp = p
		}
	}
}

func WithRetryPolicy(p RetryPolicy) AgentOption {
	return func(a *Agent) { a.retry = p }
}

// WithPromptRand 控制评论数量等 prompt 内随机项。
func WithPromptRand(r Rand) AgentOption {
	return func(a *Agent) {
		if r != nil {
			a.rng = r
		}
	}
}

func WithStageHook(f StageFunc) AgentOption {
	return func(a *Agent) { a.onStage = f }
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{
		llm:    llm,
		pp:     NewPostProcessor(),
		retry:  DefaultRetryPolicy(),
		rng:    globalRand{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Agent) PostProcessor() *PostProcessor { return a.pp }

// CreateGallery 流式生成整个画廊。onChunk 按到达顺序收到文本增量，可为 nil。
// 不重试：失败后由用户决定是否重新生成。
func (a *Agent) CreateGallery(ctx context.Context, s Settings, onChunk func(string)) (Gallery, error) {
	s = s.Normalized()
	if err := s.Validate(); err != nil {
		return Gallery{}, err
	}
	start := time.Now()
	log := a.logger.With(zap.String("op", string(OpGallery)), zap.String("model", s.Model))

	a.stage(ctx, OpGallery, StageRequesting)
	metrics.GenerationAttempts.WithLabelValues(string(OpGallery)).Inc()
	chunks, errc := a.llm.Stream(ctx, BuildGalleryPrompt(s, a.pp.Limits()))

	a.stage(ctx, OpGallery, StageStreaming)
	var (
		sb      strings.Builder
		sources []Source
	)
	for c := range chunks {
		metrics.StreamChunks.Inc()
		sb.WriteString(c.Text)
		sources = append(sources, c.Sources...)
		if onChunk != nil && c.Text != "" {
			onChunk(c.Text)
		}
	}
	if err := <-errc; err != nil {
		return Gallery{}, a.fail(ctx, OpGallery, start, err)
	}
	log.Debug("stream finished", zap.Int("bytes", sb.Len()), zap.Int("sources", len(sources)))

	a.stage(ctx, OpGallery, StageDecoding)
	raw, err := DecodeGallery(sb.String())
	if err != nil {
		return Gallery{}, a.fail(ctx, OpGallery, start, err)
	}

	a.stage(ctx, OpGallery, StagePostProcessing)
	g := a.pp.BuildGallery(raw, s, sources)
	a.done(ctx, OpGallery, start)
	log.Info("gallery generated", zap.Int("posts", len(g.Posts)), zap.Int("decoded", len(raw.Posts)))
	return g, nil
}

// GenerateComments 为帖子草稿生成一批评论（lo..hi 条）。
func (a *Agent) GenerateComments(ctx context.Context, s Settings, draft PostDraft, lo, hi int) ([]RawComment, error) {
	s = s.Normalized()
	prompt, n := BuildCommentPrompt(s, draft, lo, hi, a.rng)
	start := time.Now()
	out, err := withRetry(ctx, a, OpComments, prompt, DecodeComments)
	if err != nil {
		return nil, a.fail(ctx, OpComments, start, err)
	}
	a.done(ctx, OpComments, start)
	a.logger.Info("comments generated", zap.Int("requested", n), zap.Int("received", len(out)))
	return out, nil
}

// GenerateFollowUps 根据最近的评论生成后续评论；帖子已满时不调用模型。
func (a *Agent) GenerateFollowUps(ctx context.Context, s Settings, post Post) ([]Comment, error) {
	room := a.pp.Room(post)
	if room == 0 {
		return nil, nil
	}
	s = s.Normalized()
	lim := a.pp.Limits().FollowUps
	hi := min(lim.Max, room)
	lo := min(lim.Min, hi)
	prompt, n := BuildFollowUpPrompt(s, post, post.Comments, lo, hi, a.rng)

	start := time.Now()
	raw, err := withRetry(ctx, a, OpFollowUps, prompt, DecodeComments)
	if err != nil {
		return nil, a.fail(ctx, OpFollowUps, start, err)
	}
	a.done(ctx, OpFollowUps, start)
	out := a.pp.BuildFollowUps(post, raw, room)
	a.logger.Info("follow-ups generated", zap.String("post", post.ID), zap.Int("requested", n), zap.Int("kept", len(out)))
	return out, nil
}

// EvaluatePost 让模型给用户帖子打分（浏览/推荐/反对）。
func (a *Agent) EvaluatePost(ctx context.Context, s Settings, draft PostDraft) (Evaluation, error) {
	s = s.Normalized()
	start := time.Now()
	ev, err := withRetry(ctx, a, OpEvaluate, BuildEvaluationPrompt(s, draft), DecodeEvaluation)
	if err != nil {
		return Evaluation{}, a.fail(ctx, OpEvaluate, start, err)
	}
	a.done(ctx, OpEvaluate, start)
	return ev, nil
}

// AddUserPost 评估 -> 按是否精华决定评论数量 -> 组装帖子。
func (a *Agent) AddUserPost(ctx context.Context, s Settings, draft PostDraft) (Post, error) {
	if err := draft.Validate(); err != nil {
		return Post{}, err
	}
	ev, err := a.EvaluatePost(ctx, s, draft)
	if err != nil {
		return Post{}, err
	}
	lim := a.pp.Limits()
	r := lim.commentRange(ev.Recommendations >= lim.BestThreshold)
	raw, err := a.GenerateComments(ctx, s, draft, r.Min, r.Max)
	if err != nil {
		return Post{}, err
	}
	return a.pp.BuildUserPost(draft, ev, raw), nil
}

// WorldviewFeedback 对自定义世界观给出 Markdown 格式的评价。
func (a *Agent) WorldviewFeedback(ctx context.Context, s Settings, g Gallery) (string, error) {
	s = s.Normalized()
	if s.Worldview != WorldviewCustom || strings.TrimSpace(s.CustomWorldview) == "" {
		return "", newValidationError("customWorldview", "세계관 피드백은 직접 입력한 세계관에서만 받을 수 있습니다.")
	}
	start := time.Now()
	text, err := withRetry(ctx, a, OpFeedback, BuildWorldviewFeedbackPrompt(s, g), func(text string) (string, error) {
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errors.New("empty feedback")
		}
		return text, nil
	})
	if err != nil {
		return "", a.fail(ctx, OpFeedback, start, err)
	}
	a.done(ctx, OpFeedback, start)
	return text, nil
}

// withRetry 非流式调用 + 解码，整体按 RetryPolicy 重试。
func withRetry[T any](ctx context.Context, a *Agent, op Operation, prompt Prompt, decode func(string) (T, error)) (T, error) {
	return Retry(ctx, a.retry, Retryable, func(ctx context.Context, attempt int) (T, error) {
		var zero T
		metrics.GenerationAttempts.WithLabelValues(string(op)).Inc()
		a.stage(ctx, op, StageRequesting)
		text, err := a.llm.Complete(ctx, prompt)
		if err != nil {
			a.logger.Warn("llm call failed", zap.String("op", string(op)), zap.Int("attempt", attempt), zap.Error(err))
			return zero, err
		}
		a.stage(ctx, op, StageDecoding)
		v, err := decode(text)
		if err != nil {
			a.logger.Warn("decode failed", zap.String("op", string(op)), zap.Int("attempt", attempt), zap.Error(err))
			return zero, err
		}
		return v, nil
	})
}

type stageKey struct{}

// ContextWithStageHook 附加一个只对本次调用生效的阶段回调（如 SSE 推送）。
func ContextWithStageHook(ctx context.Context, f StageFunc) context.Context {
	return context.WithValue(ctx, stageKey{}, f)
}

func (a *Agent) stage(ctx context.Context, op Operation, st Stage) {
	if a.onStage != nil {
		a.onStage(op, st)
	}
	if f, ok := ctx.Value(stageKey{}).(StageFunc); ok && f != nil {
		f(op, st)
	}
}

func (a *Agent) done(ctx context.Context, op Operation, start time.Time) {
	metrics.GenerationRequests.WithLabelValues(string(op), "ok").Inc()
	metrics.GenerationLatency.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	a.stage(ctx, op, StageDone)
}

// fail 记录失败并归类错误：凭证、解码、校验错误原样返回，其余包装成 ServiceError。
func (a *Agent) fail(ctx context.Context, op Operation, start time.Time, err error) error {
	outcome, out := classify(op, err)
	metrics.GenerationRequests.WithLabelValues(string(op), outcome).Inc()
	metrics.GenerationLatency.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	a.stage(ctx, op, StageFailed)
	a.logger.Error("generation failed", zap.String("op", string(op)), zap.String("outcome", outcome), zap.Error(err))
	return out
}

func classify(op Operation, err error) (string, error) {
	var (
		derr *DecodeError
		verr *ValidationError
		serr *ServiceError
	)
	switch {
	case IsCredentialError(err):
		return "credential", err
	case errors.As(err, &derr):
		return "decode", err
	case errors.As(err, &verr):
		return "validation", err
	case errors.As(err, &serr):
		return "service", err
	case errors.Is(err, context.Canceled):
		return "canceled", &ServiceError{Op: op, Err: err}
	default:
		return "service", &ServiceError{Op: op, Err: err}
	}
}
