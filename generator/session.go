package generator

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Persister 持久化当前画廊、设置和用户资料。store.Repository 实现该接口。
type Persister interface {
	SaveGallery(ctx context.Context, g Gallery) error
	SaveSettings(ctx context.Context, s Settings) error
	SaveProfile(ctx context.Context, u UserProfile) error
}

// Snapshot session 状态的只读副本。
type Snapshot struct {
	ID        string    `json:"id"`
	Settings  Settings  `json:"settings"`
	Gallery   *Gallery  `json:"gallery,omitempty"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session 持有一个画廊及其设置。同一时间只允许一个生成操作，
// 画廊只通过整体替换更新，读者拿到的副本不会被后续操作修改。
type Session struct {
	ID string

	agent  *Agent
	store  Persister
	logger *zap.Logger

	busy sync.Mutex

	mu        sync.RWMutex
	settings  Settings
	gallery   *Gallery
	feedback  string
	createdAt time.Time
	updatedAt time.Time
}

type SessionOption func(*Session)

// WithPersister store 为 nil 时不持久化。
func WithPersister(p Persister) SessionOption {
	return func(s *Session) { s.store = p }
}

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGallery 从持久化数据恢复已有画廊。
func WithGallery(g Gallery) SessionOption {
	return func(s *Session) {
		c := g.Clone()
		s.gallery = &c
	}
}

// NewSession 创建 session，尚未生成画廊。
func NewSession(id string, settings Settings, agent *Agent, opts ...SessionOption) *Session {
	now := time.Now()
	s := &Session{
		ID:        id,
		agent:     agent,
		logger:    zap.NewNop(),
		settings:  settings.Normalized(),
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", id))
	return s
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ID:        s.ID,
		Settings:  s.settings.Normalized(),
		Feedback:  s.feedback,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.gallery != nil {
		g := s.gallery.Clone()
		snap.Gallery = &g
	}
	return snap
}

func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Normalized()
}

// Generate 生成新画廊并替换当前画廊；失败时保留旧画廊。
func (s *Session) Generate(ctx context.Context, onChunk func(string)) (Gallery, error) {
	if !s.busy.TryLock() {
		return Gallery{}, ErrBusy
	}
	defer s.busy.Unlock()

	settings := s.Settings()
	g, err := s.agent.CreateGallery(ctx, settings, onChunk)
	if err != nil {
		return Gallery{}, err
	}
	s.mu.Lock()
	s.feedback = ""
	s.mu.Unlock()
	s.publish(ctx, g)
	s.persistSettings(ctx, settings)
	return g.Clone(), nil
}

// AddPost 用户发帖：评估并生成评论后插到列表最前面。
func (s *Session) AddPost(ctx context.Context, draft PostDraft) (Post, error) {
	if !s.busy.TryLock() {
		return Post{}, ErrBusy
	}
	defer s.busy.Unlock()

	g, settings, err := s.current()
	if err != nil {
		return Post{}, err
	}
	if strings.TrimSpace(draft.Author) == "" {
		draft.Author = s.authorName(settings)
	}
	post, err := s.agent.AddUserPost(ctx, settings, draft)
	if err != nil {
		return Post{}, err
	}
	// 生成期间画廊不会被替换（busy 锁），在当前副本上插入即可
	g.Posts = append([]Post{post}, g.Posts...)
	s.publish(ctx, g)
	return post.clone(), nil
}

// AddComment 先追加并持久化用户评论，再请求后续评论。
// 后续评论失败时返回已包含用户评论的帖子和错误，用户评论不会回滚。
func (s *Session) AddComment(ctx context.Context, postID string, draft CommentDraft) (Post, error) {
	if !s.busy.TryLock() {
		return Post{}, ErrBusy
	}
	defer s.busy.Unlock()

	g, settings, err := s.current()
	if err != nil {
		return Post{}, err
	}
	idx, ok := g.FindPost(postID)
	if !ok {
		return Post{}, ErrPostNotFound
	}
	if strings.TrimSpace(draft.Author) == "" {
		draft.Author = s.authorName(settings)
	}
	if err := draft.Validate(); err != nil {
		return Post{}, err
	}
	pp := s.agent.PostProcessor()
	post := g.Posts[idx]
	if pp.Room(post) == 0 {
		return Post{}, newValidationError("text", "댓글은 게시물당 최대 30개까지 달 수 있습니다.")
	}

	comment := pp.NewUserComment(post, strings.TrimSpace(draft.Author), draft.FinalText())
	post = pp.AppendComments(post, []Comment{comment})
	g.Posts[idx] = post
	s.publish(ctx, g)

	followUps, err := s.agent.GenerateFollowUps(ctx, settings, post)
	if err != nil {
		s.logger.Warn("follow-up comments failed; keeping user comment", zap.String("post", postID), zap.Error(err))
		return post.clone(), err
	}
	if len(followUps) == 0 {
		return post.clone(), nil
	}
	g = g.Clone()
	post = pp.AppendComments(post, followUps)
	g.Posts[idx] = post
	s.publish(ctx, g)
	return post.clone(), nil
}

// WorldviewFeedback 对当前自定义世界观请求反馈，结果缓存在 session 上。
func (s *Session) WorldviewFeedback(ctx context.Context) (string, error) {
	if !s.busy.TryLock() {
		return "", ErrBusy
	}
	defer s.busy.Unlock()

	g, settings, err := s.current()
	if err != nil {
		return "", err
	}
	text, err := s.agent.WorldviewFeedback(ctx, settings, g)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.feedback = text
	s.updatedAt = time.Now()
	s.mu.Unlock()
	return text, nil
}

// current 返回当前画廊的副本和设置。
func (s *Session) current() (Gallery, Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gallery == nil {
		return Gallery{}, Settings{}, ErrNoGallery
	}
	return s.gallery.Clone(), s.settings.Normalized(), nil
}

func (s *Session) authorName(settings Settings) string {
	if settings.User != nil {
		if name := settings.User.DisplayName(); name != "" {
			return name
		}
	}
	return UserCommentAuthor
}

// publish 整体替换画廊并持久化；持久化失败只记录日志。
func (s *Session) publish(ctx context.Context, g Gallery) {
	s.mu.Lock()
	s.gallery = &g
	s.updatedAt = time.Now()
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	// 请求取消后仍需落盘
	if err := s.store.SaveGallery(context.WithoutCancel(ctx), g); err != nil {
		s.logger.Warn("persist gallery failed", zap.Error(err))
	}
}

func (s *Session) persistSettings(ctx context.Context, settings Settings) {
	if s.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		s.logger.Warn("persist settings failed", zap.Error(err))
	}
	if settings.User != nil {
		if err := s.store.SaveProfile(ctx, *settings.User); err != nil {
			s.logger.Warn("persist profile failed", zap.Error(err))
		}
	}
}
