package server

import (
	"context"
	"sync"
	"time"

	"ai_gallery_simulator/generator"
	"ai_gallery_simulator/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sessionStore 内存中的 session 表；未命中时尝试从 KV 存储恢复。
// 超过 idle 未访问的 session 会被清出内存，之后按需从 KV 恢复。
type sessionStore struct {
	agent  *generator.Agent
	repo   *store.Repository
	logger *zap.Logger
	idle   time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	sess     *generator.Session
	lastSeen time.Time
}

func newSessionStore(agent *generator.Agent, repo *store.Repository, logger *zap.Logger, idle time.Duration) *sessionStore {
	return &sessionStore{
		agent:    agent,
		repo:     repo,
		logger:   logger,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

func newSessionID() string {
	return uuid.NewString()
}

func namespace(id string) string {
	return "session:" + id
}

// create 新建 session，持久化到以 id 为命名空间的 Repository。
// 匿名用户的 IP 后缀在这里生成一次，之后随设置一起持久化。
func (s *sessionStore) create(settings generator.Settings) *generator.Session {
	id := newSessionID()
	return generator.NewSession(id, settings.WithUserIP(nil), s.agent,
		generator.WithPersister(s.repo.Scoped(namespace(id))),
		generator.WithSessionLogger(s.logger),
	)
}

func (s *sessionStore) set(sess *generator.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &sessionEntry{sess: sess, lastSeen: s.now()}
}

func (s *sessionStore) get(ctx context.Context, id string) (*generator.Session, bool) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		e.lastSeen = s.now()
	}
	s.mu.Unlock()
	if ok {
		return e.sess, true
	}

	sess, ok := s.restore(ctx, id)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// 并发恢复时以先写入的为准
	if existing, ok := s.sessions[id]; ok {
		return existing.sess, true
	}
	s.sessions[id] = &sessionEntry{sess: sess, lastSeen: s.now()}
	return sess, true
}

// sweep 清出超过 idle 未访问的 session，返回清出数量。数据已在 KV 中。
func (s *sessionStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// restore 只有已生成过画廊的 session 才能恢复。
func (s *sessionStore) restore(ctx context.Context, id string) (*generator.Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	repo := s.repo.Scoped(namespace(id))
	settings, ok, err := repo.LoadSettings(ctx)
	if err != nil {
		s.logger.Warn("restore session settings failed", zap.String("session", id), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	g, ok, err := repo.LoadGallery(ctx)
	if err != nil || !ok {
		return nil, false
	}
	if settings.User == nil {
		if u, ok, err := repo.LoadProfile(ctx); err == nil && ok {
			settings.User = &u
		}
	}
	s.logger.Info("session restored", zap.String("session", id), zap.Int("posts", len(g.Posts)))
	return generator.NewSession(id, settings, s.agent,
		generator.WithPersister(repo),
		generator.WithSessionLogger(s.logger),
		generator.WithGallery(g),
	), true
}
