package store

import (
	"context"
	"encoding/json"
	"fmt"

	"ai_gallery_simulator/generator"

	"go.uber.org/zap"
)

// 持久化键名，与浏览器版本的 localStorage 键一致。
const (
	KeyGalleryData    = "galleryData"
	KeyGalleryContext = "galleryContext"
	KeyUserProfile    = "userProfile"
)

// Repository 以 JSON 读写画廊、设置和用户资料，实现 generator.Persister。
// 解析失败的值记录日志后按不存在处理。
type Repository struct {
	kv        KV
	namespace string
	logger    *zap.Logger
}

func NewRepository(kv KV, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{kv: kv, logger: logger}
}

// Scoped 返回键名带 "<ns>:" 前缀的 Repository，每个 session 一份。
func (r *Repository) Scoped(ns string) *Repository {
	out := *r
	out.namespace = ns
	return &out
}

func (r *Repository) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *Repository) SaveGallery(ctx context.Context, g generator.Gallery) error {
	return setJSON(ctx, r, KeyGalleryData, g)
}

func (r *Repository) LoadGallery(ctx context.Context) (generator.Gallery, bool, error) {
	return getJSON[generator.Gallery](ctx, r, KeyGalleryData)
}

func (r *Repository) SaveSettings(ctx context.Context, s generator.Settings) error {
	return setJSON(ctx, r, KeyGalleryContext, s)
}

func (r *Repository) LoadSettings(ctx context.Context) (generator.Settings, bool, error) {
	return getJSON[generator.Settings](ctx, r, KeyGalleryContext)
}

func (r *Repository) SaveProfile(ctx context.Context, u generator.UserProfile) error {
	return setJSON(ctx, r, KeyUserProfile, u)
}

func (r *Repository) LoadProfile(ctx context.Context) (generator.UserProfile, bool, error) {
	return getJSON[generator.UserProfile](ctx, r, KeyUserProfile)
}

// Clear 删除该命名空间下的全部数据。
func (r *Repository) Clear(ctx context.Context) error {
	for _, k := range []string{KeyGalleryData, KeyGalleryContext, KeyUserProfile} {
		if err := r.kv.Remove(ctx, r.key(k)); err != nil {
			return fmt.Errorf("remove %s: %w", r.key(k), err)
		}
	}
	return nil
}

func setJSON(ctx context.Context, r *Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Set(ctx, r.key(key), string(b)); err != nil {
		return fmt.Errorf("save %s: %w", r.key(key), err)
	}
	return nil
}

func getJSON[T any](ctx context.Context, r *Repository, key string) (T, bool, error) {
	var zero T
	raw, ok, err := r.kv.Get(ctx, r.key(key))
	if err != nil {
		return zero, false, fmt.Errorf("load %s: %w", r.key(key), err)
	}
	if !ok {
		return zero, false, nil
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		r.logger.Warn("discarding corrupt stored value", zap.String("key", r.key(key)), zap.Error(err))
		return zero, false, nil
	}
	return v, true, nil
}
