// Package preset 管理画廊设置预设：内置示例（只读）加上用户保存的预设。
package preset

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"ai_gallery_simulator/generator"
	"ai_gallery_simulator/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// StorageKey 用户预设列表在 KV 中的键。
	StorageKey = "user_presets"

	BuiltinPrefix = "preset-example-"
	UserPrefix    = "preset-user-"

	MaxNameLen = 30
)

var (
	ErrBuiltinPreset = errors.New("기본 예시 프리셋은 삭제할 수 없습니다.")
	ErrNotFound      = errors.New("프리셋을 찾을 수 없습니다.")
)

//go:embed presets.yaml
var builtinYAML []byte

type Preset struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	Settings generator.Settings `json:"settings" yaml:"settings"`
}

func (p Preset) Builtin() bool {
	return strings.HasPrefix(p.ID, BuiltinPrefix)
}

// Catalog 读时合并内置与用户预设。写操作串行化，避免并发保存互相覆盖。
type Catalog struct {
	kv       store.KV
	logger   *zap.Logger
	builtins []Preset
	newID    func() string

	mu sync.Mutex
}

func NewCatalog(kv store.KV, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var builtins []Preset
	if err := yaml.Unmarshal(builtinYAML, &builtins); err != nil {
		return nil, fmt.Errorf("parse builtin presets: %w", err)
	}
	for _, p := range builtins {
		if !p.Builtin() {
			return nil, fmt.Errorf("builtin preset %q must use prefix %s", p.ID, BuiltinPrefix)
		}
	}
	return &Catalog{
		kv:       kv,
		logger:   logger,
		builtins: builtins,
		newID:    func() string { return UserPrefix + uuid.NewString() },
	}, nil
}

// List 内置预设在前，用户预设按保存顺序在后。
func (c *Catalog) List(ctx context.Context) ([]Preset, error) {
	user, err := c.loadUser(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Preset, 0, len(c.builtins)+len(user))
	out = append(out, c.builtins...)
	return append(out, user...), nil
}

func (c *Catalog) Get(ctx context.Context, id string) (Preset, error) {
	all, err := c.List(ctx)
	if err != nil {
		return Preset{}, err
	}
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, ErrNotFound
}

// Save 以新 ID 追加一个用户预设。
func (c *Catalog) Save(ctx context.Context, name string, s generator.Settings) (Preset, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return Preset{}, &generator.ValidationError{Fields: []generator.FieldError{{Field: "name", Message: "프리셋 이름을 입력해주세요."}}}
	case utf8.RuneCountInString(name) > MaxNameLen:
		return Preset{}, &generator.ValidationError{Fields: []generator.FieldError{{Field: "name", Message: fmt.Sprintf("프리셋 이름은 %d자 이내로 입력해주세요.", MaxNameLen)}}}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	user, err := c.loadUser(ctx)
	if err != nil {
		return Preset{}, err
	}
	p := Preset{ID: c.newID(), Name: name, Settings: s.Normalized()}
	if err := c.storeUser(ctx, append(user, p)); err != nil {
		return Preset{}, err
	}
	c.logger.Info("preset saved", zap.String("id", p.ID), zap.String("name", name))
	return p, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	if strings.HasPrefix(id, BuiltinPrefix) {
		return ErrBuiltinPreset
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	user, err := c.loadUser(ctx)
	if err != nil {
		return err
	}
	kept := user[:0]
	for _, p := range user {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(user) {
		return ErrNotFound
	}
	return c.storeUser(ctx, kept)
}

// loadUser 存储的列表无法解析时视为空列表。
func (c *Catalog) loadUser(ctx context.Context) ([]Preset, error) {
	raw, ok, err := c.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var out []Preset
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.logger.Warn("stored presets are corrupt; ignoring", zap.Error(err))
		return nil, nil
	}
	return out, nil
}

func (c *Catalog) storeUser(ctx context.Context, presets []Preset) error {
	b, err := json.Marshal(presets)
	if err != nil {
		return err
	}
	if err := c.kv.Set(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("save presets: %w", err)
	}
	return nil
}
