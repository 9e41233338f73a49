package preference

import (
	"context"
	"errors"
	"fmt"

	"tempmail/playground/internal/domain"
)

// DefaultThemeKey 主题偏好的默认键名
const DefaultThemeKey = "tempmail:theme"

// ThemeStore 主题偏好读写，实现 session.PreferenceStore
type ThemeStore struct {
	store Store
	key   string
}

// NewThemeStore 创建主题存储，key 为空时使用 DefaultThemeKey
func NewThemeStore(store Store, key string) *ThemeStore {
	if key == "" {
		key = DefaultThemeKey
	}
	return &ThemeStore{store: store, key: key}
}

// LoadTheme 读取主题；未保存时返回默认主题，已保存但非法时返回默认主题和错误
func (t *ThemeStore) LoadTheme(ctx context.Context) (domain.Theme, error) {
	raw, err := t.store.Get(ctx, t.key)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultTheme, nil
	}
	if err != nil {
		return domain.DefaultTheme, fmt.Errorf("load theme: %w", err)
	}

	theme, err := domain.ParseTheme(raw)
	if err != nil {
		return domain.DefaultTheme, fmt.Errorf("stored theme %q: %w", raw, err)
	}
	return theme, nil
}

// SaveTheme 保存主题
func (t *ThemeStore) SaveTheme(ctx context.Context, theme domain.Theme) error {
	if _, err := domain.ParseTheme(string(theme)); err != nil {
		return err
	}
	if err := t.store.Set(ctx, t.key, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
