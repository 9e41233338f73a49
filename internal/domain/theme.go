package domain

import (
	"errors"
	"strings"
)

// ErrInvalidTheme 主题取值非法
var ErrInvalidTheme = errors.New("invalid theme")

// Theme 界面主题偏好，唯一需要持久化的状态。
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DefaultTheme 未保存偏好时使用的主题。
const DefaultTheme = ThemeLight

// ParseTheme 解析主题字符串（忽略大小写和空白）。
func ParseTheme(value string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(value))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", ErrInvalidTheme
	}
}

// Toggle 返回相反的主题。
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
