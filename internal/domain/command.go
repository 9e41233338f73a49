package domain

import (
	"errors"
	"strings"
)

// ErrUnknownCommand 无法识别的命令
var ErrUnknownCommand = errors.New("unknown command")

// Command 用户可触发的会话命令。
type Command string

const (
	CommandGenerate          Command = "generate"
	CommandCopy              Command = "copy"
	CommandRefresh           Command = "refresh"
	CommandDelete            Command = "delete"
	CommandToggleAutoRefresh Command = "toggle-auto-refresh"
	CommandClearInbox        Command = "clear-inbox"
	CommandExtend            Command = "extend"
	CommandToggleTheme       Command = "toggle-theme"
)

var commands = map[Command]struct{}{
	CommandGenerate:          {},
	CommandCopy:              {},
	CommandRefresh:           {},
	CommandDelete:            {},
	CommandToggleAutoRefresh: {},
	CommandClearInbox:        {},
	CommandExtend:            {},
	CommandToggleTheme:       {},
}

// ParseCommand 解析命令名称。
func ParseCommand(value string) (Command, error) {
	cmd := Command(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := commands[cmd]; !ok {
		return "", ErrUnknownCommand
	}
	return cmd, nil
}

// Shortcut 键盘快捷键输入
type Shortcut struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

// 只有 Ctrl/Cmd 组合键才会触发命令
var shortcutTable = map[string]Command{
	"c": CommandCopy,
	"r": CommandGenerate,
	"t": CommandToggleTheme,
	"d": CommandDelete,
}

// ShortcutCommand 将快捷键映射为命令。
func ShortcutCommand(s Shortcut) (Command, bool) {
	if !s.Ctrl && !s.Meta {
		return "", false
	}
	cmd, ok := shortcutTable[strings.ToLower(s.Key)]
	return cmd, ok
}
