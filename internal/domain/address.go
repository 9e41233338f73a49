package domain

import "strings"

// LocalPartLength 随机邮箱前缀的固定长度。
const LocalPartLength = 12

// LocalPartAlphabet 邮箱前缀可用字符（小写字母 + 数字）。
const LocalPartAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Address 表示一次性邮箱地址，格式为 <local-part>@<domain>。
//
// 地址一旦生成就不会原地修改，只会被整体替换。
type Address string

// String 实现 fmt.Stringer。
func (a Address) String() string {
	return string(a)
}

// IsZero 判断是否为空地址（会话尚未初始化）。
func (a Address) IsZero() bool {
	return a == ""
}

// LocalPart 返回 @ 之前的部分。
func (a Address) LocalPart() string {
	at := strings.LastIndexByte(string(a), '@')
	if at < 0 {
		return string(a)
	}
	return string(a[:at])
}

// Domain 返回 @ 之后的部分。
func (a Address) Domain() string {
	at := strings.LastIndexByte(string(a), '@')
	if at < 0 {
		return ""
	}
	return string(a[at+1:])
}

// Valid 检查地址是否符合生成规则：
// 12 位小写字母数字前缀 + 候选域名之一。
func (a Address) Valid() bool {
	s := string(a)
	if strings.Count(s, "@") != 1 {
		return false
	}

	local := a.LocalPart()
	if len(local) != LocalPartLength {
		return false
	}
	for i := 0; i < len(local); i++ {
		if strings.IndexByte(LocalPartAlphabet, local[i]) < 0 {
			return false
		}
	}

	return IsKnownDomain(a.Domain())
}
