package slug

import (
	"fmt"
	"strconv"
	"strings"
)

// Make 将自由文本转换为 URL 安全的 slug：
// 小写化、空白折叠为连字符、剔除非单词字符、合并重复连字符。
// 空输入返回空字符串而非错误。
func Make(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	lastHyphen := false
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		default:
			// 其余符号直接丢弃。
		}
	}

	return strings.Trim(b.String(), "-")
}

// WithID 在 slug 末尾追加所属行的主键作为去重后缀。
// 唯一性由后缀保证，而不是冲突重试。
func WithID(text string, id uint) string {
	base := Make(text)
	if base == "" {
		return fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s-%d", base, id)
}

// Token 是 id-or-slug 查询令牌解析一次后的标签联合结果。
type Token struct {
	// Numeric 为 true 时 ID 有效，否则 Slug 有效。
	Numeric bool
	ID      uint
	Slug    string
}

// ParseToken 在边界处把查询令牌解析为数字主键或 slug，之后不再逐处重判。
func ParseToken(raw string) Token {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
		return Token{Numeric: true, ID: uint(id)}
	}
	return Token{Slug: raw}
}

// LegacyIDPrefix 尝试从 "id-title" 形式的历史链接中提取数字前缀。
// 不含连字符或前缀非数字时返回 false。
func (t Token) LegacyIDPrefix() (uint, bool) {
	if t.Numeric || !strings.Contains(t.Slug, "-") {
		return 0, false
	}
	prefix := t.Slug[:strings.Index(t.Slug, "-")]
	id, err := strconv.ParseUint(prefix, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
