// Package format escapes user-visible text for Telegram parse modes.
package format

import (
	"fmt"
	"regexp"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

// Entity types with their own escaping rules in MarkdownV2.
const (
	EntityPre      = "pre"
	EntityCode     = "code"
	EntityTextLink = "text_link"
)

var (
	mdV1Re       = regexp.MustCompile("[_*`\\[]")
	mdV2Re       = regexp.MustCompile(`[_*\[\]()~` + "`" + `>#+\-=|{}.!\\]`)
	mdV2CodeRe   = regexp.MustCompile("[`\\\\]")
	mdV2LinkRe   = regexp.MustCompile(`[)\\]`)
	escapeFormat = `\${0}`
)

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// entityType narrows the escaped set inside V2 code and link entities.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		return mdV1Re.ReplaceAllString(text, escapeFormat), nil
	case MarkdownV2:
		switch entityType {
		case EntityPre, EntityCode:
			return mdV2CodeRe.ReplaceAllString(text, escapeFormat), nil
		case EntityTextLink:
			return mdV2LinkRe.ReplaceAllString(text, escapeFormat), nil
		}
		return mdV2Re.ReplaceAllString(text, escapeFormat), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}

// Escape is EscapeMarkdown for plain Markdown (V1) text.
func Escape(text string) string {
	out, _ := EscapeMarkdown(text, MarkdownV1, "")
	return out
}
