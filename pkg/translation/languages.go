package translation

import (
	"strings"

	"golang.org/x/text/language"
)

// Languages 支持的语言集合
type Languages struct {
	codes []string
	set   map[string]bool
}

// NewLanguages 根据语言代码创建集合，代码会被规范化为基础语言
func NewLanguages(codes []string) (*Languages, error) {
	l := &Languages{set: make(map[string]bool)}
	for _, code := range codes {
		canonical, err := canonicalize(code)
		if err != nil {
			return nil, err
		}
		if l.set[canonical] {
			continue
		}
		l.set[canonical] = true
		l.codes = append(l.codes, canonical)
	}
	if len(l.codes) == 0 {
		return nil, NewValidationError("languages", "no supported languages")
	}
	return l, nil
}

// Normalize 校验并规范化语言代码，例如 "en-US" -> "en"
func (l *Languages) Normalize(code string) (string, error) {
	canonical, err := canonicalize(code)
	if err != nil {
		return "", err
	}
	if !l.set[canonical] {
		return "", NewValidationError("language", "unsupported language "+code)
	}
	return canonical, nil
}

// Supported 返回支持的语言（配置顺序）
func (l *Languages) Supported() []string {
	return append([]string(nil), l.codes...)
}

// Others 返回除 lang 之外的所有语言
func (l *Languages) Others(lang string) []string {
	out := make([]string, 0, len(l.codes))
	for _, c := range l.codes {
		if c != lang {
			out = append(out, c)
		}
	}
	return out
}

func canonicalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", NewValidationError("language", "language code is empty")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", NewValidationError("language", "malformed language code "+code)
	}
	base, _ := tag.Base()
	return base.String(), nil
}
