// Package glossary 提供按语言对组织的静态术语表，作为自动翻译失败时的回退。
package glossary

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// Table 单个语言对的术语表
type Table struct {
	SourceLang string            `toml:"source_lang"`
	TargetLang string            `toml:"target_lang"`
	Terms      map[string]string `toml:"terms"`
}

// File 术语表文件
type File struct {
	Tables []Table `toml:"tables"`
}

type pair struct {
	source string
	target string
}

type entries struct {
	terms map[string]string
	// 按长度降序、再按字典序排列，保证子串替换结果确定
	keys []string
}

// Dictionary 回退词典，并发安全
type Dictionary struct {
	mu     sync.RWMutex
	tables map[pair]*entries
}

// New 创建空词典
func New() *Dictionary {
	return &Dictionary{tables: make(map[pair]*entries)}
}

// NewBuiltin 创建包含内置人事评价术语的词典
func NewBuiltin() *Dictionary {
	d := New()
	for _, t := range builtinTables {
		d.Add(t.SourceLang, t.TargetLang, t.Terms)
	}
	return d
}

// Add 合并术语到语言对，已有的键被覆盖
func (d *Dictionary) Add(sourceLang, targetLang string, terms map[string]string) {
	key := pair{normalize(sourceLang), normalize(targetLang)}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.tables[key]
	if !ok {
		e = &entries{terms: make(map[string]string)}
		d.tables[key] = e
	}
	for k, v := range terms {
		if k == "" {
			continue
		}
		e.terms[k] = v
	}

	e.keys = e.keys[:0]
	for k := range e.terms {
		e.keys = append(e.keys, k)
	}
	sort.Slice(e.keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(e.keys[i]), utf8.RuneCountInString(e.keys[j])
		if li != lj {
			return li > lj
		}
		return e.keys[i] < e.keys[j]
	})
}

// Lookup 先精确匹配，再把第一个出现的术语子串替换一次。未命中返回 false
func (d *Dictionary) Lookup(text, sourceLang, targetLang string) (string, bool) {
	if text == "" {
		return "", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.tables[pair{normalize(sourceLang), normalize(targetLang)}]
	if !ok {
		return "", false
	}

	if v, ok := e.terms[text]; ok {
		return v, true
	}

	// 只替换第一个匹配的术语，其余部分保持原文
	for _, k := range e.keys {
		if strings.Contains(text, k) {
			return strings.Replace(text, k, e.terms[k], 1), true
		}
	}
	return "", false
}

// Terms 返回某源语言下所有术语（去重、排序）
func (d *Dictionary) Terms(sourceLang string) []string {
	src := normalize(sourceLang)

	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for p, e := range d.tables {
		if p.source != src {
			continue
		}
		for k := range e.terms {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Pairs 返回已加载的语言对，形如 "ja->en"
func (d *Dictionary) Pairs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(d.tables))
	for p := range d.tables {
		out = append(out, p.source+"->"+p.target)
	}
	sort.Strings(out)
	return out
}

// Len 术语总数
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, e := range d.tables {
		n += len(e.terms)
	}
	return n
}

// LoadFile 从 TOML 文件读取术语表并合并到词典
func (d *Dictionary) LoadFile(path string) error {
	tables, err := LoadFile(path)
	if err != nil {
		return err
	}
	for _, t := range tables {
		d.Add(t.SourceLang, t.TargetLang, t.Terms)
	}
	return nil
}

// LoadFile 读取 TOML 术语表文件
func LoadFile(path string) ([]Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file: %w", err)
	}

	var file File
	if err := toml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal glossary file: %w", err)
	}
	for i, t := range file.Tables {
		if t.SourceLang == "" || t.TargetLang == "" {
			return nil, fmt.Errorf("glossary table %d is missing source_lang or target_lang", i)
		}
	}
	return file.Tables, nil
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
