// Package report 提供译文质量管理所需的只读视图：按质量分档、语言对、
// 来源过滤缓存快照，并导出为 CSV 或 JSON。
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nerdneilsfield/evaltrans/pkg/quality"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

// BucketUnverified 过滤所有未人工确认的条目
const BucketUnverified = "unverified"

// Thresholds 分档阈值
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds 默认阈值
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.8, Medium: 0.5}
}

// Bucket 条目所属的质量分档
func (t Thresholds) Bucket(entry *translation.CacheEntry) string {
	return entry.Bucket(t.High, t.Medium)
}

// Filter 快照过滤条件，空字段不参与过滤
type Filter struct {
	Bucket         string `form:"bucket" json:"bucket,omitempty"`
	SourceLanguage string `form:"source_lang" json:"source_lang,omitempty"`
	TargetLanguage string `form:"target_lang" json:"target_lang,omitempty"`
	Service        string `form:"service" json:"service,omitempty"`
	Query          string `form:"q" json:"q,omitempty"` // 对原文和译文做模糊匹配
}

// Validate 校验分档名
func (f Filter) Validate() error {
	switch f.Bucket {
	case "", quality.BucketHigh, quality.BucketMedium, quality.BucketLow,
		quality.BucketVerified, BucketUnverified:
		return nil
	default:
		return translation.NewValidationError("bucket", "unknown bucket "+f.Bucket)
	}
}

// Match 判断条目是否满足过滤条件
func (f Filter) Match(entry *translation.CacheEntry, t Thresholds) bool {
	switch f.Bucket {
	case "":
	case BucketUnverified:
		if entry.ManualVerified {
			return false
		}
	default:
		if t.Bucket(entry) != f.Bucket {
			return false
		}
	}
	if f.SourceLanguage != "" && !strings.EqualFold(entry.SourceLanguage, f.SourceLanguage) {
		return false
	}
	if f.TargetLanguage != "" && !strings.EqualFold(entry.TargetLanguage, f.TargetLanguage) {
		return false
	}
	if f.Service != "" && entry.TranslationService != f.Service {
		return false
	}
	if f.Query != "" &&
		!fuzzy.MatchFold(f.Query, entry.SourceText) &&
		!fuzzy.MatchFold(f.Query, entry.TranslatedText) {
		return false
	}
	return true
}

// Apply 返回满足条件的条目，按质量分升序、缓存键排序
func Apply(entries []translation.CacheEntry, f Filter, t Thresholds) []translation.CacheEntry {
	out := make([]translation.CacheEntry, 0, len(entries))
	for i := range entries {
		if f.Match(&entries[i], t) {
			out = append(out, entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore < out[j].QualityScore
		}
		return out[i].CacheKey < out[j].CacheKey
	})
	return out
}

// Summary 分档汇总
type Summary struct {
	Total    int            `json:"total"`
	Buckets  map[string]int `json:"buckets"`
	Average  float64        `json:"average"`
	Verified int            `json:"verified"`
}

// Summarize 计算分档数量和平均分
func Summarize(entries []translation.CacheEntry, t Thresholds) Summary {
	s := Summary{Buckets: map[string]int{
		quality.BucketHigh:     0,
		quality.BucketMedium:   0,
		quality.BucketLow:      0,
		quality.BucketVerified: 0,
	}}
	var total float64
	for i := range entries {
		s.Total++
		s.Buckets[t.Bucket(&entries[i])]++
		if entries[i].ManualVerified {
			s.Verified++
		}
		total += entries[i].QualityScore
	}
	if s.Total > 0 {
		s.Average = total / float64(s.Total)
	}
	return s
}

var csvHeader = []string{
	"cache_key", "source_language", "target_language", "source_text", "translated_text",
	"service", "backend", "quality_score", "bucket", "manual_verified", "verified_by", "created_at",
}

// WriteCSV 导出为 CSV
func WriteCSV(w io.Writer, entries []translation.CacheEntry, t Thresholds) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		record := []string{
			e.CacheKey,
			e.SourceLanguage,
			e.TargetLanguage,
			e.SourceText,
			e.TranslatedText,
			e.TranslationService,
			e.Backend,
			strconv.FormatFloat(e.QualityScore, 'f', 2, 64),
			t.Bucket(e),
			strconv.FormatBool(e.ManualVerified),
			e.VerifiedBy,
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON 导出为 JSON 数组
func WriteJSON(w io.Writer, entries []translation.CacheEntry) error {
	if entries == nil {
		entries = []translation.CacheEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

// 导出格式
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Write 按格式导出
func Write(w io.Writer, format string, entries []translation.CacheEntry, t Thresholds) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, entries, t)
	case FormatJSON, "":
		return WriteJSON(w, entries)
	default:
		return translation.NewValidationError("format", "unsupported export format "+format)
	}
}
