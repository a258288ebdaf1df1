// Package quality 估算机器翻译质量。评分是纯函数：相同输入总是得到相同结果。
package quality

import (
	"strings"
	"unicode/utf8"
)

// 质量分档
const (
	BucketHigh     = "high"
	BucketMedium   = "medium"
	BucketLow      = "low"
	BucketVerified = "verified" // 人工确认的译文单独成档
)

// DefaultTerms 默认领域术语关键字
var DefaultTerms = []string{
	"技術", "評価", "目標", "能力", "リーダーシップ", "コミュニケーション", "品質", "安全",
	"evaluation", "performance", "goal", "kpi", "leadership", "communication", "skill",
	"đánh giá", "mục tiêu", "kỹ năng", "lãnh đạo",
}

// Config 评分常量
type Config struct {
	BaseScore       float64
	LengthBonus     float64
	MinLengthRatio  float64
	MaxLengthRatio  float64
	TermWeight      float64
	HighThreshold   float64
	MediumThreshold float64
	Terms           []string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseScore:       0.7,
		LengthBonus:     0.1,
		MinLengthRatio:  0.5,
		MaxLengthRatio:  2.0,
		TermWeight:      0.2,
		HighThreshold:   0.8,
		MediumThreshold: 0.5,
		Terms:           DefaultTerms,
	}
}

// Scorer 翻译质量评分器
type Scorer struct {
	config Config
	terms  []string
}

// NewScorer 创建评分器，Terms 为空时使用默认术语
func NewScorer(config Config) *Scorer {
	if len(config.Terms) == 0 {
		config.Terms = DefaultTerms
	}
	terms := make([]string, 0, len(config.Terms))
	for _, t := range config.Terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	return &Scorer{config: config, terms: terms}
}

// Config 返回评分常量
func (s *Scorer) Config() Config {
	return s.config
}

// Score 估算译文质量，结果在 [0,1]
func (s *Scorer) Score(source, translated string) float64 {
	if strings.TrimSpace(translated) == "" {
		return 0
	}

	score := s.config.BaseScore

	if ratio := lengthRatio(source, translated); ratio >= s.config.MinLengthRatio && ratio <= s.config.MaxLengthRatio {
		score += s.config.LengthBonus
	}

	if detected := s.DetectTerms(source); len(detected) > 0 && s.config.TermWeight > 0 {
		accuracy := termAccuracy(detected, translated)
		score = score*(1-s.config.TermWeight) + accuracy*s.config.TermWeight
	}

	return clamp(score)
}

// Bucket 按阈值分档
func (s *Scorer) Bucket(score float64) string {
	switch {
	case score >= s.config.HighThreshold:
		return BucketHigh
	case score >= s.config.MediumThreshold:
		return BucketMedium
	default:
		return BucketLow
	}
}

// DetectTerms 返回原文中出现的领域术语
func (s *Scorer) DetectTerms(source string) []string {
	lower := strings.ToLower(source)
	var found []string
	for _, t := range s.terms {
		if strings.Contains(lower, t) {
			found = append(found, t)
		}
	}
	return found
}

// termAccuracy 未被原样保留在译文中的术语比例
func termAccuracy(terms []string, translated string) float64 {
	lower := strings.ToLower(translated)
	translatedTerms := 0
	for _, t := range terms {
		if !strings.Contains(lower, t) {
			translatedTerms++
		}
	}
	return float64(translatedTerms) / float64(len(terms))
}

// lengthRatio 字符数较短者与较长者之比
func lengthRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
