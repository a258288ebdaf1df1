package translation

import (
	"time"

	"github.com/nerdneilsfield/evaltrans/pkg/quality"
)

// 译文来源
const (
	ServiceAutomatic = "automatic"
	ServiceFallback  = "fallback"
	ServiceManual    = "manual"
)

// Origin 一次翻译请求的结果来源
type Origin string

const (
	OriginSameLanguage Origin = "same_language"
	OriginCache        Origin = "cache"
	OriginAutomatic    Origin = "automatic"
	OriginFallback     Origin = "fallback"
	OriginPassthrough  Origin = "passthrough"
)

// Request 翻译请求
type Request struct {
	TenantID       string `json:"tenant_id"`
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Result 翻译结果
type Result struct {
	Text         string  `json:"text"`
	CacheKey     string  `json:"cache_key,omitempty"`
	Origin       Origin  `json:"origin"`
	Backend      string  `json:"backend,omitempty"`
	QualityScore float64 `json:"quality_score"`
}

// BatchRequest 批量翻译请求
type BatchRequest struct {
	TenantID       string
	Texts          []string
	SourceLanguage string
	TargetLanguage string
	// BatchSize 每组并发数量，0 使用默认值
	BatchSize int
	// Progress 每完成一组后回调
	Progress func(done, total int)
}

// CacheEntry 缓存的译文
type CacheEntry struct {
	CacheKey           string     `json:"cacheKey"`
	SourceText         string     `json:"sourceText"`
	TranslatedText     string     `json:"translatedText"`
	SourceLanguage     string     `json:"sourceLanguage"`
	TargetLanguage     string     `json:"targetLanguage"`
	TranslationService string     `json:"translationService"`
	Backend            string     `json:"backend,omitempty"`
	QualityScore       float64    `json:"qualityScore"`
	ManualVerified     bool       `json:"manualVerified"`
	VerifiedBy         string     `json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	TenantID           string     `json:"tenantId"`
	CreatedAt          time.Time  `json:"createdAt"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// Expired 判断条目在 now 时是否过期；人工确认的条目永不过期
func (e *CacheEntry) Expired(now time.Time) bool {
	if e.ManualVerified || e.ExpiresAt == nil {
		return false
	}
	return e.ExpiresAt.Before(now)
}

// LanguagePair 形如 "ja->en"
func (e *CacheEntry) LanguagePair() string {
	return e.SourceLanguage + "->" + e.TargetLanguage
}

// Bucket 质量分档：人工确认的条目为 verified，其余按阈值分为 high/medium/low
func (e *CacheEntry) Bucket(high, medium float64) string {
	switch {
	case e.ManualVerified:
		return quality.BucketVerified
	case e.QualityScore >= high:
		return quality.BucketHigh
	case e.QualityScore >= medium:
		return quality.BucketMedium
	default:
		return quality.BucketLow
	}
}

// Statistics 租户缓存统计
type Statistics struct {
	TotalTranslations  int            `json:"totalTranslations"`
	ManualVerified     int            `json:"manualVerified"`
	AverageQuality     float64        `json:"averageQuality"`
	Expired            int            `json:"expired"`
	LanguagePairCounts map[string]int `json:"languagePairCounts"`
	ServiceCounts      map[string]int `json:"serviceCounts"`
	QualityBuckets     map[string]int `json:"qualityBuckets"`
}

// ServiceStats 进程内的服务计数
type ServiceStats struct {
	CacheHits    int64            `json:"cache_hits"`
	CacheMisses  int64            `json:"cache_misses"`
	CacheErrors  int64            `json:"cache_errors"`
	OriginCounts map[Origin]int64 `json:"origin_counts"`
}
