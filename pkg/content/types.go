package content

import (
	"time"
)

// 内置内容类型
const (
	TypeGoals       = "goals"
	TypeComments    = "comments"
	TypeEvaluations = "evaluations"
)

// Schema 内容类型的字段定义，未列出的字段原样复制到每种语言
type Schema struct {
	Translatable []string
}

// DefaultSchemas 内置内容类型的可翻译字段
func DefaultSchemas() map[string]Schema {
	return map[string]Schema{
		TypeGoals:       {Translatable: []string{"title", "description"}},
		TypeComments:    {Translatable: []string{"body"}},
		TypeEvaluations: {Translatable: []string{"comment", "strengths", "improvements"}},
	}
}

// IsTranslatable 判断字段是否需要翻译
func (s Schema) IsTranslatable(field string) bool {
	for _, f := range s.Translatable {
		if f == field {
			return true
		}
	}
	return false
}

// Collection 内容类型对应的集合名
func Collection(contentType string) string {
	return contentType + "_multilingual"
}

// RecordID 单语言记录的 ID
func RecordID(contentID, lang string) string {
	return contentID + "_" + lang
}

// documentID 存储中的文档 ID，带租户前缀以隔离不同租户的相同内容 ID
func documentID(tenantID, contentID, lang string) string {
	return tenantID + "_" + RecordID(contentID, lang)
}

// SaveRequest 保存请求
type SaveRequest struct {
	TenantID       string         `json:"tenant_id"`
	ContentType    string         `json:"content_type"`
	ContentID      string         `json:"content_id,omitempty"` // 为空时生成 uuid
	SourceLanguage string         `json:"source_language"`
	Fields         map[string]any `json:"fields"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	AuthorID       string         `json:"author_id,omitempty"`
}

// Record 某一语言的内容记录
type Record struct {
	ID               string         `json:"id"`
	ContentID        string         `json:"contentId"`
	ContentType      string         `json:"contentType"`
	TenantID         string         `json:"tenantId"`
	LanguageCode     string         `json:"languageCode"`
	IsOriginal       bool           `json:"isOriginal"`
	OriginalLanguage string         `json:"originalLanguage"`
	Fields           map[string]any `json:"fields"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	AuthorID         string         `json:"authorId,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}
