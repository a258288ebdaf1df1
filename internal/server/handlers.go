package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nerdneilsfield/evaltrans/internal/auth"
	"github.com/nerdneilsfield/evaltrans/pkg/content"
	"github.com/nerdneilsfield/evaltrans/pkg/report"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

// TranslateRequest 单条翻译请求
type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_lang" binding:"required"`
	TargetLanguage string `json:"target_lang" binding:"required"`
}

// BatchTranslateRequest 批量翻译请求
type BatchTranslateRequest struct {
	Texts          []string `json:"texts" binding:"required"`
	SourceLanguage string   `json:"source_lang" binding:"required"`
	TargetLanguage string   `json:"target_lang" binding:"required"`
	BatchSize      int      `json:"batch_size" binding:"gte=0,lte=100"`
}

// ImproveRequest 人工修正请求
type ImproveRequest struct {
	Text string `json:"text" binding:"required"`
}

// SaveContentRequest 多语言内容保存请求
type SaveContentRequest struct {
	ContentID      string         `json:"content_id"`
	SourceLanguage string         `json:"source_lang" binding:"required"`
	Fields         map[string]any `json:"fields" binding:"required"`
	Metadata       map[string]any `json:"metadata"`
}

func identity(c *gin.Context) *auth.Identity {
	id, ok := auth.FromGin(c)
	if !ok {
		panic("auth middleware not installed")
	}
	return id
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": s.deps.Service.Languages()})
}

func (s *Server) backends(c *gin.Context) {
	resp := gin.H{"backends": s.deps.Service.Backends()}
	if s.deps.Stats != nil {
		resp["stats"] = s.deps.Stats.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) translate(c *gin.Context) {
	var in TranslateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	result, err := s.deps.Service.Translate(c.Request.Context(), &translation.Request{
		TenantID:       identity(c).TenantID,
		Text:           in.Text,
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: in.TargetLanguage,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) translateBatch(c *gin.Context) {
	var in BatchTranslateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	results, err := s.deps.Service.TranslateBatch(c.Request.Context(), &translation.BatchRequest{
		TenantID:       identity(c).TenantID,
		Texts:          in.Texts,
		SourceLanguage: in.SourceLanguage,
		TargetLanguage: in.TargetLanguage,
		BatchSize:      in.BatchSize,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"translations": results})
}

// filteredEntries 读取租户快照并按查询参数过滤
func (s *Server) filteredEntries(c *gin.Context) ([]translation.CacheEntry, bool) {
	var filter report.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return nil, false
	}
	if err := filter.Validate(); err != nil {
		abortWithError(c, err)
		return nil, false
	}

	entries, err := s.deps.Service.Entries(c.Request.Context(), identity(c).TenantID)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	return report.Apply(entries, filter, s.deps.Thresholds), true
}

func (s *Server) listTranslations(c *gin.Context) {
	entries, ok := s.filteredEntries(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"summary": report.Summarize(entries, s.deps.Thresholds),
	})
}

func (s *Server) translationStats(c *gin.Context) {
	stats, err := s.deps.Service.Statistics(c.Request.Context(), identity(c).TenantID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
		"service":    s.deps.Service.Stats(),
	})
}

func (s *Server) exportTranslations(c *gin.Context) {
	format := c.DefaultQuery("format", report.FormatJSON)
	if format != report.FormatJSON && format != report.FormatCSV {
		abortWithError(c, translation.NewValidationError("format", "unsupported export format "+format))
		return
	}
	entries, ok := s.filteredEntries(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("translations-%s.%s", time.Now().UTC().Format("20060102"), format)
	contentType := "application/json; charset=utf-8"
	if format == report.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", contentType)
	if err := report.Write(c.Writer, format, entries, s.deps.Thresholds); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) collectGarbage(c *gin.Context) {
	n, err := s.deps.Service.CollectGarbage(c.Request.Context(), identity(c).TenantID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) improveTranslation(c *gin.Context) {
	var in ImproveRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	id := identity(c)
	entry, err := s.deps.Service.ImproveTranslation(c.Request.Context(), id.TenantID, c.Param("cacheKey"), in.Text, id.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) saveContent(c *gin.Context) {
	var in SaveContentRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	id := identity(c)
	records, err := s.deps.Content.SaveWithTranslations(c.Request.Context(), &content.SaveRequest{
		TenantID:       id.TenantID,
		ContentType:    c.Param("type"),
		ContentID:      in.ContentID,
		SourceLanguage: in.SourceLanguage,
		Fields:         in.Fields,
		Metadata:       in.Metadata,
		AuthorID:       id.UserID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"records": records})
}

func (s *Server) listContent(c *gin.Context) {
	records, err := s.deps.Content.ListVariants(c.Request.Context(), identity(c).TenantID, c.Param("type"), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(records) == 0 {
		abortWithError(c, translation.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) getContent(c *gin.Context) {
	record, err := s.deps.Content.Get(c.Request.Context(), identity(c).TenantID, c.Param("type"), c.Param("id"), c.Param("lang"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
