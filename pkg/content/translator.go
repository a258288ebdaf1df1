package content

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nerdneilsfield/evaltrans/internal/docstore"
	"github.com/nerdneilsfield/evaltrans/pkg/translation"
)

// Translator 多语言内容保存器：一次保存写入原文和所有目标语言的译文
type Translator struct {
	service translation.Service
	store   docstore.Store
	schemas map[string]Schema
	logger  *zap.Logger
	now     func() time.Time
}

// Option 配置选项
type Option func(*Translator)

// WithLogger 设置logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(t *Translator) {
		t.now = now
	}
}

// WithSchema 注册或覆盖内容类型
func WithSchema(contentType string, translatable ...string) Option {
	return func(t *Translator) {
		t.schemas[contentType] = Schema{Translatable: translatable}
	}
}

// NewTranslator 创建多语言内容保存器
func NewTranslator(service translation.Service, store docstore.Store, opts ...Option) *Translator {
	t := &Translator{
		service: service,
		store:   store,
		schemas: DefaultSchemas(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ContentTypes 已注册的内容类型
func (t *Translator) ContentTypes() []string {
	types := make([]string, 0, len(t.schemas))
	for k := range t.schemas {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

func (t *Translator) schema(contentType string) (Schema, error) {
	schema, ok := t.schemas[contentType]
	if !ok {
		return Schema{}, translation.NewValidationError("contentType", "unknown content type "+contentType)
	}
	return schema, nil
}

// SaveWithTranslations 翻译可翻译字段并原子写入所有语言的记录。
// 单个字段翻译失败时保留原文，只有 ctx 取消或写入失败会返回错误。
func (t *Translator) SaveWithTranslations(ctx context.Context, req *SaveRequest) ([]Record, error) {
	if req == nil {
		return nil, translation.NewValidationError("request", "request is nil")
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return nil, translation.NewValidationError("tenantId", "tenant is required")
	}
	schema, err := t.schema(req.ContentType)
	if err != nil {
		return nil, err
	}
	if len(req.Fields) == 0 {
		return nil, translation.NewValidationError("fields", "no fields to save")
	}
	source, err := t.service.NormalizeLanguage(req.SourceLanguage)
	if err != nil {
		return nil, err
	}

	contentID := req.ContentID
	if contentID == "" {
		contentID = uuid.NewString()
	}

	log := t.logger.With(
		zap.String("tenant_id", req.TenantID),
		zap.String("content_type", req.ContentType),
		zap.String("content_id", contentID),
		zap.String("source_lang", source))

	now := t.now()
	newRecord := func(lang string, fields map[string]any) Record {
		return Record{
			ID:               RecordID(contentID, lang),
			ContentID:        contentID,
			ContentType:      req.ContentType,
			TenantID:         req.TenantID,
			LanguageCode:     lang,
			IsOriginal:       lang == source,
			OriginalLanguage: source,
			Fields:           fields,
			Metadata:         copyMetadata(req.Metadata),
			AuthorID:         req.AuthorID,
			CreatedAt:        now,
		}
	}

	var targets []string
	for _, lang := range t.service.Languages() {
		if lang != source {
			targets = append(targets, lang)
		}
	}

	records := make([]Record, len(targets)+1)
	records[0] = newRecord(source, copyFields(req.Fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, lang := range targets {
		i, lang := i, lang
		g.Go(func() error {
			fields, err := t.translateFields(gctx, log, schema, req, source, lang)
			if err != nil {
				return err
			}
			records[i+1] = newRecord(lang, fields)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 所有语言都准备好后一次提交
	batch := t.store.Batch()
	for i := range records {
		doc, err := docstore.Encode(&records[i])
		if err != nil {
			return nil, err
		}
		batch.Stage(Collection(req.ContentType), documentID(req.TenantID, contentID, records[i].LanguageCode), doc)
	}
	if err := batch.Commit(ctx); err != nil {
		log.Error("failed to save multilingual content", zap.Error(err))
		return nil, translation.NewPersistenceError("save multilingual content", err)
	}

	log.Info("multilingual content saved", zap.Int("languages", len(records)))
	return records, nil
}

// translateFields 并发翻译一个目标语言的所有可翻译字段
func (t *Translator) translateFields(ctx context.Context, log *zap.Logger, schema Schema, req *SaveRequest, source, target string) (map[string]any, error) {
	fields := copyFields(req.Fields)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, value := range req.Fields {
		text, ok := value.(string)
		if !ok || !schema.IsTranslatable(name) {
			continue
		}
		name, text := name, text
		g.Go(func() error {
			translated, err := t.service.TranslateText(gctx, req.TenantID, text, source, target)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				log.Warn("field translation failed, keeping original text",
					zap.String("field", name),
					zap.String("target_lang", target),
					zap.Error(err))
				translated = text
			}
			mu.Lock()
			fields[name] = translated
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fields, nil
}

// Get 读取某一语言的记录
func (t *Translator) Get(ctx context.Context, tenantID, contentType, contentID, lang string) (*Record, error) {
	if _, err := t.schema(contentType); err != nil {
		return nil, err
	}
	code, err := t.service.NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}

	doc, err := t.store.Get(ctx, Collection(contentType), documentID(tenantID, contentID, code))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, translation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record Record
	if err := docstore.Decode(doc, &record); err != nil {
		return nil, err
	}
	if record.TenantID != tenantID {
		return nil, translation.ErrNotFound
	}
	return &record, nil
}

// ListVariants 列出内容的所有语言版本，原文在前
func (t *Translator) ListVariants(ctx context.Context, tenantID, contentType, contentID string) ([]Record, error) {
	if _, err := t.schema(contentType); err != nil {
		return nil, err
	}
	docs, err := t.store.Query(ctx, Collection(contentType),
		docstore.Eq("tenantId", tenantID),
		docstore.Eq("contentId", contentID))
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		var record Record
		if err := docstore.Decode(doc, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].IsOriginal && !records[j].IsOriginal
	})
	return records, nil
}

func copyMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	return copyFields(metadata)
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
