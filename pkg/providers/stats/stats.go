package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/evaltrans/pkg/providers"
)

// BackendStats 单个后端的调用统计
type BackendStats struct {
	Backend            string           `json:"backend"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	AverageLatency     time.Duration    `json:"average_latency"`
	MinLatency         time.Duration    `json:"min_latency"`
	MaxLatency         time.Duration    `json:"max_latency"`
	TotalLatency       time.Duration    `json:"total_latency"`
	ErrorTypes         map[string]int64 `json:"error_types"`
	LastError          string           `json:"last_error,omitempty"`
	FirstRequestTime   time.Time        `json:"first_request_time"`
	LastRequestTime    time.Time        `json:"last_request_time"`
}

// SuccessRate 成功率（百分比）
func (s BackendStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
}

// RequestResult 单次请求结果
type RequestResult struct {
	Success bool
	Latency time.Duration
	Err     error
}

// Manager 统计管理器
type Manager struct {
	mu     sync.RWMutex
	stats  map[string]*BackendStats
	path   string
	logger *zap.Logger
}

// NewManager 创建统计管理器，path 为空时不持久化
func NewManager(path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		stats:  make(map[string]*BackendStats),
		path:   path,
		logger: logger,
	}
}

// Record 记录请求结果
func (m *Manager) Record(backend string, result RequestResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[backend]
	if !ok {
		s = &BackendStats{
			Backend:    backend,
			ErrorTypes: make(map[string]int64),
			MinLatency: time.Hour,
		}
		m.stats[backend] = s
	}

	now := time.Now()
	if s.FirstRequestTime.IsZero() {
		s.FirstRequestTime = now
	}
	s.LastRequestTime = now
	s.TotalRequests++

	if result.Success {
		s.SuccessfulRequests++
	} else {
		s.FailedRequests++
		s.ErrorTypes[ClassifyError(result.Err)]++
		if result.Err != nil {
			s.LastError = result.Err.Error()
		}
	}

	s.TotalLatency += result.Latency
	if result.Latency < s.MinLatency {
		s.MinLatency = result.Latency
	}
	if result.Latency > s.MaxLatency {
		s.MaxLatency = result.Latency
	}
	s.AverageLatency = s.TotalLatency / time.Duration(s.TotalRequests)
}

// Get 获取指定后端的统计副本
func (m *Manager) Get(backend string) (BackendStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stats[backend]
	if !ok {
		return BackendStats{}, false
	}
	return copyStats(s), true
}

// Snapshot 按后端名称排序返回所有统计副本
func (m *Manager) Snapshot() []BackendStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]BackendStats, 0, len(m.stats))
	for _, s := range m.stats {
		out = append(out, copyStats(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Backend < out[j].Backend })
	return out
}

func copyStats(s *BackendStats) BackendStats {
	c := *s
	c.ErrorTypes = make(map[string]int64, len(s.ErrorTypes))
	for k, v := range s.ErrorTypes {
		c.ErrorTypes[k] = v
	}
	return c
}

// ClassifyError 错误分类
func ClassifyError(err error) string {
	if err == nil {
		return "unknown_error"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}

	var backendErr *providers.BackendError
	if !errors.As(err, &backendErr) {
		return "unknown_error"
	}
	switch code := backendErr.StatusCode; {
	case code == 0 && backendErr.Message == "no translation returned":
		return "empty_result"
	case code == 0:
		return "network_error"
	case code == 401 || code == 403:
		return "auth_error"
	case code == 429:
		return "rate_limit"
	case code == 456:
		return "quota_exceeded"
	case code >= 500:
		return "server_error"
	case code >= 400:
		return "bad_request"
	default:
		return "unknown_error"
	}
}

// Save 保存统计数据到文件
func (m *Manager) Save() error {
	if m.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create stats directory: %w", err)
	}

	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats data: %w", err)
	}

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		return fmt.Errorf("failed to rename stats file: %w", err)
	}

	m.logger.Debug("backend stats saved", zap.String("path", m.path))
	return nil
}

// Load 从文件加载统计数据
func (m *Manager) Load() error {
	if m.path == "" {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Info("backend stats file not found, starting fresh", zap.String("path", m.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stats file: %w", err)
	}

	var loaded []BackendStats
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal stats data: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range loaded {
		s := loaded[i]
		if s.ErrorTypes == nil {
			s.ErrorTypes = make(map[string]int64)
		}
		m.stats[s.Backend] = &s
	}

	m.logger.Info("backend stats loaded", zap.String("path", m.path), zap.Int("backends", len(loaded)))
	return nil
}

// AutoSaveRoutine 定期保存统计数据，ctx 结束时最后保存一次
func (m *Manager) AutoSaveRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := m.Save(); err != nil {
				m.logger.Error("failed to save backend stats on shutdown", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := m.Save(); err != nil {
				m.logger.Error("failed to auto-save backend stats", zap.Error(err))
			}
		}
	}
}
