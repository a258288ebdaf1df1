package providers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestNewStatusErrorTruncatesMultibyteBody(t *testing.T) {
	body := strings.Repeat("評価エラー", 60)
	err := NewStatusError("deepl", http.StatusBadRequest, body)

	assert.True(t, utf8.ValidString(err.Message))
	assert.True(t, strings.HasPrefix(err.Message, "bad request: 評価エラー"))
	assert.True(t, strings.HasSuffix(err.Message, "..."))

	detail := strings.TrimPrefix(err.Message, "bad request: ")
	assert.LessOrEqual(t, runewidth.StringWidth(detail), maxErrorBodyWidth)
}

func TestNewStatusErrorKeepsShortBody(t *testing.T) {
	err := NewStatusError("google", http.StatusForbidden, "  Lỗi xác thực  ")
	assert.Equal(t, "authentication failed: Lỗi xác thực", err.Message)
	assert.Equal(t, "backend google (HTTP 403): authentication failed: Lỗi xác thực", err.Error())

	err = NewStatusError("google", http.StatusServiceUnavailable, "")
	assert.Equal(t, "service temporarily unavailable", err.Message)
}

func TestBackendErrorIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *BackendError
		want bool
	}{
		{"too many requests", &BackendError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &BackendError{StatusCode: http.StatusBadGateway}, true},
		{"timeout", NewBackendError("b", context.DeadlineExceeded), true},
		{"quota exceeded", &BackendError{StatusCode: 456}, false},
		{"unauthorized", &BackendError{StatusCode: http.StatusUnauthorized}, false},
		{"canceled", NewBackendError("b", context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.IsRetryable())
		})
	}
}
