package translation

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey 由原文和语言对计算缓存键，跨进程和平台稳定
func CacheKey(text, sourceLang, targetLang string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{'|'})
	h.Write([]byte(sourceLang))
	h.Write([]byte{'|'})
	h.Write([]byte(targetLang))
	return hex.EncodeToString(h.Sum(nil))
}
