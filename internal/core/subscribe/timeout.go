package subscribe

import (
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout TIMEOUT 头缺失、无法解析或为 infinite 时使用的订阅时长
const DefaultTimeout = 300 * time.Second

// ParseTimeout 解析 TIMEOUT 头
//
// "Second-N" 返回 N 秒；空值、infinite 或其他形式返回 DefaultTimeout。
func ParseTimeout(value string) time.Duration {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || strings.Contains(v, "infinite") {
		return DefaultTimeout
	}
	const prefix = "second-"
	i := strings.Index(v, prefix)
	if i < 0 {
		return DefaultTimeout
	}
	n, err := strconv.Atoi(v[i+len(prefix):])
	if err != nil {
		log.Debug("无法解析 TIMEOUT", "value", value, "err", err)
		return DefaultTimeout
	}
	return time.Duration(n) * time.Second
}

// FormatTimeout 生成 TIMEOUT 头
func FormatTimeout(d time.Duration) string {
	return "Second-" + strconv.FormatInt(int64(d/time.Second), 10)
}
