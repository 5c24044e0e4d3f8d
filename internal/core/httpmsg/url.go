package httpmsg

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// IsHTTPURL 是否为 http:// 开头的 URL
func IsHTTPURL(s string) bool {
	return len(s) > len("http://") && strings.EqualFold(s[:len("http://")], "http://")
}

// URLWithScopeID 为 IPv6 字面量主机附加 zone
//
// 已有 zone 时被替换；scopeID 为 0 或主机不是 IPv6 字面量时原样返回。
// 结果的 String() 采用 RFC 6874 形式（%25），Hostname() 返回 fe80::1%3 形式。
func URLWithScopeID(raw string, scopeID int) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	applyScopeID(u, scopeID)
	return u, nil
}

// AbsoluteURL 以 base 为基准解析 ref
//
// ref 本身是 http URL 时直接使用；scopeID 的处理同 URLWithScopeID。
func AbsoluteURL(base, ref string, scopeID int) (*url.URL, error) {
	if IsHTTPURL(ref) {
		return URLWithScopeID(ref, scopeID)
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	u := b.ResolveReference(r)
	applyScopeID(u, scopeID)
	return u, nil
}

func applyScopeID(u *url.URL, scopeID int) {
	if scopeID == 0 {
		return
	}
	addr, err := netip.ParseAddr(u.Hostname())
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return
	}
	host := addr.WithZone(strconv.Itoa(scopeID)).String()
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = "[" + host + "]"
	}
}

// ParseDate 解析 HTTP 日期（RFC 1123、RFC 850、ANSI C）
func ParseDate(s string) (time.Time, error) {
	return http.ParseTime(s)
}

// FormatDate 按 RFC 1123 格式化时间
func FormatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
