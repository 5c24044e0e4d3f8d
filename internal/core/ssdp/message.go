package ssdp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
)

// NTS 取值
const (
	NTSAlive  = "ssdp:alive"
	NTSByebye = "ssdp:byebye"
	NTSUpdate = "ssdp:update"
)

// 搜索相关常量
const (
	// ManDiscover MAN 头取值（含引号）
	ManDiscover = `"ssdp:discover"`

	// STAll 搜索全部设备与服务
	STAll = "ssdp:all"

	// STRootDevice 只搜索根设备
	STRootDevice = "upnp:rootdevice"
)

// DefaultMaxAge Cache-Control 缺失或无法解析时的 max-age（秒）
const DefaultMaxAge = 1800

// pinnedExpireTime 固定注册消息的过期时间
var pinnedExpireTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Kind 消息类别
type Kind int

const (
	// KindRequest NOTIFY / M-SEARCH 请求
	KindRequest Kind = iota
	// KindResponse 搜索响应
	KindResponse
)

// Message SSDP 消息
//
// 请求与响应共用同一结构，由 Kind 区分；头部与版本由嵌入的
// httpmsg.Message 承载。uuid、type、max-age 与过期时间在解析时推导。
type Message struct {
	httpmsg.Message

	// Kind 消息类别
	Kind Kind

	// Method / URI 请求字段
	Method string
	URI    string

	// StatusCode / Reason 响应字段
	StatusCode int
	Reason     string

	uuid       string
	typ        string
	nts        string
	location   string
	maxAge     int
	expireTime time.Time
	pinned     bool
	scopeID    int
	localAddr  netip.Addr
}

// NewRequest 创建待发送的 SSDP 请求
func NewRequest(method, uri string) *Message {
	return &Message{
		Message: httpmsg.Message{Version: httpmsg.HTTP11},
		Kind:    KindRequest,
		Method:  method,
		URI:     uri,
	}
}

// NewPinnedMessage 创建固定注册设备使用的消息
//
// 它永不过期，NTS 固定为 ssdp:alive，没有头部，本地地址在
// 首次与设备通信后通过 SetLocalAddr 补充。
func NewPinnedMessage(location string) *Message {
	return &Message{
		Message:    httpmsg.Message{Version: httpmsg.HTTP11},
		Kind:       KindRequest,
		Method:     httpmsg.MethodNotify,
		URI:        "*",
		nts:        NTSAlive,
		location:   location,
		maxAge:     math.MaxInt32,
		expireTime: pinnedExpireTime,
		pinned:     true,
	}
}

// Parse 解析数据报
//
// localAddr 为接收网卡地址，scopeID 为 IPv6 接收网卡索引（IPv4 为 0），
// now 为接收时刻，用于计算过期时间。
func Parse(data []byte, localAddr netip.Addr, scopeID int, now time.Time) (*Message, error) {
	// 部分设备省略结尾空行
	r := io.MultiReader(bytes.NewReader(data), strings.NewReader("\r\n\r\n"))
	line, header, err := httpmsg.ReadHeader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	m := &Message{
		Message:   httpmsg.Message{Header: header},
		localAddr: localAddr,
		scopeID:   scopeID,
	}
	if strings.HasPrefix(line, "HTTP/") {
		var r httpmsg.Response
		if err := r.SetStartLine(line); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		m.Kind, m.Version, m.StatusCode, m.Reason = KindResponse, r.Version, r.StatusCode, r.Reason
	} else {
		var r httpmsg.Request
		if err := r.SetStartLine(line); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		m.Kind, m.Version, m.Method, m.URI = KindRequest, r.Version, r.Method, r.URI
	}

	m.derive(now)
	return m, nil
}

func (m *Message) derive(now time.Time) {
	m.uuid, m.typ = parseUSN(m.Header.Get(httpmsg.HeaderUSN))
	m.maxAge = parseMaxAge(m.Header.Get(httpmsg.HeaderCacheControl))
	m.expireTime = now.Add(time.Duration(m.maxAge) * time.Second)
	m.nts = m.Header.Get(httpmsg.HeaderNTS)
	m.location = m.Header.Get(httpmsg.HeaderLocation)
}

// parseUSN 将 uuid:xxx::type 拆分为 uuid 与 type
func parseUSN(usn string) (uuid, typ string) {
	if !strings.HasPrefix(usn, "uuid") {
		return "", ""
	}
	uuid, typ, _ = strings.Cut(usn, "::")
	return uuid, typ
}

// parseMaxAge 从 Cache-Control 中读取 max-age
func parseMaxAge(cacheControl string) int {
	s := strings.ToLower(cacheControl)
	i := strings.Index(s, "max-age")
	if i < 0 {
		return DefaultMaxAge
	}
	s = s[i+len("max-age"):]
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return DefaultMaxAge
	}
	s = s[eq+1:]
	if end := strings.IndexByte(s, ','); end >= 0 {
		s = s[:end]
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return DefaultMaxAge
	}
	return n
}

// ============================================================================
//                              访问器
// ============================================================================

// UUID 返回 USN 中的 uuid 部分（含 "uuid:" 前缀）
func (m *Message) UUID() string { return m.uuid }

// SetUUID 设置 uuid，固定注册消息在读取描述文件后补充
func (m *Message) SetUUID(uuid string) { m.uuid = uuid }

// Type 返回 USN 中 "::" 之后的类型部分
func (m *Message) Type() string { return m.typ }

// NTS 返回 NTS 头，搜索响应为空
func (m *Message) NTS() string { return m.nts }

// MaxAge 返回 max-age（秒）
func (m *Message) MaxAge() int { return m.maxAge }

// ExpireTime 返回过期时间
func (m *Message) ExpireTime() time.Time { return m.expireTime }

// Expired 在 now 时刻是否已过期
func (m *Message) Expired(now time.Time) bool {
	return !m.pinned && now.After(m.expireTime)
}

// Location 返回 Location 头原文
func (m *Message) Location() string { return m.location }

// LocationURL 返回附加了 scope id 的 Location
func (m *Message) LocationURL() (*url.URL, error) {
	return httpmsg.URLWithScopeID(m.location, m.scopeID)
}

// IsPinned 是否为固定注册消息
func (m *Message) IsPinned() bool { return m.pinned }

// ScopeID 返回 IPv6 接收网卡索引，IPv4 为 0
func (m *Message) ScopeID() int { return m.scopeID }

// LocalAddr 返回接收网卡地址，固定注册消息在首次通信前无效
func (m *Message) LocalAddr() netip.Addr { return m.localAddr }

// SetLocalAddr 设置本地地址
func (m *Message) SetLocalAddr(addr netip.Addr) { m.localAddr = addr }

// ============================================================================
//                              序列化
// ============================================================================

// StartLine 返回起始行
func (m *Message) StartLine() string {
	if m.Kind == KindResponse {
		return m.Version + " " + strconv.Itoa(m.StatusCode) + " " + m.Reason
	}
	return m.Method + " " + m.URI + " " + m.Version
}

// Bytes 返回数据报内容
func (m *Message) Bytes() []byte {
	var buf bytes.Buffer
	m.Encode(&buf, m.StartLine())
	return buf.Bytes()
}

// String 返回便于日志输出的文本
func (m *Message) String() string {
	return string(m.Bytes())
}
