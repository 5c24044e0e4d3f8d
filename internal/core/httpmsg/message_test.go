package httpmsg

import (
	"bufio"
	"bytes"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// ============================================================================
//                              Header 测试
// ============================================================================

func TestHeader(t *testing.T) {
	var h Header
	h.Set("Content-Type", "text/xml")
	h.Set("HOST", "192.0.2.1:80")
	h.Set("content-type", "text/plain")

	t.Run("不区分大小写", func(t *testing.T) {
		assert.Equal(t, "text/plain", h.Get("CONTENT-TYPE"))
		_, ok := h.Lookup("missing")
		assert.False(t, ok)
	})

	t.Run("覆盖保留插入顺序", func(t *testing.T) {
		var names []string
		h.Each(func(name, _ string) bool {
			names = append(names, name)
			return true
		})
		assert.Equal(t, []string{"content-type", "HOST"}, names)
	})

	t.Run("ContainsValue", func(t *testing.T) {
		assert.True(t, h.ContainsValue("content-type", "PLAIN"))
		assert.False(t, h.ContainsValue("missing", "x"))
	})

	t.Run("Del", func(t *testing.T) {
		c := h.Clone()
		c.Del("host")
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, 2, h.Len())
	})
}

// ============================================================================
//                              主体测试
// ============================================================================

func TestMessage_Body(t *testing.T) {
	t.Run("文本为准时派生字节", func(t *testing.T) {
		var m Message
		m.SetBodyString("ほげ", true)
		assert.Equal(t, []byte("ほげ"), m.Body())
		assert.Equal(t, "6", m.Header.Get(HeaderContentLength))
	})

	t.Run("字节为准时派生文本", func(t *testing.T) {
		var m Message
		m.SetBody([]byte("abc"), false)
		text, ok := m.BodyString()
		assert.True(t, ok)
		assert.Equal(t, "abc", text)
	})

	t.Run("非法 UTF-8 返回空视图", func(t *testing.T) {
		var m Message
		m.SetBody([]byte{0xff, 0xfe, 0xfd}, false)
		_, ok := m.BodyString()
		assert.False(t, ok)
		assert.Equal(t, []byte{0xff, 0xfe, 0xfd}, m.Body())
	})

	t.Run("空主体", func(t *testing.T) {
		var m Message
		assert.Nil(t, m.Body())
		_, ok := m.BodyString()
		assert.False(t, ok)

		m.SetBody([]byte{}, false)
		text, ok := m.BodyString()
		assert.True(t, ok)
		assert.Equal(t, "", text)
	})
}

func TestMessage_IsKeepAlive(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		connection string
		want       bool
	}{
		{"1.0 默认关闭", HTTP10, "", false},
		{"1.0 keep-alive", HTTP10, "Keep-Alive", true},
		{"1.1 默认保持", HTTP11, "", true},
		{"1.1 close", HTTP11, "Close", false},
		{"1.1 keep-alive", HTTP11, "keep-alive", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{Version: tt.version}
			if tt.connection != "" {
				m.Header.Set(HeaderConnection, tt.connection)
			}
			assert.Equal(t, tt.want, m.IsKeepAlive())
		})
	}
}

func TestMessage_ContentLength(t *testing.T) {
	var m Message
	assert.Equal(t, 0, m.ContentLength())
	m.Header.Set(HeaderContentLength, "abc")
	assert.Equal(t, 0, m.ContentLength())
	m.Header.Set(HeaderContentLength, " 12 ")
	assert.Equal(t, 12, m.ContentLength())
}

// ============================================================================
//                              chunked 测试
// ============================================================================

func TestChunked_RoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, DefaultChunkSize, DefaultChunkSize * 2, DefaultChunkSize*3 + 7} {
		body := bytes.Repeat([]byte("x"), size)
		resp := NewResponse(200)
		resp.Header.Set(HeaderTransferEncoding, ValueChunked)
		resp.SetBody(body, false)

		var buf bytes.Buffer
		require.NoError(t, resp.Write(&buf))
		assert.True(t, strings.HasSuffix(buf.String(), "0\r\n\r\n"))

		got, err := ReadResponse(bufio.NewReader(&buf))
		require.NoError(t, err, "size=%d", size)
		assert.Equal(t, body, got.Body(), "size=%d", size)
	}
}

func TestChunked_Format(t *testing.T) {
	resp := NewResponse(200)
	resp.Header.Set(HeaderTransferEncoding, ValueChunked)
	resp.SetBody(bytes.Repeat([]byte("a"), 1030), false)

	var buf bytes.Buffer
	require.NoError(t, resp.Write(&buf))
	s := buf.String()
	assert.Contains(t, s, "\r\n\r\n400\r\n")
	assert.Contains(t, s, "\r\n6\r\naaaaaa\r\n0\r\n\r\n")
}

func TestChunked_Read(t *testing.T) {
	t.Run("忽略分块扩展", func(t *testing.T) {
		raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"5;name=value\r\nhello\r\n1\r\n!\r\n0\r\n\r\n"
		resp, err := ReadResponse(reader(raw))
		require.NoError(t, err)
		text, _ := resp.BodyString()
		assert.Equal(t, "hello!", text)
	})

	t.Run("末尾缺少空行", func(t *testing.T) {
		raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n0\r\n"
		resp, err := ReadResponse(reader(raw))
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), resp.Body())
	})

	t.Run("长度行错误", func(t *testing.T) {
		raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\nabc\r\n0\r\n\r\n"
		_, err := ReadResponse(reader(raw))
		assert.True(t, errors.Is(err, ErrMalformedChunk))
	})
}

// ============================================================================
//                              读取测试
// ============================================================================

func TestReadLine(t *testing.T) {
	r := reader("a\r\nb\nc")
	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "a", line)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "b", line)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "c", line)

	_, err = readLine(r)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReadResponse(t *testing.T) {
	t.Run("Content-Length", func(t *testing.T) {
		raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\nBad line\r\nX-Empty:\r\n\r\nhelloextra"
		resp, err := ReadResponse(reader(raw))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "OK", resp.Reason)
		assert.Equal(t, []byte("hello"), resp.Body())
		assert.Equal(t, 2, resp.Header.Len())
	})

	t.Run("缺少 Content-Length 视为 0", func(t *testing.T) {
		resp, err := ReadResponse(reader("HTTP/1.1 404 Not Found\n\nbody"))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.Empty(t, resp.Body())
	})

	t.Run("起始行错误", func(t *testing.T) {
		for _, raw := range []string{"\r\n\r\n", "HTTP/1.1 200\r\n\r\n", "HTTP/1.1 abc OK\r\n\r\n"} {
			_, err := ReadResponse(reader(raw))
			assert.ErrorIs(t, err, ErrMalformedStartLine, raw)
		}
	})

	t.Run("空流", func(t *testing.T) {
		_, err := ReadResponse(reader(""))
		assert.ErrorIs(t, err, ErrUnexpectedEOF)
	})
}

func TestReadRequest(t *testing.T) {
	raw := "NOTIFY /event HTTP/1.1\r\nHOST: 192.0.2.1:8080\r\nSID: uuid:1\r\nContent-Length: 2\r\n\r\nok"
	req, err := ReadRequest(reader(raw))
	require.NoError(t, err)
	assert.Equal(t, MethodNotify, req.Method)
	assert.Equal(t, "/event", req.URI)
	assert.Equal(t, HTTP11, req.Version)
	assert.Equal(t, "uuid:1", req.Header.Get("sid"))

	_, err = ReadRequest(reader("NOTIFY\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformedStartLine)
}

// ============================================================================
//                              写入测试
// ============================================================================

func TestRequest_Write(t *testing.T) {
	u, err := url.Parse("http://192.0.2.2:12345/cds/event?x=1")
	require.NoError(t, err)

	req := NewRequest(MethodSubscribe)
	require.NoError(t, req.SetURL(u, true))
	req.Header.Set(HeaderNT, ValueUPnPEvent)
	req.Header.Set(HeaderContentLength, "0")

	assert.Equal(t, "192.0.2.2:12345", req.Address())

	var buf bytes.Buffer
	require.NoError(t, req.Write(&buf))
	assert.Equal(t, "SUBSCRIBE /cds/event?x=1 HTTP/1.1\r\n"+
		"HOST: 192.0.2.2:12345\r\n"+
		"NT: upnp:event\r\n"+
		"Content-Length: 0\r\n"+
		"\r\n", buf.String())
}

func TestRequest_SetURL(t *testing.T) {
	req := NewRequest(MethodGet)

	u, _ := url.Parse("http://192.0.2.2")
	require.NoError(t, req.SetURL(u, true))
	assert.Equal(t, "/", req.URI)
	assert.Equal(t, "192.0.2.2:80", req.Address())

	u, _ = url.Parse("https://192.0.2.2/")
	assert.ErrorIs(t, req.SetURL(u, true), ErrInvalidURL)

	u, _ = url.Parse("http://[fe80::1%253]:8080/a")
	require.NoError(t, req.SetURL(u, true))
	assert.Equal(t, "[fe80::1%3]:8080", req.Address())
	assert.Equal(t, "[fe80::1]:8080", req.Header.Get(HeaderHost))
}

func TestResponse_RoundTrip(t *testing.T) {
	resp := NewResponse(412)
	assert.Equal(t, "Precondition Failed", resp.Reason)
	resp.Header.Set(HeaderConnection, ValueClose)
	resp.SetBodyString("<a/>", true)

	var buf bytes.Buffer
	require.NoError(t, resp.Write(&buf))

	got, err := ReadResponse(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, 412, got.StatusCode)
	assert.False(t, got.IsKeepAlive())
	text, _ := got.BodyString()
	assert.Equal(t, "<a/>", text)
}

func TestResponse_IsRedirect(t *testing.T) {
	for _, code := range []int{301, 302, 303, 307, 308} {
		assert.True(t, NewResponse(code).IsRedirect(), code)
	}
	for _, code := range []int{200, 304, 404} {
		assert.False(t, NewResponse(code).IsRedirect(), code)
	}
}

// ============================================================================
//                              URL 测试
// ============================================================================

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, IsHTTPURL("http://192.0.2.1/"))
	assert.True(t, IsHTTPURL("HTTP://192.0.2.1/"))
	assert.False(t, IsHTTPURL("https://192.0.2.1/"))
	assert.False(t, IsHTTPURL("http://"))
	assert.False(t, IsHTTPURL(""))
}

func TestURLWithScopeID(t *testing.T) {
	t.Run("附加 zone", func(t *testing.T) {
		u, err := URLWithScopeID("http://[fe80::1234]:8888/device.xml", 1)
		require.NoError(t, err)
		assert.Equal(t, "http://[fe80::1234%251]:8888/device.xml", u.String())
		assert.Equal(t, "fe80::1234%1", u.Hostname())
	})

	t.Run("替换已有 zone", func(t *testing.T) {
		u, err := URLWithScopeID("http://[fe80::1234%252]:8888/device.xml", 1)
		require.NoError(t, err)
		assert.Equal(t, "fe80::1234%1", u.Hostname())
	})

	t.Run("无端口", func(t *testing.T) {
		u, err := URLWithScopeID("http://[fe80::1234]/device.xml", 3)
		require.NoError(t, err)
		assert.Equal(t, "http://[fe80::1234%253]/device.xml", u.String())
	})

	t.Run("IPv4 与 scope 0 保持不变", func(t *testing.T) {
		u, err := URLWithScopeID("http://192.0.2.1:8888/device.xml", 1)
		require.NoError(t, err)
		assert.Equal(t, "http://192.0.2.1:8888/device.xml", u.String())

		u, err = URLWithScopeID("http://[fe80::1234]:8888/device.xml", 0)
		require.NoError(t, err)
		assert.Equal(t, "http://[fe80::1234]:8888/device.xml", u.String())
	})
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		base string
		ref  string
		want string
	}{
		{"http://10.0.0.1:1000/", "http://10.0.0.1:1000/hoge/fuga", "http://10.0.0.1:1000/hoge/fuga"},
		{"http://10.0.0.1:1000/", "/hoge/fuga", "http://10.0.0.1:1000/hoge/fuga"},
		{"http://10.0.0.1:1000/hoge/fuga", "fuga", "http://10.0.0.1:1000/hoge/fuga"},
		{"http://10.0.0.1:1000/hoge/fuga/", "fuga", "http://10.0.0.1:1000/hoge/fuga/fuga"},
		{"http://10.0.0.1:1000/hoge/fuga?a=foo&b=bar", "fuga", "http://10.0.0.1:1000/hoge/fuga"},
		{"http://10.0.0.1:1000", "fuga", "http://10.0.0.1:1000/fuga"},
	}
	for _, tt := range tests {
		t.Run(tt.base+"+"+tt.ref, func(t *testing.T) {
			u, err := AbsoluteURL(tt.base, tt.ref, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}

	u, err := AbsoluteURL("http://[fe80::1]:1000/desc.xml", "/event", 4)
	require.NoError(t, err)
	assert.Equal(t, "http://[fe80::1%254]:1000/event", u.String())
}

func TestDate(t *testing.T) {
	want := time.Date(2016, time.July, 5, 6, 7, 8, 0, time.UTC)
	for _, s := range []string{
		"Tue, 05 Jul 2016 06:07:08 GMT",
		"Tuesday, 05-Jul-16 06:07:08 GMT",
		"Tue Jul  5 06:07:08 2016",
	} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}
	assert.Equal(t, "Tue, 05 Jul 2016 06:07:08 GMT", FormatDate(want))
}
