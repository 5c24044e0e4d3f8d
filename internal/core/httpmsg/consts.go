package httpmsg

// HTTP 版本
const (
	HTTP10 = "HTTP/1.0"
	HTTP11 = "HTTP/1.1"

	// DefaultVersion 新建消息使用的版本
	DefaultVersion = HTTP11
)

// 方法
const (
	MethodGet         = "GET"
	MethodPost        = "POST"
	MethodNotify      = "NOTIFY"
	MethodMSearch     = "M-SEARCH"
	MethodSubscribe   = "SUBSCRIBE"
	MethodUnsubscribe = "UNSUBSCRIBE"
)

// 头部名称
//
// 头部查找不区分大小写，这里的写法只影响序列化结果。
const (
	HeaderHost             = "HOST"
	HeaderMan              = "MAN"
	HeaderMX               = "MX"
	HeaderST               = "ST"
	HeaderNT               = "NT"
	HeaderNTS              = "NTS"
	HeaderUSN              = "USN"
	HeaderLocation         = "Location"
	HeaderCacheControl     = "Cache-Control"
	HeaderServer           = "Server"
	HeaderUserAgent        = "User-Agent"
	HeaderSID              = "SID"
	HeaderSEQ              = "SEQ"
	HeaderCallback         = "CALLBACK"
	HeaderTimeout          = "TIMEOUT"
	HeaderConnection       = "Connection"
	HeaderContentType      = "Content-Type"
	HeaderContentLength    = "Content-Length"
	HeaderTransferEncoding = "Transfer-Encoding"
	HeaderDate             = "Date"
)

// 头部取值
const (
	ValueKeepAlive      = "keep-alive"
	ValueClose          = "close"
	ValueChunked        = "chunked"
	ValueUPnPEvent      = "upnp:event"
	ValueUPnPPropChange = "upnp:propchange"
	ValueTextXML        = `text/xml; charset="utf-8"`
)

const (
	// DefaultChunkSize chunked 写出时每块的字节数
	DefaultChunkSize = 1024

	// maxLineLength 单行长度上限
	maxLineLength = 8 * 1024

	// maxBodySize 主体长度上限
	maxBodySize = 32 << 20
)
