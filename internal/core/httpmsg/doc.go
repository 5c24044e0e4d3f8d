// Package httpmsg 实现客户端与服务端共用的 HTTP/1.x 消息编解码
//
// SSDP、GENA 事件服务器以及 HTTP 客户端都基于它进行报文读写，
// 不依赖 net/http 的连接管理，以便精确控制起始行、头部顺序与分块编码。
//
// # 读取
//
//	resp, err := httpmsg.ReadResponse(bufio.NewReader(conn))
//
// 起始行为空或格式错误时返回错误；头部行按第一个冒号切分，
// 无冒号的行被忽略；主体按 Content-Length 或 chunked 读取。
//
// # 写入
//
//	req := httpmsg.NewRequest("SUBSCRIBE")
//	req.SetURL(u, true)
//	req.Header.Set(httpmsg.HeaderNT, httpmsg.ValueUPnPEvent)
//	err := req.Write(conn)
package httpmsg
