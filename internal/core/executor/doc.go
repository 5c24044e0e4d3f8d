// Package executor 提供三个相互独立的任务执行上下文
//
//   - IO: 阻塞 I/O（HTTP 请求、事件连接处理），每个任务一个 goroutine，不设上限
//   - Manager: 周期性管理工作（订阅续期扫描、设备过期扫描），单 goroutine 串行执行
//   - Callback: 用户回调投递，单 goroutine 串行执行，与 I/O 和定时器隔离
//
// 所有执行器都提供相同的语义：
//
//	ok := ex.Execute(func(ctx context.Context) { ... })
//	ex.Terminate()
//
// Execute 在执行器终止后返回 false。Terminate 幂等且不可逆；
// 任务通过 ctx 感知强制取消。
package executor
