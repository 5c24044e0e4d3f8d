package executor

import "time"

// DefaultIOGraceTimeout I/O 执行器终止时的等待时间
const DefaultIOGraceTimeout = time.Second

// Config 执行器配置
type Config struct {
	// IOGraceTimeout I/O 执行器终止时等待在途任务的时间
	IOGraceTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{IOGraceTimeout: DefaultIOGraceTimeout}
}

// Executors 三个执行上下文的集合
type Executors struct {
	io       TaskExecutor
	manager  TaskExecutor
	callback TaskExecutor
}

// New 创建执行器集合
func New(cfg Config) *Executors {
	return &Executors{
		io:       NewUnbounded("io", cfg.IOGraceTimeout),
		manager:  NewSerial("manager"),
		callback: NewSerial("callback"),
	}
}

// NewWith 使用指定的执行器创建集合（测试用）
func NewWith(io, manager, callback TaskExecutor) *Executors {
	return &Executors{io: io, manager: manager, callback: callback}
}

// IO 返回 I/O 执行器
func (e *Executors) IO() TaskExecutor { return e.io }

// Manager 返回管理执行器
func (e *Executors) Manager() TaskExecutor { return e.manager }

// Callback 返回回调执行器
func (e *Executors) Callback() TaskExecutor { return e.callback }

// Terminate 终止所有执行器
//
// 回调最先终止，I/O 最后，使 I/O 任务仍可以尝试投递回调而不会阻塞。
func (e *Executors) Terminate() {
	e.callback.Terminate()
	e.manager.Terminate()
	e.io.Terminate()
}
