package executor

import (
	"context"
	"sync/atomic"
)

// directExecutor 在调用方 goroutine 中同步执行任务
//
// 用于测试以及不需要隔离的场景。
type directExecutor struct {
	terminated atomic.Bool
}

// NewDirect 创建同步执行器
func NewDirect() TaskExecutor {
	return &directExecutor{}
}

// NewDirectExecutors 创建三个同步执行器组成的集合（测试用）
func NewDirectExecutors() *Executors {
	return NewWith(NewDirect(), NewDirect(), NewDirect())
}

func (e *directExecutor) Execute(task Task) bool {
	if e.terminated.Load() {
		return false
	}
	run(context.Background(), "direct", task)
	return true
}

func (e *directExecutor) Terminate() {
	e.terminated.Store(true)
}

func (e *directExecutor) Terminated() bool {
	return e.terminated.Load()
}
