package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-upnpcp/internal/util/logger"
)

var log = logger.Logger("upnp/executor")

// cancelWait 取消 ctx 后等待任务退出的上限，忽略 ctx 的任务不会阻塞 Terminate
const cancelWait = time.Second

// Task 可提交到执行器的任务
//
// ctx 在执行器强制终止时被取消。
type Task func(ctx context.Context)

// TaskExecutor 任务执行器
type TaskExecutor interface {
	// Execute 提交任务，执行器已终止时返回 false
	Execute(task Task) bool

	// Terminate 终止执行器，幂等
	Terminate()

	// Terminated 是否已终止
	Terminated() bool
}

// ============================================================================
//                              goroutine 执行器
// ============================================================================

// unboundedExecutor 每个任务一个 goroutine
//
// Terminate 先等待在途任务完成（最长 graceTimeout），超时后取消 ctx，
// 再等待任务退出（最长 cancelWait）。
type unboundedExecutor struct {
	name         string
	graceTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	terminated bool
	wg         sync.WaitGroup
}

// NewUnbounded 创建不限并发的执行器
//
// graceTimeout <= 0 时 Terminate 立即取消在途任务。
func NewUnbounded(name string, graceTimeout time.Duration) TaskExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	return &unboundedExecutor{
		name:         name,
		graceTimeout: graceTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (e *unboundedExecutor) Execute(task Task) bool {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return false
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		run(e.ctx, e.name, task)
	}()
	return true
}

func (e *unboundedExecutor) Terminate() {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return
	}
	e.terminated = true
	e.mu.Unlock()

	if e.graceTimeout > 0 && !waitTimeout(&e.wg, e.graceTimeout) {
		log.Warn("等待任务结束超时，强制取消", "executor", e.name, "timeout", e.graceTimeout)
	}
	e.cancel()
	if !waitTimeout(&e.wg, cancelWait) {
		log.Warn("任务未响应取消，不再等待", "executor", e.name, "timeout", cancelWait)
	}
}

func (e *unboundedExecutor) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

// ============================================================================
//                              串行执行器
// ============================================================================

// serialExecutor 单 goroutine 串行执行，队列不设上限
//
// Terminate 立即取消，丢弃尚未开始的任务。空闲时等待工作 goroutine 退出；
// 有任务在执行时（包括在任务内调用 Terminate）不等待，该任务返回后工作
// goroutine 即退出，不再执行新任务。
type serialExecutor struct {
	name string

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []Task
	terminated bool
	running    bool

	done chan struct{}
}

// NewSerial 创建串行执行器
func NewSerial(name string) TaskExecutor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &serialExecutor{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.loop()
	return e
}

func (e *serialExecutor) Execute(task Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return false
	}
	e.queue = append(e.queue, task)
	e.cond.Signal()
	return true
}

func (e *serialExecutor) loop() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.terminated {
			e.cond.Wait()
		}
		if e.terminated {
			e.mu.Unlock()
			return
		}
		task := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.running = true
		e.mu.Unlock()

		run(e.ctx, e.name, task)

		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}
}

func (e *serialExecutor) Terminate() {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return
	}
	e.terminated = true
	running := e.running
	dropped := len(e.queue)
	e.queue = nil
	e.cond.Broadcast()
	e.mu.Unlock()

	if dropped > 0 {
		log.Debug("丢弃未执行任务", "executor", e.name, "count", dropped)
	}
	e.cancel()
	if running {
		return
	}
	<-e.done
}

func (e *serialExecutor) Terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated
}

// ============================================================================
//                              辅助函数
// ============================================================================

// run 执行任务，任务 panic 不影响执行器
func run(ctx context.Context, name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("任务 panic", "executor", name, "panic", fmt.Sprint(r))
		}
	}()
	task(ctx)
}

// waitTimeout 等待 WaitGroup，超时返回 false
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
