package executor

import "errors"

var (
	// ErrTerminated 执行器已终止
	ErrTerminated = errors.New("executor: terminated")
)
