//go:build unix

package ssdp

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseControl 设置 SO_REUSEADDR 和 SO_REUSEPORT
//
// 每块网卡各自绑定 1900 端口，需要端口复用。
func reuseControl(_, _ string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			opErr = fmt.Errorf("set SO_REUSEADDR: %w", err)
			return
		}
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
			log.Debug("设置 SO_REUSEPORT 失败（某些系统不支持）", "err", err)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}
