package description

import "errors"

var (
	// ErrNoLocation SSDP 消息没有 Location
	ErrNoLocation = errors.New("description: message has no location")

	// ErrUDNMismatch 描述文件的 UDN 与 SSDP 消息的 uuid 不一致
	ErrUDNMismatch = errors.New("description: udn does not match ssdp uuid")
)
