package config

import (
	"errors"
	"runtime"
	"strings"
)

// 默认产品信息
const (
	DefaultProductName    = "upnpcp"
	DefaultProductVersion = "1.0.0"
)

// Product 产品信息
//
// 启动时构造一次，以值传递给 HTTP 客户端、订阅管理器与事件服务器，
// 用于生成 User-Agent 与 Server 头。
type Product struct {
	// Name 产品名
	Name string `json:"name" yaml:"name"`

	// Version 产品版本
	Version string `json:"version" yaml:"version"`
}

// DefaultProduct 返回默认产品信息
func DefaultProduct() Product {
	return Product{Name: DefaultProductName, Version: DefaultProductVersion}
}

// UserAgent 返回 "OS/版本 UPnP/1.0 产品/版本" 形式的标识
func (p Product) UserAgent() string {
	var sb strings.Builder
	sb.WriteString(runtime.GOOS)
	sb.WriteByte('/')
	sb.WriteString(strings.TrimPrefix(runtime.Version(), "go"))
	sb.WriteString(" UPnP/1.0 ")
	sb.WriteString(p.Name)
	sb.WriteByte('/')
	sb.WriteString(p.Version)
	return sb.String()
}

// Validate 验证产品信息
func (p Product) Validate() error {
	if p.Name == "" || p.Version == "" {
		return errors.New("product name and version must not be empty")
	}
	if strings.ContainsAny(p.Name+p.Version, " /\r\n") {
		return errors.New("product name and version must not contain spaces, slashes or newlines")
	}
	return nil
}
