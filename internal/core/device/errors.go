package device

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingFields 缺少必填字段
var ErrMissingFields = errors.New("device: missing required fields")

// MissingFieldsError 列出构造时缺少的全部必填字段
type MissingFieldsError struct {
	// Kind "device" 或 "service"
	Kind string

	// Fields 缺少的字段名
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("device: %s missing required fields: %s", e.Kind, strings.Join(e.Fields, ", "))
}

// Unwrap 返回 ErrMissingFields
func (e *MissingFieldsError) Unwrap() error {
	return ErrMissingFields
}

// requireFields 按顺序检查 name/value 对，返回缺失字段
func requireFields(kind string, pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingFieldsError{Kind: kind, Fields: missing}
}
