package types

// Property GENA 事件中的一个状态变量
type Property struct {
	// Name 状态变量名
	Name string `json:"name"`

	// Value 状态变量值（原始文本）
	Value string `json:"value"`
}
