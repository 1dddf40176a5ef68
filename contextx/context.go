// Package contextx 提供在 context.Context 中注入与提取运行上下文（运行 ID、存储结构、输入规模）的工具函数。
// 使用私有类型作为 Key，防止跨包的 Key 冲突。logging 的 Handler 会把这些值自动写入日志。
package contextx

import (
	"context"
)

type contextKey int

const (
	RunIDKey   contextKey = iota // 运行 ID Key。
	BackingKey                   // 主链存储结构 Key。
	SizeKey                      // 输入规模 Key。
)

// AllKeys 返回所有标准运行上下文 Key。
var AllKeys = []contextKey{
	RunIDKey,
	BackingKey,
	SizeKey,
}

// KeyNames 映射 Key 到日志字段名。
var KeyNames = map[contextKey]string{
	RunIDKey:   "run_id",
	BackingKey: "backing",
	SizeKey:    "size",
}

// WithRunID 将运行 ID 注入到 Context 中，空字符串不注入。
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID 从 Context 中提取运行 ID。
func GetRunID(ctx context.Context) string {
	if val, ok := ctx.Value(RunIDKey).(string); ok {
		return val
	}
	return ""
}

// WithBacking 将主链存储结构名称注入到 Context 中。
func WithBacking(ctx context.Context, backing string) context.Context {
	return context.WithValue(ctx, BackingKey, backing)
}

// GetBacking 从 Context 中提取存储结构名称。
func GetBacking(ctx context.Context) string {
	if val, ok := ctx.Value(BackingKey).(string); ok {
		return val
	}
	return ""
}

// WithSize 将输入规模注入到 Context 中。
func WithSize(ctx context.Context, size int) context.Context {
	return context.WithValue(ctx, SizeKey, size)
}

// GetSize 从 Context 中提取输入规模，不存在时返回 -1。
func GetSize(ctx context.Context) int {
	if val, ok := ctx.Value(SizeKey).(int); ok {
		return val
	}
	return -1
}

// Fields 返回 Context 中存在的全部运行上下文，按 AllKeys 顺序排列为日志键值对。
func Fields(ctx context.Context) []any {
	var fields []any
	for _, key := range AllKeys {
		if val := ctx.Value(key); val != nil {
			fields = append(fields, KeyNames[key], val)
		}
	}
	return fields
}
