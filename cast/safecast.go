// Package cast 提供整数宽度转换。调用方负责事先完成范围检查。
package cast

import "unsafe"

// As 是一个泛型转换函数，通过 unsafe 直接读取内存。
// 警告：仅限用于同宽度类型之间的位读取（如 int64 -> uint64）。
func As[T any, F any](from F) T {
	return *(*T)(unsafe.Pointer(&from))
}

func Int64ToUint64(i int64) uint64 { return As[uint64](i) }
func Uint64ToInt64(u uint64) int64 { return As[int64](u) }

// IntToUint64 要求 i >= 0。
func IntToUint64(i int) uint64 { return uint64(i) } //nolint:gosec // 调用方保证非负.

// Uint64ToUint32 截取低 32 位。
func Uint64ToUint32(u uint64) uint32 { return uint32(u & 0xFFFFFFFF) }

// Int64ToUint16 截取低 16 位。
func Int64ToUint16(i int64) uint16 { return uint16(i & 0xFFFF) }
