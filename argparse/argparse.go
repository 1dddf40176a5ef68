// Package argparse 把命令行参数解析为待排序的正整数序列。
// 所有函数都是无状态的纯函数。
package argparse

import (
	"math"
	"strconv"

	"github.com/wyfcoding/pmergeme/cast"
	"github.com/wyfcoding/pmergeme/xerrors"
)

// IsAllDigits 判断 s 是否只包含 ASCII 数字。空字符串返回 true。
func IsAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseToken 把一个参数解析为 [1, MaxUint32] 内的整数。
// 不接受符号、空白、前缀或小数点；前导零允许（"007" 为 7）。
func ParseToken(s string) (uint32, error) {
	if s == "" {
		return 0, xerrors.ErrEmptyToken.Copy()
	}
	if !IsAllDigits(s) {
		return 0, xerrors.ErrNotDigits.Copy().WithContext("token", s)
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		// 只剩溢出一种可能。
		return 0, xerrors.ErrOutOfRange.Copy().WithContext("token", s).WithCause(err)
	}
	if v == 0 {
		return 0, xerrors.ErrZeroValue.Copy().WithContext("token", s)
	}
	if v > math.MaxUint32 {
		return 0, xerrors.ErrOutOfRange.Copy().WithContext("token", s)
	}
	return cast.Uint64ToUint32(v), nil
}

// ParseArgs 依次解析所有参数，遇到第一个非法参数即返回错误，错误上下文中带有参数位置。
// 参数列表为空时返回 ErrEmptyInput。
func ParseArgs(args []string) ([]uint32, error) {
	if len(args) == 0 {
		return nil, xerrors.ErrEmptyInput.Copy()
	}

	out := make([]uint32, 0, len(args))
	for i, arg := range args {
		v, err := ParseToken(arg)
		if err != nil {
			if e, ok := xerrors.FromError(err); ok {
				e.WithContext("position", i)
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
