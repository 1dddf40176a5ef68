package mergeinsert

import (
	"math/big"
	"math/bits"

	"github.com/wyfcoding/pmergeme/cast"
)

// MaxComparisons 返回 Ford-Johnson 算法对 n 个元素的最坏比较次数
//
//	F(n) = Σ_{k=1..n} ⌈log2(3k/4)⌉
//
// ⌈log2(3k/4)⌉ = ⌈log2(3k)⌉ - 2，用整数位长计算，避免浮点误差。
func MaxComparisons(n int) int {
	total := 0
	for k := 1; k <= n; k++ {
		total += ceilLog2(3*k) - 2
	}
	return total
}

// InformationBound 返回比较排序的信息论下界 ⌈log2(n!)⌉。
func InformationBound(n int) int {
	if n < 2 {
		return 0
	}
	f := new(big.Int).MulRange(1, int64(n))
	return f.Sub(f, big.NewInt(1)).BitLen()
}

// ceilLog2 返回 ⌈log2(x)⌉，x >= 1。
func ceilLog2(x int) int {
	return bits.Len64(cast.IntToUint64(x - 1))
}
