package mergeinsert

import "cmp"

// boundedBinarySearch 在有序主链的 [left, right) 区间内查找 value 的插入位置。
// 每次比较 value <= chain[mid] 计数一次；返回第一个满足 value <= chain[i] 的下标，
// 区间内不存在时返回 right。
func boundedBinarySearch[T cmp.Ordered](c *counter, chain Chain[T], value T, left, right int) int {
	for left < right {
		mid := left + (right-left)/2
		if lessOrEqual(c, value, chain.At(mid)) {
			right = mid
		} else {
			left = mid + 1
		}
	}
	return left
}
