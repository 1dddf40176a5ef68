// Package algorithm 提供排序相关的辅助分析算法。
package algorithm

import "cmp"

// CountInversions 计算序列中逆序对的数量。
// 逆序对是指在一个序列中，a[i] > a[j] 且 i < j 的一对元素，可用于衡量输入距离有序的程度：
// 已排序序列为 0，严格逆序的 n 个元素为 n(n-1)/2。
// 利用归并排序的思想，时间复杂度为 O(n log n)，不修改 data。
func CountInversions[T cmp.Ordered](data []T) int64 {
	if len(data) <= 1 {
		return 0
	}

	arr := make([]T, len(data)) // 创建副本进行处理。
	copy(arr, data)
	buf := make([]T, len(data))
	return mergeSortCount(arr, buf)
}

// mergeSortCount 递归排序 arr 并返回其中的逆序对数量。buf 与 arr 等长，作为合并暂存区。
func mergeSortCount[T cmp.Ordered](arr, buf []T) int64 {
	if len(arr) <= 1 {
		return 0
	}

	mid := len(arr) / 2
	count := mergeSortCount(arr[:mid], buf[:mid])
	count += mergeSortCount(arr[mid:], buf[mid:])
	return count + mergeCount(arr, buf, mid)
}

// mergeCount 合并 arr[:mid] 与 arr[mid:]，返回跨越两段的逆序对数量。
func mergeCount[T cmp.Ordered](arr, buf []T, mid int) int64 {
	copy(buf, arr)
	left, right := buf[:mid], buf[mid:]

	i, j, k := 0, 0, 0
	var count int64
	for i < len(left) && j < len(right) {
		if left[i] <= right[j] {
			arr[k] = left[i]
			i++
		} else {
			arr[k] = right[j]
			// left[i] > right[j] 时，left 中剩余的元素都比 right[j] 大。
			count += int64(len(left) - i)
			j++
		}
		k++
	}

	k += copy(arr[k:], left[i:])
	copy(arr[k:], right[j:])
	return count
}
