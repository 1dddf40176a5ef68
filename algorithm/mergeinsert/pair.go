package mergeinsert

import "cmp"

// Pair 是相邻两个输入元素比较一次后得到的有序对，Small <= Large。
type Pair[T cmp.Ordered] struct {
	Small T
	Large T
}

// counter 记录元素之间的比较次数。每次排序独占一个实例。
type counter struct {
	n int
}

// less 计数并返回 a < b。
func less[T cmp.Ordered](c *counter, a, b T) bool {
	c.n++
	return a < b
}

// lessOrEqual 计数并返回 a <= b。
func lessOrEqual[T cmp.Ordered](c *counter, a, b T) bool {
	c.n++
	return a <= b
}

// makePair 比较一次 a 和 b，得到 Small/Large 正确分配的有序对。
func makePair[T cmp.Ordered](c *counter, a, b T) Pair[T] {
	if lessOrEqual(c, a, b) {
		return Pair[T]{Small: a, Large: b}
	}
	return Pair[T]{Small: b, Large: a}
}

// makePairs 从左到右两两配对。奇数长度时最后一个元素作为落单元素返回，不计比较。
func makePairs[T cmp.Ordered](c *counter, data []T) (pairs []Pair[T], straggler T, hasStraggler bool) {
	pairs = make([]Pair[T], 0, len(data)/2)
	i := 0
	for ; i+1 < len(data); i += 2 {
		pairs = append(pairs, makePair(c, data[i], data[i+1]))
	}
	if i < len(data) {
		straggler, hasStraggler = data[i], true
	}
	return pairs, straggler, hasStraggler
}

// sortPairsByLarge 按 Large 升序原地归并排序。
func sortPairsByLarge[T cmp.Ordered](c *counter, pairs []Pair[T]) {
	if len(pairs) < 2 {
		return
	}
	buf := make([]Pair[T], len(pairs))
	mergeSortPairs(c, pairs, buf)
}

// mergeSortPairs 在中点处切分，递归排序两半后合并。buf 与 pairs 等长，用作合并时的暂存区。
func mergeSortPairs[T cmp.Ordered](c *counter, pairs, buf []Pair[T]) {
	if len(pairs) < 2 {
		return
	}
	mid := len(pairs) / 2
	mergeSortPairs(c, pairs[:mid], buf[:mid])
	mergeSortPairs(c, pairs[mid:], buf[mid:])
	mergePairs(c, pairs, buf, mid)
}

// mergePairs 合并 pairs[:mid] 与 pairs[mid:] 两个有序段。
// 仅当 left.Large < right.Large 严格成立时取左侧，相等时先取右侧。
func mergePairs[T cmp.Ordered](c *counter, pairs, buf []Pair[T], mid int) {
	copy(buf, pairs)
	left, right := buf[:mid], buf[mid:]

	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if less(c, left[i].Large, right[j].Large) {
			pairs[k] = left[i]
			i++
		} else {
			pairs[k] = right[j]
			j++
		}
		k++
	}

	// 剩余部分已经有序，直接拷回。
	k += copy(pairs[k:], left[i:])
	copy(pairs[k:], right[j:])
}
