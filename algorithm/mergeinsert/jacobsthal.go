package mergeinsert

// JacobsthalNumbers 生成 Jacobsthal 数列 J(0)=0, J(1)=1, J(k)=J(k-1)+2·J(k-2)，
// 直到第一个 >= limit 的值（包含该值）。limit <= 0 时只返回 [0]。
//
//	0, 1, 1, 3, 5, 11, 21, 43, 85, 171, 341, ...
func JacobsthalNumbers(limit int) []int {
	seq := []int{0}
	if limit < 1 {
		return seq
	}
	seq = append(seq, 1)
	for {
		next := seq[len(seq)-1] + 2*seq[len(seq)-2]
		seq = append(seq, next)
		if next >= limit {
			return seq
		}
	}
}

// InsertionOrder 返回 n 个待插入元素的插入顺序（0 起始下标的一个排列）。
//
// 对每个窗口 (J(k-1), J(k)]（k >= 2，上端截断到 n）按从 end-1 到 start 的降序输出下标，
// 窗口用尽后把尚未覆盖的 n-1 到最后覆盖边界的尾部降序输出，最后输出 0。
// 例如 n=7 时结果为 2 1 4 3 6 5 0。
//
// 每个窗口内降序插入，使每次二分查找的区间长度不超过 2^k-1。
func InsertionOrder(n int) []int {
	switch {
	case n <= 0:
		return []int{}
	case n == 1:
		return []int{0}
	}

	jacob := JacobsthalNumbers(n)
	order := make([]int, 0, n)
	lastCovered := 1
	for k := 2; k < len(jacob) && lastCovered < n; k++ {
		start, end := jacob[k-1], min(jacob[k], n)
		if start >= end {
			continue
		}
		for i := end; i > start; i-- {
			order = append(order, i-1)
		}
		lastCovered = end
	}
	for i := n; i > lastCovered; i-- {
		order = append(order, i-1)
	}
	return append(order, 0)
}
