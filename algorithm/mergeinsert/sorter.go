// Package mergeinsert 实现 Ford-Johnson 归并插入排序（merge-insertion sort）。
//
// 算法分为五步：
//  1. 相邻元素两两配对，每对比较一次，奇数长度时保留一个落单元素；
//  2. 按每对的较大值递归归并排序；
//  3. 第一对的较小值与所有较大值组成有序主链，其余较小值进入待插入列表；
//  4. 按 Jacobsthal 数列确定插入顺序；
//  5. 每个待插入元素在主链中做有界二分插入，上界为其配对较大值的当前位置，最后插入落单元素。
//
// 排序是全函数：任何有限序列（空、单元素、全部重复）都合法，不会返回错误。
// 每次调用独立构建工作状态与比较计数器，不修改调用方传入的切片。
package mergeinsert

import (
	"cmp"
	"slices"
)

// Result 是一次排序的结果。
type Result[T cmp.Ordered] struct {
	Sorted      []T
	Comparisons int
	Backing     Backing
}

type options struct {
	backing Backing
}

// Option 定义排序选项。
type Option func(*options)

// WithBacking 指定主链的存储结构，默认 BackingSlice。
func WithBacking(b Backing) Option {
	return func(o *options) {
		o.backing = b
	}
}

// Sort 对 input 做 Ford-Johnson 排序，返回新的有序切片与比较次数。
// 可被多个 goroutine 同时调用。
func Sort[T cmp.Ordered](input []T, opts ...Option) Result[T] {
	o := options{backing: BackingSlice}
	for _, opt := range opts {
		opt(&o)
	}
	sorted, comparisons := fordJohnson(input, o.backing)
	return Result[T]{Sorted: sorted, Comparisons: comparisons, Backing: o.backing}
}

// Sorter 绑定一种存储结构，并保留最近一次排序的比较次数。
// 可以顺序复用；并发使用时每个 goroutine 需要各自的 Sorter。
type Sorter[T cmp.Ordered] struct {
	backing     Backing
	comparisons int
}

// NewSorter 创建一个使用指定存储结构的 Sorter。
func NewSorter[T cmp.Ordered](b Backing) *Sorter[T] {
	return &Sorter[T]{backing: b}
}

// Sort 排序并记录比较次数。
func (s *Sorter[T]) Sort(input []T) []T {
	sorted, comparisons := fordJohnson(input, s.backing)
	s.comparisons = comparisons
	return sorted
}

// Comparisons 返回最近一次 Sort 的比较次数。
func (s *Sorter[T]) Comparisons() int { return s.comparisons }

// Backing 返回 Sorter 使用的存储结构。
func (s *Sorter[T]) Backing() Backing { return s.backing }

// fordJohnson 是排序主流程。
func fordJohnson[T cmp.Ordered](input []T, backing Backing) ([]T, int) {
	if len(input) <= 1 {
		return slices.Clone(input), 0
	}

	var c counter
	pairs, straggler, hasStraggler := makePairs(&c, input)
	sortPairsByLarge(&c, pairs)

	w := newWorkspace(&c, pairs, NewChain[T](backing, len(input)))
	w.insertPend(InsertionOrder(len(pairs)))
	if hasStraggler {
		w.insertStraggler(straggler)
	}
	return w.chain.Values(), c.n
}

// workspace 是插入阶段的工作状态。
//
//	chain      有序主链，每次插入后保持升序
//	pend       pairs[1:] 的较小值；pend[p] 对应 pairs[p+1]
//	posOfLarge pend[p] 的配对较大值在主链中的当前下标，即二分查找的开区间上界
type workspace[T cmp.Ordered] struct {
	c          *counter
	chain      Chain[T]
	pend       []T
	posOfLarge []int
}

// newWorkspace 构建主链与待插入列表，不产生比较。
// pairs[0].Small 不大于 pairs[0].Large，而后者是所有较大值中的最小值，因此直接放在主链首位。
func newWorkspace[T cmp.Ordered](c *counter, pairs []Pair[T], chain Chain[T]) *workspace[T] {
	w := &workspace[T]{
		c:          c,
		chain:      chain,
		pend:       make([]T, 0, max(len(pairs)-1, 0)),
		posOfLarge: make([]int, 0, max(len(pairs)-1, 0)),
	}
	if len(pairs) == 0 {
		return w
	}

	chain.Append(pairs[0].Small)
	for i, p := range pairs {
		chain.Append(p.Large)
		if i > 0 {
			w.pend = append(w.pend, p.Small)
			w.posOfLarge = append(w.posOfLarge, i+1)
		}
	}
	return w
}

// insertPend 按 order 插入待插入元素。order 是对 pairs 下标的排列，
// 下标 0 对应的较小值已经在主链首位，跳过；下标 j 对应 pend[j-1]。
func (w *workspace[T]) insertPend(order []int) {
	for _, j := range order {
		if j == 0 {
			continue
		}
		p := j - 1
		at := boundedBinarySearch(w.c, w.chain, w.pend[p], 0, w.posOfLarge[p])
		w.chain.Insert(at, w.pend[p])
		w.shift(at)
	}
}

// shift 插入到 at 之后，所有位于 at 及其后的较大值右移一位。
func (w *workspace[T]) shift(at int) {
	for i, pos := range w.posOfLarge {
		if pos >= at {
			w.posOfLarge[i] = pos + 1
		}
	}
}

// insertStraggler 在整个主链 [0, Len) 中二分插入落单元素，必须在所有 pend 之后调用。
func (w *workspace[T]) insertStraggler(v T) {
	at := boundedBinarySearch(w.c, w.chain, v, 0, w.chain.Len())
	w.chain.Insert(at, v)
}
