package mergeinsert

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gammazero/deque"

	"github.com/wyfcoding/pmergeme/xerrors"
)

// Chain 是主链的存储抽象：有序、可增长，支持按下标读取和在任意位置插入。
// 算法只依赖这组操作，具体存储结构只影响插入时的元素搬移成本。
type Chain[T cmp.Ordered] interface {
	Len() int
	At(i int) T
	// Insert 在下标 i 之前插入 v，0 <= i <= Len()。
	Insert(i int, v T)
	Append(v T)
	// Values 按顺序复制出全部元素。
	Values() []T
}

// Backing 标识主链使用的存储结构。
type Backing uint8

const (
	// BackingSlice 连续数组，插入时搬移插入点之后的所有元素。
	BackingSlice Backing = iota
	// BackingDeque 环形缓冲双端队列，插入时搬移离插入点较近的一侧。
	BackingDeque
)

var backingNames = [...]string{"slice", "deque"}

func (b Backing) String() string {
	if int(b) < len(backingNames) {
		return backingNames[b]
	}
	return "unknown"
}

// Backings 返回所有支持的存储结构。
func Backings() []Backing {
	return []Backing{BackingSlice, BackingDeque}
}

// ParseBacking 解析存储结构名称（大小写不敏感）。
func ParseBacking(s string) (Backing, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range backingNames {
		if n == name {
			return Backing(i), nil
		}
	}
	return 0, xerrors.ErrUnknownBacking.Copy().WithContext("backing", s)
}

// ParseBackings 解析一组存储结构名称，保持顺序并去重。
func ParseBackings(names []string) ([]Backing, error) {
	out := make([]Backing, 0, len(names))
	for _, name := range names {
		b, err := ParseBacking(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// NewChain 按存储结构创建一个空主链，capacity 为预期元素个数。
func NewChain[T cmp.Ordered](b Backing, capacity int) Chain[T] {
	if b == BackingDeque {
		return NewDequeChain[T](capacity)
	}
	return NewSliceChain[T](capacity)
}

// SliceChain 基于连续切片的主链。
type SliceChain[T cmp.Ordered] struct {
	data []T
}

// NewSliceChain 创建一个预分配容量的切片主链。
func NewSliceChain[T cmp.Ordered](capacity int) *SliceChain[T] {
	return &SliceChain[T]{data: make([]T, 0, max(capacity, 0))}
}

func (c *SliceChain[T]) Len() int   { return len(c.data) }
func (c *SliceChain[T]) At(i int) T { return c.data[i] }
func (c *SliceChain[T]) Append(v T) { c.data = append(c.data, v) }

func (c *SliceChain[T]) Insert(i int, v T) {
	c.data = slices.Insert(c.data, i, v)
}

func (c *SliceChain[T]) Values() []T {
	return slices.Clone(c.data)
}

// DequeChain 基于 gammazero/deque 环形缓冲的主链。
type DequeChain[T cmp.Ordered] struct {
	q deque.Deque[T]
}

// NewDequeChain 创建一个空的双端队列主链，预留 capacity 个元素的空间。
func NewDequeChain[T cmp.Ordered](capacity int) *DequeChain[T] {
	c := &DequeChain[T]{}
	c.q.Grow(max(capacity, 0))
	return c
}

func (c *DequeChain[T]) Len() int   { return c.q.Len() }
func (c *DequeChain[T]) At(i int) T { return c.q.At(i) }
func (c *DequeChain[T]) Append(v T) { c.q.PushBack(v) }

func (c *DequeChain[T]) Insert(i int, v T) {
	c.q.Insert(i, v)
}

func (c *DequeChain[T]) Values() []T {
	out := make([]T, c.q.Len())
	for i := range out {
		out[i] = c.q.At(i)
	}
	return out
}
