package skiplist

import (
	"math/rand"
	"time"
)

const (
	maxLevel  = 32   // 跳跃表最大层数
	skipListP = 0.25 // 随机概率
)

// ElemType 元素需要提供全序比较, 相等(0)视为同一个元素
type ElemType[T any] interface {
	Compare(T) int
}

func randomLevel(r *rand.Rand) int {
	level := 1
	for r.Float32() < skipListP && level < maxLevel {
		level++
	}
	return level
}

type Node[T ElemType[T]] struct {
	Data  T
	level []*Node[T]
}

// SkipList 有序集合, 插入/删除/查找 O(log n), 取最小值 O(1)
type SkipList[T ElemType[T]] struct {
	header *Node[T]
	level  int
	length int
	rand   *rand.Rand
}

func NewSkipList[T ElemType[T]]() *SkipList[T] {
	header := &Node[T]{}
	header.level = make([]*Node[T], maxLevel)
	return &SkipList[T]{
		header: header,
		level:  1,
		length: 0,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// 查找每一层中data的前驱节点
func (sl *SkipList[T]) predecessors(data T, update *[maxLevel]*Node[T]) *Node[T] {
	x := sl.header
	for i := sl.level - 1; i >= 0; i-- {
		for x.level[i] != nil && x.level[i].Data.Compare(data) < 0 {
			x = x.level[i]
		}
		update[i] = x
	}
	return x
}

// Insert 插入新的元素
// 这里假设data不在表中，由上层保证data不重复
func (sl *SkipList[T]) Insert(data T) {
	var update [maxLevel]*Node[T]
	sl.predecessors(data, &update)

	level := randomLevel(sl.rand)
	if level > sl.level {
		for i := sl.level; i < level; i++ {
			update[i] = sl.header
		}
		sl.level = level
	}
	x := &Node[T]{Data: data, level: make([]*Node[T], level)}
	for i := 0; i < level; i++ {
		x.level[i] = update[i].level[i]
		update[i].level[i] = x
	}
	sl.length++
}

// Remove 删除元素, 不存在返回false
func (sl *SkipList[T]) Remove(data T) bool {
	var update [maxLevel]*Node[T]
	x := sl.predecessors(data, &update).level[0]
	if x == nil || x.Data.Compare(data) != 0 {
		return false
	}
	sl.unlink(x, &update)
	return true
}

func (sl *SkipList[T]) unlink(x *Node[T], update *[maxLevel]*Node[T]) {
	for i := 0; i < sl.level; i++ {
		if update[i].level[i] == x {
			update[i].level[i] = x.level[i]
		}
	}
	for sl.level > 1 && sl.header.level[sl.level-1] == nil {
		sl.level--
	}
	sl.length--
}

func (sl *SkipList[T]) Contains(data T) bool {
	var update [maxLevel]*Node[T]
	x := sl.predecessors(data, &update).level[0]
	return x != nil && x.Data.Compare(data) == 0
}

// Min 最小元素
func (sl *SkipList[T]) Min() (T, bool) {
	x := sl.header.level[0]
	if x == nil {
		return *new(T), false
	}
	return x.Data, true
}

// PopMin 删除并返回最小元素
func (sl *SkipList[T]) PopMin() (T, bool) {
	x := sl.header.level[0]
	if x == nil {
		return *new(T), false
	}
	var update [maxLevel]*Node[T]
	for i := 0; i < sl.level; i++ {
		update[i] = sl.header
	}
	sl.unlink(x, &update)
	return x.Data, true
}

// Foreach 升序遍历, f返回false停止; f不能修改表
func (sl *SkipList[T]) Foreach(f func(T) bool) {
	for x := sl.header.level[0]; x != nil; x = x.level[0] {
		if !f(x.Data) {
			break
		}
	}
}

func (sl *SkipList[T]) Clear() {
	for i := 0; i < maxLevel; i++ {
		sl.header.level[i] = nil
	}
	sl.level = 1
	sl.length = 0
}

func (sl *SkipList[T]) Len() int {
	return sl.length
}
