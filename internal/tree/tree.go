// Package tree 把扁平的父子记录组装成按排序键排好序的森林。
// 模块树、权限树、分析模型树、空间节点树共用同一套组装逻辑，
// 差异只在每个节点附带的 overlay。
package tree

import "sort"

// Node 树节点
type Node[T any, O any] struct {
	Item     T             `json:"node"`
	Overlay  O             `json:"overlay"`
	Children []*Node[T, O] `json:"children"`
}

// Accessors 描述如何从记录中取 ID、父 ID、排序键和 overlay
type Accessors[T any, K comparable, O any] struct {
	ID       func(T) K
	ParentID func(T) (K, bool) // 无父节点返回 false
	SortKey  func(T) int
	Overlay  func(T) O // 可为 nil
}

// BuildForest 组装森林
//   - 每条输入记录在输出中恰好出现一次
//   - 父节点不在输入中的记录作为根（孤儿提升）
//   - 同级按排序键升序，排序键相同保持输入顺序
//   - 成环的记录从环上断开，作为根
func BuildForest[T any, K comparable, O any](items []T, acc Accessors[T, K, O]) []*Node[T, O] {
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return acc.SortKey(sorted[i]) < acc.SortKey(sorted[j])
	})

	nodes := make([]*Node[T, O], len(sorted))
	byID := make(map[K]*Node[T, O], len(sorted))
	for i, item := range sorted {
		n := &Node[T, O]{Item: item, Children: []*Node[T, O]{}}
		if acc.Overlay != nil {
			n.Overlay = acc.Overlay(item)
		}
		nodes[i] = n
		if _, dup := byID[acc.ID(item)]; !dup {
			byID[acc.ID(item)] = n
		}
	}

	// 按排序后的顺序挂到父节点下，children 天然有序
	parentOf := make(map[*Node[T, O]]*Node[T, O], len(nodes))
	var roots []*Node[T, O]
	for _, n := range nodes {
		pid, ok := acc.ParentID(n.Item)
		parent := byID[pid]
		if !ok || parent == nil || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
		parentOf[n] = parent
	}

	// 环上的节点从根不可达
	reached := make(map[*Node[T, O]]bool, len(nodes))
	for _, r := range roots {
		markReached(r, reached)
	}
	for _, n := range nodes {
		if reached[n] {
			continue
		}
		if p := parentOf[n]; p != nil {
			p.Children = removeChild(p.Children, n)
			delete(parentOf, n)
		}
		roots = append(roots, n)
		markReached(n, reached)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		return acc.SortKey(roots[i].Item) < acc.SortKey(roots[j].Item)
	})
	return roots
}

func markReached[T any, O any](n *Node[T, O], reached map[*Node[T, O]]bool) {
	if reached[n] {
		return
	}
	reached[n] = true
	for _, c := range n.Children {
		markReached(c, reached)
	}
}

func removeChild[T any, O any](children []*Node[T, O], target *Node[T, O]) []*Node[T, O] {
	out := children[:0]
	for _, c := range children {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// Find 深度优先查找第一个满足条件的节点
func Find[T any, O any](forest []*Node[T, O], match func(T) bool) *Node[T, O] {
	for _, n := range forest {
		if match(n.Item) {
			return n
		}
		if found := Find(n.Children, match); found != nil {
			return found
		}
	}
	return nil
}

// Walk 先序遍历，depth 从 1 开始
func Walk[T any, O any](forest []*Node[T, O], visit func(n *Node[T, O], depth int)) {
	var walk func(ns []*Node[T, O], depth int)
	walk = func(ns []*Node[T, O], depth int) {
		for _, n := range ns {
			visit(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(forest, 1)
}

// Count 森林中节点总数
func Count[T any, O any](forest []*Node[T, O]) int {
	total := 0
	Walk(forest, func(*Node[T, O], int) { total++ })
	return total
}
