package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/tree"
)

// hierarchy 树形目录（分析模型 / 空间节点 / 功能模块）共用的层级维护
// T 为指针类型，setLevel 直接修改记录
type hierarchy[T any] struct {
	kind     string
	get      func(ctx context.Context, id string) (T, error)
	children func(ctx context.Context, parentID string) ([]T, error)
	update   func(ctx context.Context, item T) error
	id       func(T) string
	parentID func(T) *string
	level    func(T) int
	setLevel func(T, int)
}

// levelUnder 校验父节点并返回子节点层级（根为 1）
// selfID 非空时（更新）不允许挂到自己或自己的后代下
func (h hierarchy[T]) levelUnder(ctx context.Context, selfID string, parentID *string) (int, error) {
	if parentID == nil || *parentID == "" {
		return 1, nil
	}
	if selfID != "" && *parentID == selfID {
		return 0, fmt.Errorf("%s %s cannot be its own parent: %w", h.kind, selfID, domain.ErrInvalidState)
	}
	parent, err := h.get(ctx, *parentID)
	if err != nil {
		return 0, fmt.Errorf("parent %s: %w", h.kind, err)
	}

	if selfID != "" {
		seen := map[string]bool{h.id(parent): true}
		cur := parent
		for {
			pid := h.parentID(cur)
			if pid == nil || *pid == "" {
				break
			}
			if *pid == selfID {
				return 0, fmt.Errorf("%s %s cannot move under its descendant %s: %w", h.kind, selfID, *parentID, domain.ErrInvalidState)
			}
			if seen[*pid] {
				break
			}
			seen[*pid] = true
			cur, err = h.get(ctx, *pid)
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			if err != nil {
				return 0, err
			}
		}
	}
	return h.level(parent) + 1, nil
}

// relevel 父节点层级变化后，递归修正后代层级
func (h hierarchy[T]) relevel(ctx context.Context, parent T) error {
	visited := map[string]bool{}
	var walk func(p T) error
	walk = func(p T) error {
		if visited[h.id(p)] {
			return nil
		}
		visited[h.id(p)] = true
		kids, err := h.children(ctx, h.id(p))
		if err != nil {
			return fmt.Errorf("failed to list child %s: %w", h.kind, err)
		}
		want := h.level(p) + 1
		for _, k := range kids {
			if h.level(k) != want {
				h.setLevel(k, want)
				if err := h.update(ctx, k); err != nil {
					return err
				}
			}
			if err := walk(k); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(parent)
}

// ensureLeaf 有子节点时不允许删除
func (h hierarchy[T]) ensureLeaf(ctx context.Context, id string) error {
	kids, err := h.children(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list child %s: %w", h.kind, err)
	}
	if len(kids) > 0 {
		return fmt.Errorf("%s %s has %d children: %w", h.kind, id, len(kids), domain.ErrInvalidState)
	}
	return nil
}

// subtree rootID 为空返回整片森林，否则返回以该节点为根的子树
func subtree[T any, O any](forest []*tree.Node[T, O], rootID string, id func(T) string) ([]*tree.Node[T, O], error) {
	if rootID == "" {
		return forest, nil
	}
	n := tree.Find(forest, func(item T) bool { return id(item) == rootID })
	if n == nil {
		return nil, fmt.Errorf("tree root %s: %w", rootID, domain.ErrNotFound)
	}
	return []*tree.Node[T, O]{n}, nil
}

func sameParent(a, b *string) bool {
	if a == nil || *a == "" {
		return b == nil || *b == ""
	}
	return b != nil && *a == *b
}

func normalizeParent(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
