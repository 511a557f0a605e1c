package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/tree"

	"go.uber.org/zap"
)

// SpaceNodeTreeNode 空间节点树节点
type SpaceNodeTreeNode = tree.Node[*domain.SpaceNode, any]

// SpaceNodeService 空间节点服务
type SpaceNodeService struct {
	nodes  repository.SpaceNodesRepository
	h      hierarchy[*domain.SpaceNode]
	logger *zap.Logger
}

// NewSpaceNodeService 创建空间节点服务
func NewSpaceNodeService(nodes repository.SpaceNodesRepository, logger *zap.Logger) *SpaceNodeService {
	return &SpaceNodeService{
		nodes:  nodes,
		logger: logger,
		h: hierarchy[*domain.SpaceNode]{
			kind: "space node",
			get:  nodes.GetSpaceNode,
			children: func(ctx context.Context, parentID string) ([]*domain.SpaceNode, error) {
				return nodes.ListSpaceNodes(ctx, repository.HierarchyFilter{ParentID: &parentID})
			},
			update:   nodes.UpdateSpaceNode,
			id:       func(n *domain.SpaceNode) string { return n.ID },
			parentID: func(n *domain.SpaceNode) *string { return n.ParentID },
			level:    func(n *domain.SpaceNode) int { return n.Level },
			setLevel: func(n *domain.SpaceNode, l int) { n.Level = l },
		},
	}
}

// SpaceNodeRequest 创建/更新空间节点请求
type SpaceNodeRequest struct {
	NodeCode      string               `json:"node_code"`
	NodeName      string               `json:"node_name"`
	NodeType      domain.SpaceNodeType `json:"node_type"` // 默认 OTHER
	ParentID      *string              `json:"parent_id"`
	SortOrder     int                  `json:"sort_order"`
	ContactPerson string               `json:"contact_person"`
	ContactPhone  string               `json:"contact_phone"`
	Address       string               `json:"address"`
	Longitude     *float64             `json:"longitude"`
	Latitude      *float64             `json:"latitude"`
	Description   string               `json:"description"`
	Enabled       *bool                `json:"enabled"`
	Remark        string               `json:"remark"`
}

func (req SpaceNodeRequest) apply(n *domain.SpaceNode) error {
	n.NodeCode = strings.TrimSpace(req.NodeCode)
	n.NodeName = strings.TrimSpace(req.NodeName)
	if n.NodeCode == "" || n.NodeName == "" {
		return fmt.Errorf("node_code and node_name are required: %w", domain.ErrInvalidArgument)
	}
	if req.NodeType != "" {
		n.NodeType = req.NodeType
	} else if n.NodeType == "" {
		n.NodeType = domain.SpaceNodeOther
	}
	if !n.NodeType.Valid() {
		return fmt.Errorf("invalid node_type %q: %w", n.NodeType, domain.ErrInvalidArgument)
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return fmt.Errorf("longitude out of range: %w", domain.ErrInvalidArgument)
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return fmt.Errorf("latitude out of range: %w", domain.ErrInvalidArgument)
	}
	n.SortOrder = req.SortOrder
	n.ContactPerson = req.ContactPerson
	n.ContactPhone = req.ContactPhone
	n.Address = req.Address
	n.Longitude = req.Longitude
	n.Latitude = req.Latitude
	n.Description = req.Description
	if req.Enabled != nil {
		n.Enabled = *req.Enabled
	} else if n.ID == "" {
		n.Enabled = true
	}
	n.Remark = req.Remark
	return nil
}

// ListSpaceNodesRequest 查询条件
type ListSpaceNodesRequest struct {
	Keyword  string
	ParentID string
	RootOnly bool
	NodeType domain.SpaceNodeType
}

func (s *SpaceNodeService) List(ctx context.Context, req ListSpaceNodesRequest) ([]*domain.SpaceNode, error) {
	if req.NodeType != "" && !req.NodeType.Valid() {
		return nil, fmt.Errorf("invalid node_type %q: %w", req.NodeType, domain.ErrInvalidArgument)
	}
	filter := repository.HierarchyFilter{
		Keyword:  strings.TrimSpace(req.Keyword),
		RootOnly: req.RootOnly,
		Type:     string(req.NodeType),
	}
	if req.ParentID != "" {
		filter.ParentID = &req.ParentID
	}
	return s.nodes.ListSpaceNodes(ctx, filter)
}

func (s *SpaceNodeService) Get(ctx context.Context, id string) (*domain.SpaceNode, error) {
	return s.nodes.GetSpaceNode(ctx, id)
}

func (s *SpaceNodeService) Create(ctx context.Context, req SpaceNodeRequest) (*domain.SpaceNode, error) {
	n := &domain.SpaceNode{}
	if err := req.apply(n); err != nil {
		return nil, err
	}
	n.ParentID = normalizeParent(req.ParentID)
	level, err := s.h.levelUnder(ctx, "", n.ParentID)
	if err != nil {
		return nil, err
	}
	n.Level = level
	if err := s.nodes.CreateSpaceNode(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Update 更新空间节点；父节点变化时整棵子树重新计算层级
func (s *SpaceNodeService) Update(ctx context.Context, id string, req SpaceNodeRequest) (*domain.SpaceNode, error) {
	n, err := s.nodes.GetSpaceNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(n); err != nil {
		return nil, err
	}
	newParent := normalizeParent(req.ParentID)
	reparent := !sameParent(n.ParentID, newParent)
	if reparent {
		if n.Level, err = s.h.levelUnder(ctx, n.ID, newParent); err != nil {
			return nil, err
		}
		n.ParentID = newParent
	}
	if err := s.nodes.UpdateSpaceNode(ctx, n); err != nil {
		return nil, err
	}
	if reparent {
		if err := s.h.relevel(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Delete 有子节点时返回 InvalidState
func (s *SpaceNodeService) Delete(ctx context.Context, id string) error {
	if _, err := s.nodes.GetSpaceNode(ctx, id); err != nil {
		return err
	}
	if err := s.h.ensureLeaf(ctx, id); err != nil {
		return err
	}
	return s.nodes.DeleteSpaceNode(ctx, id)
}

// Tree 空间节点树；rootID 非空时只返回该子树
func (s *SpaceNodeService) Tree(ctx context.Context, rootID string) ([]*SpaceNodeTreeNode, error) {
	all, err := s.nodes.ListSpaceNodes(ctx, repository.HierarchyFilter{})
	if err != nil {
		return nil, err
	}
	forest := tree.BuildForest(all, tree.Accessors[*domain.SpaceNode, string, any]{
		ID:       func(n *domain.SpaceNode) string { return n.ID },
		ParentID: func(n *domain.SpaceNode) (string, bool) { return derefParent(n.ParentID) },
		SortKey:  func(n *domain.SpaceNode) int { return n.SortOrder },
	})
	return subtree(forest, rootID, func(n *domain.SpaceNode) string { return n.ID })
}
