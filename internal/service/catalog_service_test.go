package service

import (
	"context"
	"testing"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestSpaceNodeService_LevelsAndReparent(t *testing.T) {
	svc := NewSpaceNodeService(repository.NewMemorySpaceNodesRepo(), zap.NewNop())
	ctx := context.Background()

	company, err := svc.Create(ctx, SpaceNodeRequest{NodeCode: "C", NodeName: "总公司", NodeType: domain.SpaceNodeCompany})
	require.NoError(t, err)
	assert.Equal(t, 1, company.Level)
	assert.True(t, company.Enabled)

	building, err := svc.Create(ctx, SpaceNodeRequest{NodeCode: "B1", NodeName: "1号楼", NodeType: domain.SpaceNodeBuilding, ParentID: &company.ID})
	require.NoError(t, err)
	floor, err := svc.Create(ctx, SpaceNodeRequest{NodeCode: "F1", NodeName: "1层", NodeType: domain.SpaceNodeFloor, ParentID: &building.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, floor.Level)

	// 挂到自己的后代下
	_, err = svc.Update(ctx, company.ID, SpaceNodeRequest{NodeCode: "C", NodeName: "总公司", ParentID: &floor.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.Create(ctx, SpaceNodeRequest{NodeCode: "X", NodeName: "x", ParentID: strPtr("missing")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// 1号楼提升为根，子树层级跟着变
	_, err = svc.Update(ctx, building.ID, SpaceNodeRequest{NodeCode: "B1", NodeName: "1号楼", NodeType: domain.SpaceNodeBuilding})
	require.NoError(t, err)
	got, err := svc.Get(ctx, floor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)

	forest, err := svc.Tree(ctx, "")
	require.NoError(t, err)
	assert.Len(t, forest, 2)

	err = svc.Delete(ctx, building.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	require.NoError(t, svc.Delete(ctx, floor.ID))
	require.NoError(t, svc.Delete(ctx, building.ID))
}

func TestSpaceNodeService_Validation(t *testing.T) {
	svc := NewSpaceNodeService(repository.NewMemorySpaceNodesRepo(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Create(ctx, SpaceNodeRequest{NodeCode: "A", NodeName: "a", NodeType: "PLANET"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Create(ctx, SpaceNodeRequest{NodeCode: "A", NodeName: "a", Latitude: float64Ptr(91)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	n, err := svc.Create(ctx, SpaceNodeRequest{NodeCode: "A", NodeName: "a"})
	require.NoError(t, err)
	assert.Equal(t, domain.SpaceNodeOther, n.NodeType)

	_, err = svc.Create(ctx, SpaceNodeRequest{NodeCode: "A", NodeName: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAnalysisModelService_TreeAndPoints(t *testing.T) {
	points := repository.NewMemoryDataPointsRepo()
	ctx := context.Background()
	p := &domain.DataPoint{PointCode: "TEMP-001", PointName: "温度"}
	p.ApplyDefaults()
	require.NoError(t, points.CreateDataPoint(ctx, p))

	svc := NewAnalysisModelService(repository.NewMemoryAnalysisModelsRepo(), points, zap.NewNop())

	root, err := svc.Create(ctx, AnalysisModelRequest{ModelCode: "R", ModelName: "全厂", ModelType: domain.ModelTypeComprehensive})
	require.NoError(t, err)
	assert.Equal(t, 1, root.Level)

	second, err := svc.Create(ctx, AnalysisModelRequest{ModelCode: "D2", ModelName: "2#", ParentID: &root.ID, SortOrder: 2})
	require.NoError(t, err)
	first, err := svc.Create(ctx, AnalysisModelRequest{
		ModelCode: "D1", ModelName: "1#", ParentID: &root.ID, SortOrder: 1,
		Points: []AnalysisModelPointRequest{{DataPointID: p.ID, CurveGroup: "temp"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ModelTypeDevice, first.ModelType)
	assert.Equal(t, 2, first.Level)

	_, err = svc.Create(ctx, AnalysisModelRequest{
		ModelCode: "BAD", ModelName: "x",
		Points:    []AnalysisModelPointRequest{{DataPointID: "missing"}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	forest, err := svc.Tree(ctx, "")
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, first.ID, forest[0].Children[0].Item.ID)
	assert.Equal(t, second.ID, forest[0].Children[1].Item.ID)

	sub, err := svc.Tree(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Empty(t, sub[0].Children)

	_, err = svc.Tree(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	members, err := svc.Points(ctx, first.ID, "temp")
	require.NoError(t, err)
	assert.Len(t, members, 1)
	members, err = svc.Points(ctx, first.ID, "press")
	require.NoError(t, err)
	assert.Empty(t, members)

	assert.ErrorIs(t, svc.Delete(ctx, root.ID), domain.ErrInvalidState)

	// 更新时成员点整体替换
	_, err = svc.Update(ctx, first.ID, AnalysisModelRequest{ModelCode: "D1", ModelName: "1#", ParentID: &root.ID})
	require.NoError(t, err)
	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Points)

	roots, err := svc.List(ctx, ListAnalysisModelsRequest{RootOnly: true})
	require.NoError(t, err)
	assert.Len(t, roots, 1)
}

func TestModuleService_CRUD(t *testing.T) {
	svc := NewModuleService(repository.NewMemoryModulesRepo(), zap.NewNop())
	ctx := context.Background()

	sys, err := svc.Create(ctx, ModuleRequest{ZhName: "系统管理", PermissionKey: "sys", ParentNode: true})
	require.NoError(t, err)
	assert.True(t, sys.Visible)
	child, err := svc.Create(ctx, ModuleRequest{ZhName: "模块管理", PermissionKey: "sys:module", ParentID: &sys.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, child.Level)

	_, err = svc.Create(ctx, ModuleRequest{ZhName: "重复", PermissionKey: "sys"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := svc.GetByPermissionKey(ctx, "sys:module")
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.ID)

	kids, err := svc.Children(ctx, sys.ID)
	require.NoError(t, err)
	assert.Len(t, kids, 1)

	_, err = svc.Update(ctx, sys.ID, ModuleRequest{ZhName: "系统管理", PermissionKey: "sys", ParentID: &sys.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.ErrorIs(t, svc.Delete(ctx, sys.ID), domain.ErrInvalidState)
	require.NoError(t, svc.Delete(ctx, child.ID))
	require.NoError(t, svc.Delete(ctx, sys.ID))
}
