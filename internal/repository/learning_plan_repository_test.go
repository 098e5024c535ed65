package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jordanskizash/mindbase/internal/model"
)

func samplePlan(id, sessionID string) *model.LearningPlan {
	return &model.LearningPlan{
		ID:         id,
		SessionID:  sessionID,
		Title:      "Guitar Mastery",
		Duration:   "8 weeks",
		SkillLevel: model.SkillLevelBeginner,
		Revision:   1,
		Modules: []model.LearningModule{
			{
				ID:    id + "_m1",
				Title: "Basics",
				Lessons: []model.LearningLesson{
					{ID: id + "_l1", Title: "Tuning"},
					{ID: id + "_l2", Title: "Open chords"},
				},
			},
			{
				ID:    id + "_m2",
				Title: "Rhythm",
				Lessons: []model.LearningLesson{
					{ID: id + "_l3", Title: "Strumming"},
				},
			},
		},
		Resources: []model.LearningResource{
			{ID: id + "_r1", Title: "Justin Guitar", Type: model.ResourceTypeCourse},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(m).Count(&count).Error)
	return count
}

func TestPlanSaveAndGet(t *testing.T) {
	repo := NewLearningPlanRepository(newTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, samplePlan("p1", "s1")))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Guitar Mastery", got.Title)
	require.Len(t, got.Modules, 2)
	assert.Equal(t, "p1_m1", got.Modules[0].ID)
	require.Len(t, got.Modules[0].Lessons, 2)
	assert.Equal(t, "p1_l1", got.Modules[0].Lessons[0].ID)
	assert.Equal(t, "p1_l2", got.Modules[0].Lessons[1].ID)
	require.Len(t, got.Resources, 1)
}

func TestPlanSavePreservesDocumentOrder(t *testing.T) {
	repo := NewLearningPlanRepository(newTestDB(t), nil)
	ctx := context.Background()

	plan := samplePlan("p1", "s1")
	// 模块顺序以切片下标为准，重排后读取端按新顺序返回
	plan.Modules[0], plan.Modules[1] = plan.Modules[1], plan.Modules[0]
	require.NoError(t, repo.Save(ctx, plan))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got.Modules, 2)
	assert.Equal(t, "p1_m2", got.Modules[0].ID)
	assert.Equal(t, "p1_m1", got.Modules[1].ID)
}

func TestPlanSaveReplacesChildren(t *testing.T) {
	db := newTestDB(t)
	repo := NewLearningPlanRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, samplePlan("p1", "s1")))

	next := samplePlan("p1", "s1")
	next.Revision = 2
	next.Modules = next.Modules[:1]
	next.Resources = nil
	require.NoError(t, repo.Save(ctx, next))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got.Modules, 1)
	assert.Empty(t, got.Resources)

	// 被移除模块的课时不残留
	assert.Equal(t, int64(2), countRows(t, db, &model.LearningLesson{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.LearningResource{}))
}

func TestPlanSaveSupersedesSameSessionPlan(t *testing.T) {
	db := newTestDB(t)
	repo := NewLearningPlanRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, samplePlan("p1", "s1")))
	// 同一会话重新生成计划：旧计划连同子记录整体让位
	require.NoError(t, repo.Save(ctx, samplePlan("p2", "s1")))

	_, err := repo.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repo.GetBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)

	assert.Equal(t, int64(1), countRows(t, db, &model.LearningPlan{}))
	assert.Equal(t, int64(2), countRows(t, db, &model.LearningModule{}))
	assert.Equal(t, int64(3), countRows(t, db, &model.LearningLesson{}))
}

func TestPlanSaveStaleRevisionRejected(t *testing.T) {
	repo := NewLearningPlanRepository(newTestDB(t), nil)
	ctx := context.Background()

	plan := samplePlan("p1", "s1")
	plan.Revision = 4
	require.NoError(t, repo.Save(ctx, plan))

	stale := samplePlan("p1", "s1")
	stale.Revision = 2
	stale.Title = "out of date"
	assert.ErrorIs(t, repo.Save(ctx, stale), ErrStaleWrite)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Guitar Mastery", got.Title)
}

func TestPlanGetBySessionNotFound(t *testing.T) {
	repo := NewLearningPlanRepository(newTestDB(t), nil)
	_, err := repo.GetBySession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanDeleteRemovesChildren(t *testing.T) {
	db := newTestDB(t)
	repo := NewLearningPlanRepository(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, samplePlan("p1", "s1")))
	require.NoError(t, repo.Delete(ctx, "p1"))

	_, err := repo.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), countRows(t, db, &model.LearningModule{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.LearningLesson{}))
	assert.Equal(t, int64(0), countRows(t, db, &model.LearningResource{}))
}
