package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DennisWilmot/land-mapping-web/internal/logger"
	"github.com/DennisWilmot/land-mapping-web/internal/models"
	"github.com/DennisWilmot/land-mapping-web/internal/repository"
)

// MockSelectionRepository is a mock implementation of SelectionRepository for testing
type MockSelectionRepository struct {
	mock.Mock
}

func (m *MockSelectionRepository) Load(ctx context.Context) ([]models.SavedSelection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	items, ok := args.Get(0).([]models.SavedSelection)
	if !ok {
		return nil, args.Error(1)
	}
	return items, args.Error(1)
}

func (m *MockSelectionRepository) SaveAll(ctx context.Context, items []models.SavedSelection) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockSelectionRepository) Name() string {
	return "mock"
}

// fixedClock returns the same instant on every call.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewProjectService_LoadsOnce(t *testing.T) {
	stored := []models.SavedSelection{{
		ID:        uuid.New(),
		Name:      "Roadside lots",
		ParcelIDs: models.ParcelIDList{4, 2},
	}}
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(stored, nil).Once()

	svc := NewProjectService(context.Background(), repo, logger.New("test"))

	list := svc.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "Roadside lots", list[0].Name)
	assert.Equal(t, models.ParcelIDList{4, 2}, list[0].ParcelIDs)

	svc.List(context.Background())
	repo.AssertExpectations(t)
}

func TestNewProjectService_LoadFailureStartsEmpty(t *testing.T) {
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, repository.ErrCorruptData)

	svc := NewProjectService(context.Background(), repo, logger.New("test"))
	assert.Empty(t, svc.List(context.Background()))
}

func TestProjectService_Save(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, nil)
	repo.On("SaveAll", mock.Anything, mock.MatchedBy(func(items []models.SavedSelection) bool {
		return len(items) == 1
	})).Return(nil).Once()
	repo.On("SaveAll", mock.Anything, mock.MatchedBy(func(items []models.SavedSelection) bool {
		return len(items) == 2
	})).Return(nil).Once()

	svc := NewProjectService(context.Background(), repo, nil, WithClock(fixedClock(now)))
	ctx := context.Background()

	ids := []int{5, 9}
	first, err := svc.Save(ctx, "  Hillside  ", ids)
	require.NoError(t, err)
	assert.Equal(t, "Hillside", first.Name)
	assert.Equal(t, models.ParcelIDList{5, 9}, first.ParcelIDs)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, now.Truncate(time.Microsecond), first.CreatedAt)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	ids[0] = 100
	got, ok := svc.Get(ctx, first.ID)
	require.True(t, ok)
	assert.Equal(t, models.ParcelIDList{5, 9}, got.ParcelIDs, "stored ids are a copy")

	second, err := svc.Save(ctx, "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Selection 2", second.Name)
	assert.NotEqual(t, first.ID, second.ID)

	list := svc.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	repo.AssertExpectations(t)
}

func TestProjectService_UpdateBumpsUpdatedAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, nil)
	repo.On("SaveAll", mock.Anything, mock.Anything).Return(nil)

	svc := NewProjectService(context.Background(), repo, nil, WithClock(fixedClock(now)))
	ctx := context.Background()

	rec, err := svc.Save(ctx, "Lots", []int{1})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, rec.ID, []int{3, 1}))
	got, ok := svc.Get(ctx, rec.ID)
	require.True(t, ok)
	assert.Equal(t, models.ParcelIDList{3, 1}, got.ParcelIDs)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt), "updatedAt moves forward even with a frozen clock")
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
}

func TestProjectService_Rename(t *testing.T) {
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, nil)
	repo.On("SaveAll", mock.Anything, mock.Anything).Return(nil)

	svc := NewProjectService(context.Background(), repo, nil)
	ctx := context.Background()

	rec, err := svc.Save(ctx, "Old", []int{1})
	require.NoError(t, err)

	require.NoError(t, svc.Rename(ctx, rec.ID, "New"))
	got, _ := svc.Get(ctx, rec.ID)
	assert.Equal(t, "New", got.Name)

	before := got.UpdatedAt
	require.NoError(t, svc.Rename(ctx, rec.ID, "  "))
	got, _ = svc.Get(ctx, rec.ID)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, before, got.UpdatedAt, "blank rename changes nothing")

	repo.AssertNumberOfCalls(t, "SaveAll", 2)
}

func TestProjectService_UnknownIDsAreNoOps(t *testing.T) {
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, nil)

	svc := NewProjectService(context.Background(), repo, nil)
	ctx := context.Background()
	missing := uuid.New()

	assert.NoError(t, svc.Update(ctx, missing, []int{1}))
	assert.NoError(t, svc.Rename(ctx, missing, "x"))
	assert.NoError(t, svc.Delete(ctx, missing))

	_, ok := svc.Get(ctx, missing)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}

func TestProjectService_Delete(t *testing.T) {
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, nil)
	repo.On("SaveAll", mock.Anything, mock.Anything).Return(nil)

	svc := NewProjectService(context.Background(), repo, nil)
	ctx := context.Background()

	a, err := svc.Save(ctx, "A", nil)
	require.NoError(t, err)
	b, err := svc.Save(ctx, "B", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, a.ID))

	list := svc.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	repo.AssertCalled(t, "SaveAll", mock.Anything, mock.MatchedBy(func(items []models.SavedSelection) bool {
		return len(items) == 1 && items[0].ID == b.ID
	}))
}

func TestProjectService_WriteFailureKeepsChange(t *testing.T) {
	repo := new(MockSelectionRepository)
	repo.On("Load", mock.Anything).Return(nil, nil)
	repo.On("SaveAll", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := NewProjectService(context.Background(), repo, logger.New("test"))
	ctx := context.Background()

	rec, err := svc.Save(ctx, "Unsaved", []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, ok := svc.Get(ctx, rec.ID)
	require.True(t, ok)
	assert.Equal(t, "Unsaved", got.Name)
}

func TestProjectService_ReturnsCopies(t *testing.T) {
	repo := repository.NewMemorySelectionRepository()
	svc := NewProjectService(context.Background(), repo, nil)
	ctx := context.Background()

	rec, err := svc.Save(ctx, "A", []int{1, 2})
	require.NoError(t, err)

	rec.ParcelIDs[0] = 99
	list := svc.List(ctx)
	list[0].ParcelIDs[1] = 99

	got, _ := svc.Get(ctx, rec.ID)
	assert.Equal(t, models.ParcelIDList{1, 2}, got.ParcelIDs)
}

func TestProjectService_PersistsThroughRepository(t *testing.T) {
	repo := repository.NewMemorySelectionRepository()
	ctx := context.Background()

	svc := NewProjectService(ctx, repo, nil)
	rec, err := svc.Save(ctx, "Kept", []int{7})
	require.NoError(t, err)

	reopened := NewProjectService(ctx, repo, nil)
	got, ok := reopened.Get(ctx, rec.ID)
	require.True(t, ok)
	assert.Equal(t, "Kept", got.Name)
	assert.Equal(t, models.ParcelIDList{7}, got.ParcelIDs)
}
