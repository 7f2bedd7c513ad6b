package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sunrun/credithub/internal/model"
	"sunrun/credithub/internal/repository"
)

func TestCodeService_CreateCodes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRedeemCodeRepository()
	svc := NewCodeService(repo, zap.NewNop())

	codes, err := svc.CreateCodes(ctx, "admin-1", 5, 3)
	require.NoError(t, err)
	require.Len(t, codes, 3)

	pattern := regexp.MustCompile(`^[0-9A-F]{16}$`)
	for _, c := range codes {
		assert.Regexp(t, pattern, c.Code)
		assert.Equal(t, int64(5), c.Amount)
		assert.Equal(t, "admin-1", c.CreatedBy)

		stored, err := repo.GetByCode(ctx, c.Code)
		require.NoError(t, err)
		assert.False(t, stored.Used)
	}
}

func TestCodeService_CreateCodesValidation(t *testing.T) {
	repo := &mockCodeRepo{}
	svc := NewCodeService(repo, zap.NewNop())

	tests := []struct {
		name   string
		amount int64
		count  int
	}{
		{"zero amount", 0, 1},
		{"negative amount", -3, 1},
		{"zero count", 1, 0},
		{"count over batch limit", 1, MaxCodesPerBatch + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCodes(context.Background(), "admin", tt.amount, tt.count)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCodeService_RetriesCollisions(t *testing.T) {
	repo := repository.NewMemoryRedeemCodeRepository()
	require.NoError(t, repo.Create(context.Background(), &model.RedeemCode{Code: "TAKEN", Amount: 1}))

	seq := []string{"TAKEN", "TAKEN", "FRESH"}
	svc := &codeService{codeRepo: repo, logger: zap.NewNop()}
	svc.generate = func() (string, error) {
		next := seq[0]
		seq = seq[1:]
		return next, nil
	}

	codes, err := svc.CreateCodes(context.Background(), "admin", 2, 1)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	assert.Equal(t, "FRESH", codes[0].Code)
}

func TestCodeService_ReturnsPartialBatch(t *testing.T) {
	repo := &mockCodeRepo{}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *model.RedeemCode) bool { return c.Code == "C1" })).Return(nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *model.RedeemCode) bool { return c.Code == "C2" })).Return(errBoom)

	n := 0
	svc := &codeService{codeRepo: repo, logger: zap.NewNop(), generate: func() (string, error) {
		n++
		return fmt.Sprintf("C%d", n), nil
	}}

	codes, err := svc.CreateCodes(context.Background(), "admin", 1, 3)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	require.Len(t, codes, 1)
	assert.Equal(t, "C1", codes[0].Code)
}

func TestCodeService_GiveUpAfterRepeatedCollisions(t *testing.T) {
	repo := &mockCodeRepo{}
	repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrCodeExists)

	svc := &codeService{codeRepo: repo, logger: zap.NewNop(), generate: func() (string, error) { return "SAME", nil }}
	_, err := svc.CreateCodes(context.Background(), "admin", 1, 1)
	assert.ErrorIs(t, err, repository.ErrCodeExists)
	repo.AssertNumberOfCalls(t, "Create", createAttempts)
}

func TestCodeService_ListCodes(t *testing.T) {
	ctx := context.Background()
	unused := false
	filter := repository.CodeFilter{Used: &unused, Limit: 10}

	repo := &mockCodeRepo{}
	repo.On("List", mock.Anything, filter).Return([]model.RedeemCode{{Code: "A"}}, nil).Once()
	repo.On("List", mock.Anything, repository.CodeFilter{}).Return(nil, errBoom).Once()
	svc := NewCodeService(repo, zap.NewNop())

	codes, err := svc.ListCodes(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, codes, 1)

	_, err = svc.ListCodes(ctx, repository.CodeFilter{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCodeService_GetCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRedeemCodeRepository()
	require.NoError(t, repo.Create(ctx, &model.RedeemCode{Code: "LOOKUP", Amount: 4}))
	_, err := repo.ClaimCode(ctx, "LOOKUP", "u1")
	require.NoError(t, err)
	svc := NewCodeService(repo, zap.NewNop())

	got, err := svc.GetCode(ctx, " LOOKUP ")
	require.NoError(t, err)
	assert.True(t, got.Used)
	require.NotNil(t, got.UsedBy)
	assert.Equal(t, "u1", *got.UsedBy)
	assert.NotNil(t, got.UsedAt)

	_, err = svc.GetCode(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = svc.GetCode(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	broken := &mockCodeRepo{}
	broken.On("GetByCode", mock.Anything, "X").Return(nil, errBoom)
	_, err = NewCodeService(broken, zap.NewNop()).GetCode(ctx, "X")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
