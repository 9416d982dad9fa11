package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/presensia/presensia-api/internal/models"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
)

type fakeTokenWriter struct {
	stored []models.AttendanceToken
	err    error
}

func (f *fakeTokenWriter) Put(_ context.Context, token *models.AttendanceToken) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, *token)
	return nil
}

func TestIssueStampsAndPersists(t *testing.T) {
	writer := &fakeTokenWriter{}
	svc := NewTokenService(writer, zap.NewNop())
	issuedAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue(context.Background(), "class-1", "t-1", ptr(28.7041), ptr(77.1025))
	require.NoError(t, err)
	require.Len(t, writer.stored, 1)

	_, parseErr := uuid.Parse(token.ID)
	assert.NoError(t, parseErr, "token id is a UUID")
	assert.Equal(t, "class-1", token.ClassID)
	assert.Equal(t, "t-1", token.TeacherID)
	assert.Equal(t, issuedAt, token.IssuedAt)
	assert.True(t, token.HasOrigin())
	assert.Equal(t, *token, writer.stored[0])
}

func TestIssueIDsAreUnique(t *testing.T) {
	writer := &fakeTokenWriter{}
	svc := NewTokenService(writer, zap.NewNop())

	first, err := svc.Issue(context.Background(), "class-1", "t-1", nil, nil)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "class-1", "t-1", nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, writer.stored, 2, "issuing does not displace earlier tokens")
}

func TestIssueWithoutOrigin(t *testing.T) {
	writer := &fakeTokenWriter{}
	svc := NewTokenService(writer, zap.NewNop())

	token, err := svc.Issue(context.Background(), "class-1", "t-1", nil, nil)
	require.NoError(t, err)
	assert.False(t, token.HasOrigin())
}

func TestIssueStoreFailure(t *testing.T) {
	writer := &fakeTokenWriter{err: errors.New("connection refused")}
	svc := NewTokenService(writer, zap.NewNop())

	_, err := svc.Issue(context.Background(), "class-1", "t-1", nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
