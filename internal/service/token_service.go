package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/presensia/presensia-api/internal/models"
	appErrors "github.com/presensia/presensia-api/pkg/errors"
)

type tokenWriter interface {
	Put(ctx context.Context, token *models.AttendanceToken) error
}

// TokenService issues attendance tokens. A token id is a v4 UUID: 122 bits
// of crypto randomness, unguessable and effectively collision-free. Issuing
// never invalidates earlier tokens for the class; several live tokens may
// coexist and the validator treats each independently.
type TokenService struct {
	store  tokenWriter
	logger *zap.Logger
	now    func() time.Time
}

// NewTokenService constructs the issuer.
func NewTokenService(store tokenWriter, logger *zap.Logger) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{store: store, logger: logger, now: time.Now}
}

// Issue creates and persists a new token bound to the class and the
// teacher's current position. Origin coordinates are optional; a token
// without them skips geofencing at validation time. Store-write failures
// surface to the caller without retry: a duplicate issuance is harmless.
func (s *TokenService) Issue(ctx context.Context, classID, teacherID string, lat, lon *float64) (*models.AttendanceToken, error) {
	token := &models.AttendanceToken{
		ID:        uuid.NewString(),
		ClassID:   classID,
		TeacherID: teacherID,
		IssuedAt:  s.now(),
		OriginLat: lat,
		OriginLon: lon,
	}
	if err := s.store.Put(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist attendance token")
	}
	s.logger.Info("attendance token issued",
		zap.String("class_id", classID),
		zap.String("teacher_id", teacherID),
	)
	return token, nil
}
