package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/storage"
)

var (
	// ErrNotFound indicates the referenced item, review or registry entry is absent.
	ErrNotFound = errors.New("catalog: not found")
	// ErrConflict indicates a duplicate unique field.
	ErrConflict = errors.New("catalog: conflict")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("catalog: validation failed")
	// ErrPrecondition indicates the operation would break a registry invariant.
	ErrPrecondition = errors.New("catalog: precondition failed")
	// ErrIngestion indicates the object store rejected an upload.
	ErrIngestion = errors.New("catalog: media ingestion failed")
	// ErrBackendUnavailable wraps unexpected persistence failures.
	ErrBackendUnavailable = errors.New("catalog: backend unavailable")
	// ErrUnauthorized indicates an admin-only operation without an admin session.
	ErrUnauthorized = errors.New("catalog: admin session required")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// mapStoreError translates storage errors into the catalog taxonomy.
// Unexpected failures are logged here and nowhere else.
func (s *Service) mapStoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	case errors.Is(err, storage.ErrLastEntry):
		return fmt.Errorf("%w: %s: last entry cannot be deleted", ErrPrecondition, op)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		s.logger.Error("storage call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
	}
}

func (s *Service) mapMediaError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, media.ErrInvalidMedia):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, media.ErrIngestion):
		s.logger.Warn("media ingestion failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrIngestion, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		s.logger.Error("media call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrIngestion, op, err)
	}
}
