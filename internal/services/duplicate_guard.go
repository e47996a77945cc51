package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tvet-apply/applicants-api/internal/repository"
	apperrors "github.com/tvet-apply/applicants-api/pkg/errors"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

// DuplicateGuard rejects candidates whose natural keys are already stored.
// The unique indexes on application_forms back it up under concurrency.
type DuplicateGuard struct {
	store repository.FormStore
}

// NewDuplicateGuard creates a new duplicate guard
func NewDuplicateGuard(store repository.FormStore) *DuplicateGuard {
	return &DuplicateGuard{store: store}
}

// CheckDuplicate returns ErrConflictingRecord when any stored form holds
// nationalID or phoneNumber. excludeID skips the form being updated (0 for none).
func (g *DuplicateGuard) CheckDuplicate(ctx context.Context, nationalID, phoneNumber string, excludeID int) error {
	existing, err := g.store.FindByNaturalKeys(ctx, nationalID, phoneNumber)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing.ID == excludeID {
		return nil
	}

	logger.Info("Duplicate natural key rejected",
		zap.String("existing_form_id", strconv.Itoa(existing.ID)),
		zap.Bool("national_id_match", existing.NationalID == nationalID),
		zap.Bool("phone_match", existing.PhoneNumber == phoneNumber))
	return ErrConflictingRecord
}

// asConflict maps a store unique violation onto ErrConflictingRecord
func asConflict(err error) error {
	if err != nil && apperrors.Is(err, apperrors.ErrConflict) {
		logger.Info("Unique constraint rejected write",
			zap.String("constraint", apperrors.Subject(err)))
		return ErrConflictingRecord
	}
	return err
}

// claimedKeys tracks natural keys committed earlier in one import batch
type claimedKeys struct {
	nationalIDs map[string]int
	phones      map[string]int
}

func newClaimedKeys() *claimedKeys {
	return &claimedKeys{nationalIDs: map[string]int{}, phones: map[string]int{}}
}

// holder returns the earlier row that claimed either key
func (k *claimedKeys) holder(nationalID, phoneNumber string) (int, bool) {
	if row, ok := k.nationalIDs[nationalID]; ok {
		return row, true
	}
	if row, ok := k.phones[phoneNumber]; ok {
		return row, true
	}
	return 0, false
}

func (k *claimedKeys) claim(nationalID, phoneNumber string, row int) {
	k.nationalIDs[nationalID] = row
	k.phones[phoneNumber] = row
}
