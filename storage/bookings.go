package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
	"github.com/prabhashwara07/IntelliStay-sub001/services"
)

// BookingRepository backs services.BookingStore with GORM. UpdateStatus is
// the single write path for booking status; everything else in the app reads.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByOrderRef(ctx context.Context, orderRef string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("order_ref = ?", orderRef).First(&booking).Error; err != nil {
		if IsNotFound(err) {
			return nil, services.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// UpdateStatus applies a status transition as a conditional UPDATE so the
// read-modify-write is atomic per booking row. Zero affected rows means the
// expected-status precondition failed.
func (r *BookingRepository) UpdateStatus(ctx context.Context, bookingID uint, expected, next models.BookingStatus) error {
	if !expected.CanTransition(next) {
		return services.ErrStatusConflict
	}
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, expected).
		Update("status", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrStatusConflict
	}
	return nil
}

func (r *BookingRepository) MarkReviewEligible(ctx context.Context, bookingID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("review_eligible", true).Error
}

// IsNotFound lets callers translate a repository miss without importing gorm.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
