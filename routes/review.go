package routes

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
	"github.com/prabhashwara07/IntelliStay-sub001/storage"
	"github.com/prabhashwara07/IntelliStay-sub001/utils"
)

type CreateReviewInput struct {
	Title string `json:"title" validate:"required,max=256"`
	Body  string `json:"body" validate:"required"`
	Stars int    `json:"stars" validate:"required,gte=1,lte=5"`
}

// CreateHotelReview lets a guest review a hotel only after a booking there
// was reconciled to PAID. Review eligibility is gated on the authoritative
// payment status, never on client claims.
func CreateHotelReview(ctx iris.Context) {
	params := ctx.Params()
	hotelID := params.Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateReviewInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var hotel models.Hotel
	if err := storage.DB.First(&hotel, hotelID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	var booking models.Booking
	eligible := storage.DB.
		Where("hotel_id = ? AND guest_id = ? AND status = ? AND review_eligible = ?",
			hotel.ID, claims.ID, models.BookingPaid, true).
		Order("check_out DESC").
		First(&booking)
	if eligible.Error != nil {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Only guests with a paid stay can review this hotel", ctx)
		return
	}

	// One review per booking
	var existing int64
	storage.DB.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing)
	if existing > 0 {
		utils.CreateError(iris.StatusConflict, "Conflict", "This stay has already been reviewed", ctx)
		return
	}

	review := models.Review{
		UserID:     claims.ID,
		HotelID:    hotel.ID,
		BookingID:  &booking.ID,
		Title:      input.Title,
		Body:       input.Body,
		Stars:      input.Stars,
		IsVerified: true,
	}

	if err := storage.DB.Create(&review).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	refreshHotelRating(hotel.ID)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(review)
}

func ListHotelReviews(ctx iris.Context) {
	params := ctx.Params()
	hotelID := params.Get("id")

	var reviews []models.Review
	if err := storage.DB.Preload("User").Where("hotel_id = ?", hotelID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(reviews)
}

func refreshHotelRating(hotelID uint) {
	var avg float32
	row := storage.DB.Model(&models.Review{}).Where("hotel_id = ?", hotelID).Select("COALESCE(AVG(stars), 0)").Row()
	if err := row.Scan(&avg); err != nil {
		return
	}
	storage.DB.Model(&models.Hotel{}).Where("id = ?", hotelID).Update("rating", avg)
}
