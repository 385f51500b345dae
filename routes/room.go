package routes

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
	"github.com/prabhashwara07/IntelliStay-sub001/storage"
	"github.com/prabhashwara07/IntelliStay-sub001/utils"
)

type CreateRoomInput struct {
	Name         string  `json:"name" validate:"required,max=256"`
	Description  string  `json:"description"`
	Sleeps       int     `json:"sleeps" validate:"required,gte=1,lte=16"`
	NightlyPrice float64 `json:"nightlyPrice" validate:"required,gt=0"`
	Currency     string  `json:"currency" validate:"required,len=3"`
	Quantity     int     `json:"quantity" validate:"gte=1"`
}

func CreateRoom(ctx iris.Context) {
	params := ctx.Params()
	hotelID := params.Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var hotel models.Hotel
	if err := storage.DB.First(&hotel, hotelID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if hotel.HostID != claims.ID && claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	var input CreateRoomInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	room := models.Room{
		HotelID:      hotel.ID,
		Name:         input.Name,
		Description:  input.Description,
		Sleeps:       input.Sleeps,
		NightlyPrice: input.NightlyPrice,
		Currency:     input.Currency,
		Quantity:     input.Quantity,
	}
	if room.Quantity == 0 {
		room.Quantity = 1
	}

	if err := storage.DB.Create(&room).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(room)
}

func ListHotelRooms(ctx iris.Context) {
	params := ctx.Params()
	hotelID := params.Get("id")

	var rooms []models.Room
	if err := storage.DB.Where("hotel_id = ?", hotelID).Order("nightly_price ASC").Find(&rooms).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(rooms)
}

func DeleteRoom(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var room models.Room
	if err := storage.DB.Preload("Hotel").First(&room, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if room.Hotel == nil || (room.Hotel.HostID != claims.ID && claims.Role != "admin") {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	storage.DB.Delete(&room)
	ctx.StatusCode(iris.StatusNoContent)
}
