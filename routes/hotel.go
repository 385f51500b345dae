package routes

import (
	"encoding/json"
	"fmt"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/datatypes"

	"github.com/prabhashwara07/IntelliStay-sub001/models"
	"github.com/prabhashwara07/IntelliStay-sub001/storage"
	"github.com/prabhashwara07/IntelliStay-sub001/utils"
)

type CreateHotelInput struct {
	Name         string   `json:"name" validate:"required,max=256"`
	Description  string   `json:"description"`
	AddressLine1 string   `json:"addressLine1" validate:"required"`
	AddressLine2 string   `json:"addressLine2"`
	City         string   `json:"city" validate:"required"`
	Country      string   `json:"country" validate:"required"`
	Lat          float32  `json:"lat"`
	Lng          float32  `json:"lng"`
	Stars        int      `json:"stars" validate:"gte=0,lte=5"`
	Amenities    []string `json:"amenities"`
	Images       []string `json:"images"` // base64 payloads
}

func CreateHotel(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input CreateHotelInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	amenitiesJSON, _ := json.Marshal(input.Amenities)

	hotel := models.Hotel{
		HostID:       claims.ID,
		Name:         input.Name,
		Description:  input.Description,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		Country:      input.Country,
		Lat:          input.Lat,
		Lng:          input.Lng,
		Stars:        input.Stars,
		Amenities:    datatypes.JSON(amenitiesJSON),
	}

	if err := storage.DB.Create(&hotel).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Upload images after the row exists so public IDs can embed the hotel ID
	urls := make([]string, 0, len(input.Images))
	for i, img := range input.Images {
		if url := storage.UploadHotelImage(img, fmt.Sprintf("hotel-%d-%d", hotel.ID, i)); url != "" {
			urls = append(urls, url)
		}
	}
	if len(urls) > 0 {
		imagesJSON, _ := json.Marshal(urls)
		storage.DB.Model(&hotel).Update("images", datatypes.JSON(imagesJSON))
		hotel.Images = datatypes.JSON(imagesJSON)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(hotel)
}

func GetHotel(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var hotel models.Hotel
	if err := storage.DB.Preload("Rooms").Preload("Reviews").Preload("Reviews.User").First(&hotel, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	ctx.JSON(hotel)
}

func ListHotels(ctx iris.Context) {
	city := ctx.URLParamDefault("city", "")
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Hotel{}).Where("is_active = ?", true)
	if city != "" {
		query = query.Where("lower(city) = lower(?)", city)
	}

	var total int64
	query.Count(&total)

	var hotels []models.Hotel
	if err := query.Offset((page - 1) * perPage).Limit(perPage).Order("rating DESC").Find(&hotels).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, hotels, page, perPage, total)
}

type UpdateHotelInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Stars       *int     `json:"stars"`
	Amenities   []string `json:"amenities"`
	IsActive    *bool    `json:"isActive"`
}

func UpdateHotel(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var hotel models.Hotel
	if err := storage.DB.First(&hotel, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if hotel.HostID != claims.ID && claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	var input UpdateHotelInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Stars != nil {
		updates["stars"] = *input.Stars
	}
	if input.Amenities != nil {
		amenitiesJSON, _ := json.Marshal(input.Amenities)
		updates["amenities"] = datatypes.JSON(amenitiesJSON)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		if err := storage.DB.Model(&hotel).Updates(updates).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	ctx.JSON(hotel)
}

func DeleteHotel(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var hotel models.Hotel
	if err := storage.DB.First(&hotel, id).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	if hotel.HostID != claims.ID && claims.Role != "admin" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	// Best effort CDN cleanup before the row goes
	var urls []string
	if len(hotel.Images) > 0 {
		if err := json.Unmarshal(hotel.Images, &urls); err == nil {
			for _, u := range urls {
				storage.DeleteHotelImage(u)
			}
		}
	}

	storage.DB.Delete(&hotel)
	ctx.StatusCode(iris.StatusNoContent)
}
