package models

import "gorm.io/gorm"

type Room struct {
	gorm.Model
	HotelID      uint    `json:"hotelID" gorm:"not null;index"`
	Name         string  `json:"name"`
	Description  string  `json:"description" gorm:"type:text"`
	Sleeps       int     `json:"sleeps"`
	NightlyPrice float64 `json:"nightlyPrice"`
	Currency     string  `json:"currency" gorm:"type:varchar(3);default:'LKR'"`
	Quantity     int     `json:"quantity" gorm:"default:1"` // identical units available

	Hotel *Hotel `json:"hotel,omitempty" gorm:"foreignKey:HotelID"`
}
