package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Hotel struct {
	gorm.Model
	HostID       uint           `json:"hostID"`
	Name         string         `json:"name"`
	Description  string         `json:"description" gorm:"type:text"`
	AddressLine1 string         `json:"addressLine1"`
	AddressLine2 string         `json:"addressLine2"`
	City         string         `json:"city" gorm:"index"`
	Country      string         `json:"country"`
	Lat          float32        `json:"lat"`
	Lng          float32        `json:"lng"`
	Stars        int            `json:"stars"`
	Amenities    datatypes.JSON `json:"amenities" gorm:"type:jsonb"` // array of amenity keys
	Images       datatypes.JSON `json:"images" gorm:"type:jsonb"`    // array of CDN URLs
	Rating       float32        `json:"rating"`
	IsActive     *bool          `json:"isActive" gorm:"default:true"`

	Host     *User     `json:"host,omitempty" gorm:"foreignKey:HostID"`
	Rooms    []Room    `json:"rooms,omitempty"`
	Reviews  []Review  `json:"reviews,omitempty"`
	Bookings []Booking `json:"bookings,omitempty"`
}
