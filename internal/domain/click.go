package domain

import (
	"time"
)

// Click представляет клик по сокращенной ссылке.
// Запись только добавляется, удаляется лишь каскадом вместе со ссылкой.
type Click struct {
	ID         int64     `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"` // snowflake ID
	LinkID     int64     `gorm:"column:link_id;not null;index:idx_clicks_link_ip,priority:1;index:idx_clicks_link_time,priority:1" json:"link_id"`
	IPAddress  string    `gorm:"column:ip_address;size:45;index:idx_clicks_link_ip,priority:2" json:"ip_address"`
	UserAgent  *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer    *string   `gorm:"column:referer;type:text" json:"referer,omitempty"`
	Country    *string   `gorm:"column:country;size:64" json:"country,omitempty"`
	City       *string   `gorm:"column:city;size:100" json:"city,omitempty"`
	DeviceType *string   `gorm:"column:device_type;size:10" json:"device_type,omitempty"` // Desktop, Mobile, Tablet, Bot
	Browser    *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS         *string   `gorm:"column:os;size:50" json:"os,omitempty"`
	ClickedAt  time.Time `gorm:"column:clicked_at;not null;index:idx_clicks_link_time,priority:2" json:"clicked_at"`
	IsUnique   bool      `gorm:"column:is_unique;not null" json:"is_unique"` // первый клик с этого IP по ссылке

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (Click) TableName() string {
	return "clicks"
}
