package domain

import "time"

// SubscriptionType представляет тарифный план, задающий квоту ссылок
type SubscriptionType struct {
	ID          int16     `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;size:20;uniqueIndex;not null" json:"name"`
	DisplayName string    `gorm:"column:display_name;size:50;not null" json:"display_name"`
	MaxLinks    *int      `gorm:"column:max_links" json:"max_links,omitempty"` // NULL = unlimited
	IsActive    bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName возвращает название таблицы для GORM
func (SubscriptionType) TableName() string {
	return "subscription_types"
}

// IsUnlimited проверяет, является ли подписка безлимитной по ссылкам
func (st *SubscriptionType) IsUnlimited() bool {
	return st.MaxLinks == nil
}
