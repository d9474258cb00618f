package domain

import (
	"time"

	"gorm.io/gorm"
)

// Link представляет сокращенную ссылку
type Link struct {
	ID           int64      `gorm:"primaryKey;column:id" json:"id"`
	ShortCode    string     `gorm:"column:short_code;size:50;uniqueIndex;not null" json:"short_code"`
	CustomAlias  *string    `gorm:"column:custom_alias;size:50;uniqueIndex" json:"custom_alias,omitempty"`
	OriginalURL  string     `gorm:"column:original_url;type:text;not null" json:"original_url"`
	Title        *string    `gorm:"column:title;size:255" json:"title,omitempty"`
	Description  *string    `gorm:"column:description;type:text" json:"description,omitempty"`
	UserID       *int64     `gorm:"column:user_id;index" json:"user_id,omitempty"` // NULL = анонимная ссылка
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"is_active"`
	PasswordHash *string    `gorm:"column:password_hash" json:"-"`
	ClickLimit   int        `gorm:"column:click_limit;not null;default:0" json:"click_limit"` // 0 = без лимита
	Tags         []string   `gorm:"column:tags;type:text;serializer:json" json:"tags,omitempty"`
	UTMSource    *string    `gorm:"column:utm_source;size:100" json:"utm_source,omitempty"`
	UTMMedium    *string    `gorm:"column:utm_medium;size:100" json:"utm_medium,omitempty"`
	UTMCampaign  *string    `gorm:"column:utm_campaign;size:100" json:"utm_campaign,omitempty"`
	TotalClicks  int64      `gorm:"column:total_clicks;not null;default:0" json:"total_clicks"`
	UniqueClicks int64      `gorm:"column:unique_clicks;not null;default:0" json:"unique_clicks"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Мягкое удаление: удаленная ссылка не резолвится, но продолжает занимать код
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "links"
}

// IsExpired проверяет, истек ли срок действия ссылки на момент now
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// LimitReached проверяет, исчерпан ли лимит кликов
func (l *Link) LimitReached() bool {
	return l.ClickLimit > 0 && l.TotalClicks >= int64(l.ClickLimit)
}

// IsPasswordProtected сообщает, закрыта ли ссылка паролем
func (l *Link) IsPasswordProtected() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// OwnedBy проверяет, принадлежит ли ссылка пользователю
func (l *Link) OwnedBy(userID int64) bool {
	return l.UserID != nil && *l.UserID == userID
}

// HasUTM сообщает, задан ли хотя бы один UTM параметр
func (l *Link) HasUTM() bool {
	return nonEmpty(l.UTMSource) || nonEmpty(l.UTMMedium) || nonEmpty(l.UTMCampaign)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
