package domain

import "time"

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User представляет пользователя сервиса.
type User struct {
	ID                 int64     `gorm:"primaryKey;column:id" json:"id"`
	Email              string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	DisplayName        *string   `gorm:"column:display_name;size:100" json:"display_name,omitempty"`
	PasswordHash       *string   `gorm:"column:password_hash" json:"-"` // скрываем пароль в JSON
	Role               string    `gorm:"column:role;size:20;not null;default:user" json:"role"`
	SubscriptionTypeID int16     `gorm:"column:subscription_type_id;not null;default:1" json:"subscription_type_id"`
	IsActive           bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	SubscriptionType *SubscriptionType `gorm:"foreignKey:SubscriptionTypeID" json:"subscription_type,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsElevated сообщает, есть ли у пользователя административная роль
func (u *User) IsElevated() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
