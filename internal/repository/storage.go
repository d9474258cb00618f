package repository

import (
	"ShrtLink-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeTaken    = errors.New("short code or alias already taken")
	ErrUserNotFound = errors.New("user not found")
)

const (
	// UnlimitedQuota возвращается URLQuota для безлимитных планов
	UnlimitedQuota = -1
	// DefaultURLQuota применяется, если у пользователя нет плана
	DefaultURLQuota = 100
)

// Dimension столбец клика, по которому строится разбивка
type Dimension string

const (
	DimensionCountry  Dimension = "country"
	DimensionDevice   Dimension = "device_type"
	DimensionBrowser  Dimension = "browser"
	DimensionReferrer Dimension = "referer"
	DimensionOS       Dimension = "os"
)

// Valid проверяет, что измерение входит в белый список столбцов
func (d Dimension) Valid() bool {
	switch d {
	case DimensionCountry, DimensionDevice, DimensionBrowser, DimensionReferrer, DimensionOS:
		return true
	}
	return false
}

// DimensionCount количество кликов для одного значения измерения
type DimensionCount struct {
	Value string
	Count int64
}

// ClickPoint минимальная проекция клика для построения временного ряда
type ClickPoint struct {
	ClickedAt time.Time
	IsUnique  bool
}

// ClickScope ограничивает выборку кликов: одной ссылкой, ссылками владельца или всем
type ClickScope struct {
	LinkID  *int64
	OwnerID *int64
}

// LinkTotals агрегаты по ссылкам владельца (или по всем ссылкам)
type LinkTotals struct {
	Total        int64
	Active       int64
	Expired      int64
	TotalClicks  int64
	UniqueClicks int64
}

// UserTotals агрегаты по пользователям для админской панели
type UserTotals struct {
	Total    int64
	Active   int64
	NewSince int64
}

// LinkStore долговременное хранилище ссылок.
// Счетчики кликов меняет только ClickStore.RecordClick.
type LinkStore interface {
	CreateLink(ctx context.Context, link *domain.Link) error
	GetLinkByCode(ctx context.Context, code string) (*domain.Link, error)
	GetLinkByID(ctx context.Context, id int64) (*domain.Link, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	UpdateLink(ctx context.Context, link *domain.Link) error
	SoftDeleteLink(ctx context.Context, id int64) error
	CountLinksByOwner(ctx context.Context, userID int64) (int64, error)
	TopLinks(ctx context.Context, ownerID *int64, limit int) ([]*domain.Link, error)
	LinkTotals(ctx context.Context, ownerID *int64, now time.Time) (LinkTotals, error)
}

// ClickStore журнал кликов
type ClickStore interface {
	HasClickFromIP(ctx context.Context, linkID int64, ip string) (bool, error)
	// RecordClick сохраняет клик и атомарно увеличивает счетчики ссылки
	// (total всегда, unique при click.IsUnique) в одной транзакции.
	// Клик с уже записанным ID ничего не меняет и возвращает false.
	RecordClick(ctx context.Context, click *domain.Click) (bool, error)
	LastClickAt(ctx context.Context, linkID int64) (*time.Time, error)
	ClickPoints(ctx context.Context, scope ClickScope, since time.Time) ([]ClickPoint, error)
	CountClicks(ctx context.Context, linkID int64, since time.Time) (int64, error)
	CountByDimension(ctx context.Context, linkID int64, dim Dimension, since time.Time, limit int) ([]DimensionCount, error)
}

// UserDirectory внешний справочник пользователей и их квот
type UserDirectory interface {
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	URLQuota(ctx context.Context, userID int64) (int, error)
	UserTotals(ctx context.Context, since time.Time) (UserTotals, error)
}

// Storage объединяет все хранилища, которыми пользуется сервис
type Storage interface {
	LinkStore
	ClickStore
	UserDirectory
	Ping(ctx context.Context) error
}
