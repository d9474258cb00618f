package postgres

import (
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStorage реализует repository.Storage поверх GORM
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

var _ repository.Storage = (*PostgresStorage)(nil)

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// Ping проверяет доступность базы данных
func (s *PostgresStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// --- Link Methods ---

// CreateLink сохраняет новую ссылку. Нарушение уникальности кода или алиаса
// возвращается как repository.ErrCodeTaken.
func (s *PostgresStorage) CreateLink(ctx context.Context, link *domain.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeTaken
		}
		s.log.Error("failed to save link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.Int64("link_id", link.ID), zap.String("short_code", link.ShortCode))
	return nil
}

// GetLinkByCode получает ссылку по короткому коду или алиасу, удаленные не видны
func (s *PostgresStorage) GetLinkByCode(ctx context.Context, code string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).
		Where("short_code = ? OR custom_alias = ?", code, code).
		Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// GetLinkByID получает ссылку по идентификатору
func (s *PostgresStorage) GetLinkByID(ctx context.Context, id int64) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Take(&link, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link by id", zap.Int64("link_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

// CodeExists проверяет, занят ли код любым столбцом, включая удаленные ссылки
func (s *PostgresStorage) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&domain.Link{}).
		Where("short_code = ? OR custom_alias = ?", code, code).
		Count(&count).Error
	if err != nil {
		s.log.Error("failed to check code existence", zap.String("code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check code: %w", err)
	}

	return count > 0, nil
}

// UpdateLink обновляет только метаданные; код, алиас и счетчики не трогаются
func (s *PostgresStorage) UpdateLink(ctx context.Context, link *domain.Link) error {
	result := s.db.WithContext(ctx).Model(link).
		Select("title", "description", "expires_at", "is_active", "tags",
			"utm_source", "utm_medium", "utm_campaign", "updated_at").
		Updates(link)
	if result.Error != nil {
		s.log.Error("failed to update link", zap.Int64("link_id", link.ID), zap.Error(result.Error))
		return fmt.Errorf("failed to update link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	return nil
}

// SoftDeleteLink помечает ссылку удаленной
func (s *PostgresStorage) SoftDeleteLink(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&domain.Link{}, id)
	if result.Error != nil {
		s.log.Error("failed to delete link", zap.Int64("link_id", id), zap.Error(result.Error))
		return fmt.Errorf("failed to delete link: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	s.log.Info("deleted link", zap.Int64("link_id", id))
	return nil
}

// CountLinksByOwner возвращает число неудаленных ссылок пользователя
func (s *PostgresStorage) CountLinksByOwner(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		s.log.Error("failed to count user links", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count user links: %w", err)
	}

	return count, nil
}

// TopLinks возвращает ссылки с наибольшим числом кликов
func (s *PostgresStorage) TopLinks(ctx context.Context, ownerID *int64, limit int) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.ownedBy(s.db.WithContext(ctx), ownerID).
		Order("total_clicks DESC").Order("id ASC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		s.log.Error("failed to list top links", zap.Error(err))
		return nil, fmt.Errorf("failed to list top links: %w", err)
	}

	return links, nil
}

// LinkTotals считает ссылки и суммы счетчиков
func (s *PostgresStorage) LinkTotals(ctx context.Context, ownerID *int64, now time.Time) (repository.LinkTotals, error) {
	var totals repository.LinkTotals
	db := s.db.WithContext(ctx)

	var sums struct {
		Total        int64
		TotalClicks  int64
		UniqueClicks int64
	}
	err := s.ownedBy(db.Model(&domain.Link{}), ownerID).
		Select("COUNT(*) AS total, COALESCE(SUM(total_clicks), 0) AS total_clicks, COALESCE(SUM(unique_clicks), 0) AS unique_clicks").
		Scan(&sums).Error
	if err != nil {
		s.log.Error("failed to sum link counters", zap.Error(err))
		return totals, fmt.Errorf("failed to sum link counters: %w", err)
	}
	totals.Total = sums.Total
	totals.TotalClicks = sums.TotalClicks
	totals.UniqueClicks = sums.UniqueClicks

	err = s.ownedBy(db.Model(&domain.Link{}), ownerID).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now).
		Count(&totals.Active).Error
	if err != nil {
		return totals, fmt.Errorf("failed to count active links: %w", err)
	}

	err = s.ownedBy(db.Model(&domain.Link{}), ownerID).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Count(&totals.Expired).Error
	if err != nil {
		return totals, fmt.Errorf("failed to count expired links: %w", err)
	}

	return totals, nil
}

// --- Click Methods ---

// HasClickFromIP проверяет, был ли уже клик по ссылке с этого IP
func (s *PostgresStorage) HasClickFromIP(ctx context.Context, linkID int64, ip string) (bool, error) {
	var click domain.Click
	err := s.db.WithContext(ctx).Select("id").
		Where("link_id = ? AND ip_address = ?", linkID, ip).
		Take(&click).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check previous clicks: %w", err)
	}

	return true, nil
}

// errClickRecorded откатывает транзакцию повторной записи клика
var errClickRecorded = errors.New("click already recorded")

// RecordClick в одной транзакции выполняет col = col + 1 для счетчиков ссылки
// и вставляет клик с ON CONFLICT DO NOTHING по ID. Повтор после
// неоднозначной ошибки (таймаут после коммита) не меняет счетчики.
func (s *PostgresStorage) RecordClick(ctx context.Context, click *domain.Click) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counters := map[string]interface{}{"total_clicks": gorm.Expr("total_clicks + 1")}
		if click.IsUnique {
			counters["unique_clicks"] = gorm.Expr("unique_clicks + 1")
		}

		result := tx.Model(&domain.Link{}).Where("id = ?", click.LinkID).UpdateColumns(counters)
		if result.Error != nil {
			return fmt.Errorf("failed to increment counters: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrLinkNotFound
		}

		result = tx.Omit("Link").Clauses(clause.OnConflict{DoNothing: true}).Create(click)
		if result.Error != nil {
			return fmt.Errorf("failed to create click: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return errClickRecorded
		}
		return nil
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errClickRecorded):
		s.log.Debug("click already recorded", zap.Int64("click_id", click.ID))
		return false, nil
	case errors.Is(err, repository.ErrLinkNotFound):
		return false, err
	default:
		s.log.Error("failed to record click", zap.Int64("link_id", click.LinkID), zap.Error(err))
		return false, err
	}
}

// LastClickAt возвращает время последнего клика без ограничения окном
func (s *PostgresStorage) LastClickAt(ctx context.Context, linkID int64) (*time.Time, error) {
	var click domain.Click
	err := s.db.WithContext(ctx).Select("clicked_at").
		Where("link_id = ?", linkID).
		Order("clicked_at DESC").
		Take(&click).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last click: %w", err)
	}

	last := click.ClickedAt.UTC()
	return &last, nil
}

// ClickPoints возвращает время и флаг уникальности кликов начиная с since
func (s *PostgresStorage) ClickPoints(ctx context.Context, scope repository.ClickScope, since time.Time) ([]repository.ClickPoint, error) {
	// клики удаленных ссылок не попадают в ряд, как и в LinkTotals
	query := s.db.WithContext(ctx).Model(&domain.Click{}).
		Select("clicks.clicked_at, clicks.is_unique").
		Joins("JOIN links ON links.id = clicks.link_id AND links.deleted_at IS NULL").
		Where("clicks.clicked_at >= ?", since)

	if scope.LinkID != nil {
		query = query.Where("clicks.link_id = ?", *scope.LinkID)
	}
	if scope.OwnerID != nil {
		query = query.Where("links.user_id = ?", *scope.OwnerID)
	}

	var points []repository.ClickPoint
	if err := query.Scan(&points).Error; err != nil {
		s.log.Error("failed to load click points", zap.Error(err))
		return nil, fmt.Errorf("failed to load click points: %w", err)
	}

	return points, nil
}

// CountClicks считает клики по ссылке начиная с since
func (s *PostgresStorage) CountClicks(ctx context.Context, linkID int64, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Click{}).
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}

	return count, nil
}

// CountByDimension группирует клики окна по столбцу измерения.
// Клики без значения измерения не учитываются.
func (s *PostgresStorage) CountByDimension(ctx context.Context, linkID int64, dim repository.Dimension, since time.Time, limit int) ([]repository.DimensionCount, error) {
	if !dim.Valid() {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}
	column := string(dim)

	query := s.db.WithContext(ctx).
		Model(&domain.Click{}).
		Select(column+" AS value, COUNT(*) AS count").
		Where("link_id = ? AND clicked_at >= ?", linkID, since).
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Group(column).
		Order("count DESC").Order("value ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []repository.DimensionCount
	if err := query.Scan(&results).Error; err != nil {
		s.log.Error("failed to group clicks",
			zap.Int64("link_id", linkID),
			zap.String("dimension", column),
			zap.Error(err))
		return nil, fmt.Errorf("failed to group clicks by %s: %w", column, err)
	}

	return results, nil
}

// --- User Methods ---

// CreateUser создает пользователя (используется операторской утилитой)
func (s *PostgresStorage) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Omit("SubscriptionType").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %s already exists: %w", user.Email, err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("created new user", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

// FindUserByID получает пользователя по ID
func (s *PostgresStorage) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Preload("SubscriptionType").Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// FindUserByEmail получает пользователя по email
func (s *PostgresStorage) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Preload("SubscriptionType").Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// URLQuota возвращает квоту ссылок пользователя по его плану
func (s *PostgresStorage) URLQuota(ctx context.Context, userID int64) (int, error) {
	user, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if user.SubscriptionType == nil {
		return repository.DefaultURLQuota, nil
	}
	if user.SubscriptionType.IsUnlimited() {
		return repository.UnlimitedQuota, nil
	}

	return *user.SubscriptionType.MaxLinks, nil
}

// UserTotals считает пользователей для админской панели
func (s *PostgresStorage) UserTotals(ctx context.Context, since time.Time) (repository.UserTotals, error) {
	var totals repository.UserTotals
	db := s.db.WithContext(ctx)

	if err := db.Model(&domain.User{}).Count(&totals.Total).Error; err != nil {
		return totals, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&domain.User{}).Where("is_active = ?", true).Count(&totals.Active).Error; err != nil {
		return totals, fmt.Errorf("failed to count active users: %w", err)
	}
	if err := db.Model(&domain.User{}).Where("created_at >= ?", since).Count(&totals.NewSince).Error; err != nil {
		return totals, fmt.Errorf("failed to count new users: %w", err)
	}

	return totals, nil
}

// --- Helper Methods ---

// ownedBy ограничивает запрос ссылками владельца, nil означает все ссылки
func (s *PostgresStorage) ownedBy(db *gorm.DB, ownerID *int64) *gorm.DB {
	if ownerID == nil {
		return db
	}
	return db.Where("user_id = ?", *ownerID)
}
