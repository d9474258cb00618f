package service

import (
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository"
	"ShrtLink-Backend/pkg/random"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxURLLength = 2048

// MaxBulkLinks предел одного пакетного запроса
const MaxBulkLinks = 100

// ErrCodeSpaceExhausted означает, что свободный код не найден даже на максимальной длине
var ErrCodeSpaceExhausted = errors.New("short code space exhausted")

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// Пути, занятые собственными маршрутами сервиса
var reservedAliases = map[string]struct{}{
	"api": {}, "health": {}, "ready": {}, "metrics": {}, "swagger": {},
	"password-required": {}, "link-expired": {},
}

// CredentialHasher хеширует и проверяет пароли ссылок
type CredentialHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// LinkDirectory хранилище ссылок плюс справочник пользователей
type LinkDirectory interface {
	repository.LinkStore
	repository.UserDirectory
}

// CreateLinkInput параметры создания ссылки
type CreateLinkInput struct {
	OriginalURL string
	CustomAlias string
	Title       *string
	Description *string
	ExpiresAt   *time.Time
	Password    string
	ClickLimit  int
	Tags        []string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
}

// UpdateLinkInput изменяемые метаданные; nil означает "не менять"
type UpdateLinkInput struct {
	Title       *string
	Description *string
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
	Tags        []string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
}

type URLShortenerService struct {
	store    LinkDirectory
	cache    cache.ResolutionCache
	hasher   CredentialHasher
	config   *config.URLShortener
	log      *zap.Logger
	generate func(length int) (string, error)
}

func NewURLShortener(store LinkDirectory, resolutionCache cache.ResolutionCache, hasher CredentialHasher, cfg *config.URLShortener, log *zap.Logger) *URLShortenerService {
	return &URLShortenerService{
		store:    store,
		cache:    resolutionCache,
		hasher:   hasher,
		config:   cfg,
		log:      log,
		generate: random.NewRandomString,
	}
}

// Create создает ссылку. ownerID == nil для анонимных ссылок.
func (s *URLShortenerService) Create(ctx context.Context, ownerID *int64, in CreateLinkInput) (*domain.Link, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	if ownerID != nil {
		if err := s.checkQuota(ctx, *ownerID); err != nil {
			return nil, err
		}
	}

	link := &domain.Link{
		OriginalURL: in.OriginalURL,
		Title:       in.Title,
		Description: in.Description,
		UserID:      ownerID,
		ExpiresAt:   in.ExpiresAt,
		IsActive:    true,
		ClickLimit:  in.ClickLimit,
		Tags:        in.Tags,
		UTMSource:   in.UTMSource,
		UTMMedium:   in.UTMMedium,
		UTMCampaign: in.UTMCampaign,
	}

	if in.Password != "" {
		digest, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash link password: %w", err)
		}
		link.PasswordHash = &digest
	}

	if in.CustomAlias != "" {
		if err := s.saveWithAlias(ctx, link, in.CustomAlias); err != nil {
			return nil, err
		}
	} else if err := s.saveWithGeneratedCode(ctx, link); err != nil {
		return nil, err
	}

	s.log.Info("link created",
		zap.Int64("link_id", link.ID),
		zap.String("short_code", link.ShortCode),
		zap.Bool("anonymous", ownerID == nil),
	)
	return link, nil
}

// Алиас становится и коротким кодом, и custom_alias; конфликт не повторяется
func (s *URLShortenerService) saveWithAlias(ctx context.Context, link *domain.Link, alias string) error {
	exists, err := s.store.CodeExists(ctx, alias)
	if err != nil {
		return fmt.Errorf("failed to check custom alias existence: %w", err)
	}
	if exists {
		return domain.ErrConflict
	}

	link.ShortCode = alias
	link.CustomAlias = &alias

	if err := s.store.CreateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrCodeTaken) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

// saveWithGeneratedCode tries MaxAttempts codes per length, then grows the
// length up to MaxCodeLength. A unique violation on insert is one more collision.
func (s *URLShortenerService) saveWithGeneratedCode(ctx context.Context, link *domain.Link) error {
	for length := s.config.CodeLength; length <= s.config.MaxCodeLength; length++ {
		for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
			code, err := s.generate(length)
			if err != nil {
				return fmt.Errorf("failed to generate short code: %w", err)
			}

			exists, err := s.store.CodeExists(ctx, code)
			if err != nil {
				return fmt.Errorf("failed to check short code existence: %w", err)
			}
			if exists {
				continue
			}

			link.ShortCode = code
			err = s.store.CreateLink(ctx, link)
			if err == nil {
				return nil
			}
			if !errors.Is(err, repository.ErrCodeTaken) {
				return fmt.Errorf("failed to save link: %w", err)
			}
		}

		s.log.Warn("short code collisions exhausted attempts, growing length",
			zap.Int("length", length),
			zap.Int("attempts", s.config.MaxAttempts),
		)
	}

	s.log.Error("short code space exhausted", zap.Int("max_length", s.config.MaxCodeLength))
	return ErrCodeSpaceExhausted
}

func (s *URLShortenerService) checkQuota(ctx context.Context, ownerID int64) error {
	remaining, limited, err := s.remainingQuota(ctx, ownerID)
	if err != nil {
		return err
	}
	if limited && remaining <= 0 {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// remainingQuota сколько ссылок владелец еще может создать; limited == false для безлимитных
func (s *URLShortenerService) remainingQuota(ctx context.Context, ownerID int64) (int64, bool, error) {
	quota, err := s.store.URLQuota(ctx, ownerID)
	if err != nil {
		// Пользователь из чужого токена может отсутствовать в справочнике
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to load url quota: %w", err)
	}
	if quota == repository.UnlimitedQuota || quota < 0 {
		return 0, false, nil
	}

	count, err := s.store.CountLinksByOwner(ctx, ownerID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to count links: %w", err)
	}
	return int64(quota) - count, true, nil
}

// BulkFailure ошибка одного элемента пакета
type BulkFailure struct {
	Index       int
	OriginalURL string
	Err         error
}

// BulkResult итог пакетного создания
type BulkResult struct {
	Created  []*domain.Link
	Failures []BulkFailure
}

// BulkCreate создает до MaxBulkLinks ссылок одного владельца.
// Квота проверяется сразу на весь пакет; ошибки отдельных элементов собираются в Failures.
func (s *URLShortenerService) BulkCreate(ctx context.Context, ownerID int64, inputs []CreateLinkInput) (*BulkResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no urls provided", domain.ErrInvalidInput)
	}
	if len(inputs) > MaxBulkLinks {
		return nil, fmt.Errorf("%w: at most %d urls per request", domain.ErrInvalidInput, MaxBulkLinks)
	}

	remaining, limited, err := s.remainingQuota(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if limited && int64(len(inputs)) > remaining {
		return nil, fmt.Errorf("%w: %d urls requested, %d remaining", domain.ErrQuotaExceeded, len(inputs), max(remaining, 0))
	}

	result := &BulkResult{Created: make([]*domain.Link, 0, len(inputs))}
	for i, in := range inputs {
		owner := ownerID
		link, err := s.Create(ctx, &owner, in)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Failures = append(result.Failures, BulkFailure{Index: i, OriginalURL: in.OriginalURL, Err: err})
			continue
		}
		result.Created = append(result.Created, link)
	}

	if len(result.Created) == 0 {
		return result, fmt.Errorf("%w: none of %d urls could be shortened", domain.ErrInvalidInput, len(inputs))
	}

	s.log.Info("bulk links created",
		zap.Int64("owner_id", ownerID),
		zap.Int("created", len(result.Created)),
		zap.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// Update меняет только метаданные; код и алиас неизменны
func (s *URLShortenerService) Update(ctx context.Context, linkID, requesterID int64, in UpdateLinkInput) (*domain.Link, error) {
	link, err := s.authorizedLink(ctx, linkID, requesterID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		link.Title = in.Title
	}
	if in.Description != nil {
		link.Description = in.Description
	}
	if in.ClearExpiry {
		link.ExpiresAt = nil
	} else if in.ExpiresAt != nil {
		link.ExpiresAt = in.ExpiresAt
	}
	if in.IsActive != nil {
		link.IsActive = *in.IsActive
	}
	if in.Tags != nil {
		link.Tags = in.Tags
	}
	if in.UTMSource != nil {
		link.UTMSource = in.UTMSource
	}
	if in.UTMMedium != nil {
		link.UTMMedium = in.UTMMedium
	}
	if in.UTMCampaign != nil {
		link.UTMCampaign = in.UTMCampaign
	}

	if err := s.store.UpdateLink(ctx, link); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	s.evict(ctx, link)
	return link, nil
}

// Delete мягко удаляет ссылку; код остается занятым
func (s *URLShortenerService) Delete(ctx context.Context, linkID, requesterID int64) error {
	link, err := s.authorizedLink(ctx, linkID, requesterID)
	if err != nil {
		return err
	}

	if err := s.store.SoftDeleteLink(ctx, link.ID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete link: %w", err)
	}

	s.evict(ctx, link)
	s.log.Info("link deleted", zap.Int64("link_id", link.ID), zap.Int64("requester_id", requesterID))
	return nil
}

// ShortURL собирает публичную ссылку
func (s *URLShortenerService) ShortURL(link *domain.Link) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + link.ShortCode
}

func (s *URLShortenerService) authorizedLink(ctx context.Context, linkID, requesterID int64) (*domain.Link, error) {
	link, err := s.store.GetLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}

	if link.OwnedBy(requesterID) {
		return link, nil
	}

	user, err := s.store.FindUserByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}
	if !user.IsElevated() {
		return nil, domain.ErrForbidden
	}
	return link, nil
}

func (s *URLShortenerService) evict(ctx context.Context, link *domain.Link) {
	codes := []string{link.ShortCode}
	if link.CustomAlias != nil && *link.CustomAlias != link.ShortCode {
		codes = append(codes, *link.CustomAlias)
	}
	if err := s.cache.Delete(ctx, codes...); err != nil {
		s.log.Warn("failed to evict cached resolution", zap.Strings("codes", codes), zap.Error(err))
	}
}

func validateCreate(in CreateLinkInput) error {
	if len(in.OriginalURL) == 0 || len(in.OriginalURL) > maxURLLength {
		return fmt.Errorf("%w: original_url must be 1 to %d characters", domain.ErrInvalidInput, maxURLLength)
	}
	u, err := url.Parse(in.OriginalURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: original_url must be an absolute http or https URL", domain.ErrInvalidInput)
	}
	if in.CustomAlias != "" && !aliasPattern.MatchString(in.CustomAlias) {
		return fmt.Errorf("%w: custom_alias may contain letters, digits, '-' and '_' (max 50)", domain.ErrInvalidInput)
	}
	if _, reserved := reservedAliases[strings.ToLower(in.CustomAlias)]; reserved {
		return fmt.Errorf("%w: custom_alias %q is reserved", domain.ErrInvalidInput, in.CustomAlias)
	}
	if in.ClickLimit < 0 {
		return fmt.Errorf("%w: click_limit must not be negative", domain.ErrInvalidInput)
	}
	if in.Password != "" {
		if err := auth.IsValidLinkPassword(in.Password); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
		}
	}
	return nil
}
