package database

import (
	"ShrtLink-Backend/internal/domain"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models возвращает модели в порядке миграции (из-за внешних ключей)
func Models() []interface{} {
	return []interface{}{
		&domain.SubscriptionType{}, // Сначала справочники
		&domain.User{},             // Затем пользователи
		&domain.Link{},             // Ссылки (зависят от пользователей)
		&domain.Click{},            // Клики (зависят от ссылок)
	}
}

// AutoMigrate выполняет автоматические миграции для всех доменных моделей
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	models := Models()
	log.Info("migrating database models", zap.Int("total_models", len(models)))

	for i, model := range models {
		modelName := fmt.Sprintf("%T", model)
		log.Debug("migrating model",
			zap.String("model", modelName),
			zap.Int("step", i+1),
			zap.Int("total", len(models)))

		if err := db.AutoMigrate(model); err != nil {
			log.Error("failed to migrate model", zap.String("model", modelName), zap.Error(err))
			return fmt.Errorf("failed to migrate model %s: %w", modelName, err)
		}
	}

	log.Info("database auto-migration completed", zap.Int("migrated_models", len(models)))
	return nil
}

// DefaultPlans тарифные планы, создаваемые при первом запуске
func DefaultPlans() []domain.SubscriptionType {
	return []domain.SubscriptionType{
		{ID: 1, Name: "free", DisplayName: "Free Plan", MaxLinks: toInt(10), IsActive: true},
		{ID: 2, Name: "base", DisplayName: "Base Plan", MaxLinks: toInt(100), IsActive: true},
		{ID: 3, Name: "enterprise", DisplayName: "Enterprise Plan", MaxLinks: nil, IsActive: true}, // unlimited
	}
}

// SeedData заполняет базу данных начальными данными
func SeedData(db *gorm.DB, log *zap.Logger) error {
	// Проверяем, есть ли уже данные
	var count int64
	if err := db.Model(&domain.SubscriptionType{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count subscription types: %w", err)
	}
	if count > 0 {
		log.Info("subscription types already exist, skipping seeding", zap.Int64("existing_count", count))
		return nil
	}

	plans := DefaultPlans()
	if err := db.Create(&plans).Error; err != nil {
		log.Error("failed to seed subscription types", zap.Error(err))
		return fmt.Errorf("failed to seed subscription types: %w", err)
	}

	log.Info("database seeding completed", zap.Int("subscription_types_created", len(plans)))
	return nil
}

// toInt возвращает указатель на int - хелпер для создания nullable полей
func toInt(val int) *int {
	return &val
}
