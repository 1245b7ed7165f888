// Package catalog serves the admin-managed definitions users spend and earn against:
// investment packages, shop products, daily and intern tasks, and gifts.
package catalog

import (
	"context" // Request context
	"errors"  // Sentinel matching
	"fmt"     // Error wrapping

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/utils"  // Cache helpers

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
	"gorm.io/gorm"                 // GORM ORM library
)

// Store reads catalog entries through a redis read-through cache and applies admin edits
type Store struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewStore creates a catalog store. rdb may be nil.
func NewStore(db *gorm.DB, rdb *redis.Client) *Store {
	return &Store{db: db, rdb: rdb}
}

// Packages lists active investment packages, cheapest first
func (s *Store) Packages(ctx context.Context) ([]domain.InvestmentPackage, error) {
	return listCached[domain.InvestmentPackage](ctx, s, utils.CatalogKey("packages"), "min_amount, id", "active = ?", true)
}

// Products lists active shop products
func (s *Store) Products(ctx context.Context) ([]domain.Product, error) {
	return listCached[domain.Product](ctx, s, utils.CatalogKey("products"), "price, id", "active = ?", true)
}

// Tasks lists active tasks of one kind, or of every kind when kind is empty
func (s *Store) Tasks(ctx context.Context, kind string) ([]domain.Task, error) {
	switch kind {
	case "":
		return listCached[domain.Task](ctx, s, utils.CatalogKey("tasks", "all"), "kind, ordinal, id", "active = ?", true)
	case domain.TaskDaily, domain.TaskIntern:
		return listCached[domain.Task](ctx, s, utils.CatalogKey("tasks", kind), "ordinal, id", "active = ? AND kind = ?", true, kind)
	default:
		return nil, domain.ErrInvalidInput
	}
}

// Gifts lists active gifts
func (s *Store) Gifts(ctx context.Context) ([]domain.Gift, error) {
	return listCached[domain.Gift](ctx, s, utils.CatalogKey("gifts"), "id", "active = ?", true)
}

// Package returns one package, active or not
func (s *Store) Package(ctx context.Context, id uint) (*domain.InvestmentPackage, error) {
	return get[domain.InvestmentPackage](ctx, s.db, id)
}

// Product returns one product, active or not
func (s *Store) Product(ctx context.Context, id uint) (*domain.Product, error) {
	return get[domain.Product](ctx, s.db, id)
}

// Task returns one task, active or not
func (s *Store) Task(ctx context.Context, id uint) (*domain.Task, error) {
	return get[domain.Task](ctx, s.db, id)
}

// Gift returns one gift, active or not
func (s *Store) Gift(ctx context.Context, id uint) (*domain.Gift, error) {
	return get[domain.Gift](ctx, s.db, id)
}

// Invalidate drops every cached listing; the purchase path calls it after a stock change
func (s *Store) Invalidate(ctx context.Context) {
	if err := utils.DeletePrefix(ctx, s.rdb, utils.CatalogPrefix); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate catalog cache")
	}
}

func listCached[T any](ctx context.Context, s *Store, key, order string, where string, args ...any) ([]T, error) {
	var list []T
	// Try to get from cache
	if found, err := utils.GetCache(ctx, s.rdb, key, &list); err == nil && found {
		return list, nil
	}
	if err := s.db.WithContext(ctx).Where(where, args...).Order(order).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", key, err)
	}
	if err := utils.SetCache(ctx, s.rdb, key, list, utils.CacheTTL); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Debug("Catalog cache write failed")
	}
	return list, nil
}

func get[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var entry T
	if err := db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}
