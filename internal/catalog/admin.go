package catalog

import (
	"context" // Request context
	"strings" // Input normalisation

	"rewards_system/internal/domain" // Domain models

	"github.com/sirupsen/logrus" // Logging
)

// CreatePackage adds an investment package
func (s *Store) CreatePackage(ctx context.Context, p *domain.InvestmentPackage) error {
	return create(ctx, s, p, validatePackage(p))
}

// UpdatePackage replaces every editable field of a package
func (s *Store) UpdatePackage(ctx context.Context, id uint, p *domain.InvestmentPackage) (*domain.InvestmentPackage, error) {
	return update(ctx, s, id, p, validatePackage(p))
}

// DeletePackage removes a package. Existing investments keep their snapshot.
func (s *Store) DeletePackage(ctx context.Context, id uint) error {
	return remove[domain.InvestmentPackage](ctx, s, id)
}

// CreateProduct adds a shop product
func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	return create(ctx, s, p, validateProduct(p))
}

// UpdateProduct replaces every editable field of a product, stock included
func (s *Store) UpdateProduct(ctx context.Context, id uint, p *domain.Product) (*domain.Product, error) {
	return update(ctx, s, id, p, validateProduct(p))
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	return remove[domain.Product](ctx, s, id)
}

// CreateTask adds a daily or intern task
func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	return create(ctx, s, t, validateTask(t))
}

// UpdateTask replaces every editable field of a task
func (s *Store) UpdateTask(ctx context.Context, id uint, t *domain.Task) (*domain.Task, error) {
	return update(ctx, s, id, t, validateTask(t))
}

// DeleteTask removes a task. Completion records referencing it stay as history.
func (s *Store) DeleteTask(ctx context.Context, id uint) error {
	return remove[domain.Task](ctx, s, id)
}

// CreateGift adds a gift
func (s *Store) CreateGift(ctx context.Context, g *domain.Gift) error {
	return create(ctx, s, g, validateGift(g))
}

// UpdateGift replaces every editable field of a gift
func (s *Store) UpdateGift(ctx context.Context, id uint, g *domain.Gift) (*domain.Gift, error) {
	return update(ctx, s, id, g, validateGift(g))
}

// DeleteGift removes a gift
func (s *Store) DeleteGift(ctx context.Context, id uint) error {
	return remove[domain.Gift](ctx, s, id)
}

func validatePackage(p *domain.InvestmentPackage) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "" || p.DurationDays < 1:
		return domain.ErrInvalidInput
	case !p.MinAmount.IsPositive() || p.MaxAmount.LessThan(p.MinAmount) || !p.DailyReturnPct.IsPositive():
		return domain.ErrInvalidAmount
	}
	return nil
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "" || p.Stock < 0:
		return domain.ErrInvalidInput
	case !p.Price.IsPositive():
		return domain.ErrInvalidAmount
	}
	return nil
}

func validateTask(t *domain.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	switch {
	case t.Title == "" || t.Ordinal < 0:
		return domain.ErrInvalidInput
	case t.Kind != domain.TaskDaily && t.Kind != domain.TaskIntern:
		return domain.ErrInvalidInput
	case !t.Reward.IsPositive():
		return domain.ErrInvalidAmount
	}
	return nil
}

func validateGift(g *domain.Gift) error {
	g.Name = strings.TrimSpace(g.Name)
	switch {
	case g.Name == "":
		return domain.ErrInvalidInput
	case !g.Amount.IsPositive():
		return domain.ErrInvalidAmount
	}
	return nil
}

func create[T any](ctx context.Context, s *Store, entry *T, invalid error) error {
	if invalid != nil {
		return invalid
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logrus.WithFields(logrus.Fields{"entry": typeName(entry), "error": err.Error()}).Error("Catalog create failed")
		return err
	}
	s.Invalidate(ctx)
	logrus.WithField("entry", typeName(entry)).Info("Catalog entry created")
	return nil
}

func update[T any](ctx context.Context, s *Store, id uint, entry *T, invalid error) (*T, error) {
	if invalid != nil {
		return nil, invalid
	}
	q := s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).
		Select("*").Omit("id", "created_at").
		Updates(entry)
	if q.Error != nil {
		return nil, q.Error
	}
	if q.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	s.Invalidate(ctx)
	logrus.WithFields(logrus.Fields{"entry": typeName(entry), "id": id}).Info("Catalog entry updated")
	return get[T](ctx, s.db, id)
}

func remove[T any](ctx context.Context, s *Store, id uint) error {
	q := s.db.WithContext(ctx).Delete(new(T), id)
	if q.Error != nil {
		return q.Error
	}
	if q.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	s.Invalidate(ctx)
	logrus.WithFields(logrus.Fields{"entry": typeName(new(T)), "id": id}).Info("Catalog entry deleted")
	return nil
}

func typeName(entry any) string {
	switch entry.(type) {
	case *domain.InvestmentPackage:
		return "package"
	case *domain.Product:
		return "product"
	case *domain.Task:
		return "task"
	case *domain.Gift:
		return "gift"
	}
	return "unknown"
}
