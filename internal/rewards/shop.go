package rewards

import (
	"context" // Request context
	"errors"  // Sentinel matching

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/ledger" // Atomic balance mutations

	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// PurchaseResult is the outcome of a shop purchase
type PurchaseResult struct {
	Reward
	ProductID uint `json:"product_id"`
	StockLeft int  `json:"stock_left"`
}

// Purchase debits the product price and takes one unit of stock in the same transaction.
// Stock is checked before the balance.
func (s *Service) Purchase(ctx context.Context, accountID, productID uint) (*PurchaseResult, error) {
	out := &PurchaseResult{ProductID: productID}
	res, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: string(domain.TxPurchase)}, func(op *ledger.Op) error {
		var product domain.Product
		if err := op.DB().First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !product.Active {
			return domain.ErrNotFound
		}
		if product.Stock <= 0 {
			return domain.ErrOutOfStock
		}
		if err := op.Post(product.Price.Neg(), domain.TxPurchase, "Purchase: "+product.Name); err != nil {
			return err
		}
		// Another account may take the last unit between our read and this write
		op.Then(func(tx *gorm.DB) error {
			q := tx.Model(&domain.Product{}).
				Where("id = ? AND stock > 0", product.ID).
				UpdateColumn("stock", gorm.Expr("stock - 1"))
			if q.Error != nil {
				return q.Error
			}
			if q.RowsAffected == 0 {
				return domain.ErrOutOfStock
			}
			return nil
		})
		out.Amount = product.Price
		out.StockLeft = product.Stock - 1
		return nil
	})
	logOutcome("purchase", accountID, logrus.Fields{"product_id": productID, "price": out.Amount.String()}, err)
	if err != nil {
		return nil, err
	}
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	out.Balance = res.Account(accountID).Balance
	out.OperationID = res.OperationID
	return out, nil
}
