package mysql

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/domain"
	"checkout-service/internal/logger"
	"checkout-service/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, op, err)
}

// Create inserts the order row and its lines in one transaction.
func (r *orderRepo) Create(ctx context.Context, order *domain.Order) error {
	if err := order.ValidateNew(); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		if order.ID == 0 {
			return errors.New("failed to assign order ID")
		}

		for i := range order.Lines {
			order.Lines[i].OrderID = order.ID
		}
		return tx.Create(&order.Lines).Error
	})
	if err != nil {
		order.ID = 0
		for i := range order.Lines {
			order.Lines[i].ID = 0
			order.Lines[i].OrderID = 0
		}
		logger.Error("order create failed", logger.Fields{"ownerId": order.OwnerID, "error": err})
		return storageErr("create order", err)
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Lines").First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("find order", err)
	}
	return &o, nil
}

func (r *orderRepo) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("correlation_id = ?", correlationID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("find order by correlation id", err)
	}
	return &o, nil
}

func (r *orderRepo) FindByOwner(ctx context.Context, ownerID uint64) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	return out, nil
}

// Transition is a single conditional UPDATE; concurrent callers racing on the
// same edge see exactly one affected row between them.
func (r *orderRepo) Transition(ctx context.Context, id uint64, from, to domain.OrderStatus) (bool, error) {
	if from.CanTransitionTo(to) {
		res := r.db.WithContext(ctx).
			Model(&domain.Order{}).
			Where("id = ? AND status = ?", id, from).
			Update("status", to)
		if res.Error != nil {
			return false, storageErr("transition order", res.Error)
		}
		if res.RowsAffected == 1 {
			return true, nil
		}
	}

	found, err := r.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		return false, domain.ErrOrderNotFound
	}
	return false, nil
}

func (r *orderRepo) SetCorrelationID(ctx context.Context, id uint64, correlationID string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ? AND correlation_id IS NULL", id, domain.StatusPending).
		Update("correlation_id", correlationID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: correlation id already assigned to another order", domain.ErrInvalidOrderState)
		}
		return storageErr("set correlation id", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	found, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrOrderNotFound
	}
	return fmt.Errorf("%w: order already has a payment session or is not pending", domain.ErrInvalidOrderState)
}

func (r *orderRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storageErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (r *orderRepo) exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, storageErr("check order", err)
	}
	return n > 0, nil
}
