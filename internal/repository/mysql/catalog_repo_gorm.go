package mysql

import (
	"context"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"

	"gorm.io/gorm"
)

type catalogRepo struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) repository.CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) FindAvailableByIDs(ctx context.Context, ids []uint64) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var items []domain.MenuItem
	err := r.db.WithContext(ctx).
		Where("id IN ? AND available = ?", ids, true).
		Find(&items).Error
	if err != nil {
		return nil, storageErr("resolve menu items", err)
	}
	return items, nil
}

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) Clear(ctx context.Context, ownerID uint64) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Delete(&domain.CartItem{}).Error
	if err != nil {
		return storageErr("clear cart", err)
	}
	return nil
}
