package repository

import (
	"context"
	"encoding/json"
	"time"

	"oficina/internal/apierror"
	"oficina/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const catalogCacheTTL = 4 * time.Hour

// CatalogLookup is the read-only collaborator used to snapshot unit prices.
type CatalogLookup interface {
	GetItem(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error)
}

// CatalogRepository adds the writes used by seeding and tests.
type CatalogRepository interface {
	CatalogLookup
	Save(ctx context.Context, item *model.CatalogItem) error
}

type catalogRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewCatalogRepository returns a GORM-backed catalog. rdb may be nil, in
// which case every lookup hits the database.
func NewCatalogRepository(db *gorm.DB, rdb *redis.Client) CatalogRepository {
	return &catalogRepo{db: db, rdb: rdb}
}

func catalogKey(id uuid.UUID) string { return "catalog:" + id.String() }

func (r *catalogRepo) GetItem(ctx context.Context, id uuid.UUID) (*model.CatalogItem, error) {
	if r.rdb != nil {
		if cached, err := r.rdb.Get(ctx, catalogKey(id)).Bytes(); err == nil {
			var item model.CatalogItem
			if jsonErr := json.Unmarshal(cached, &item); jsonErr == nil {
				return &item, nil
			}
		}
	}

	var item model.CatalogItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err, apierror.ErrCatalogItemNotFound)
	}

	// Populate cache, best effort.
	if r.rdb != nil {
		if b, err := json.Marshal(item); err == nil {
			if err := r.rdb.Set(ctx, catalogKey(id), b, catalogCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Str("catalog_item_id", id.String()).Msg("catalog cache set failed")
			}
		}
	}
	return &item, nil
}

// Save upserts the item and drops its cached copy.
func (r *catalogRepo) Save(ctx context.Context, item *model.CatalogItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return err
	}
	if r.rdb != nil {
		_ = r.rdb.Del(ctx, catalogKey(item.ID)).Err()
	}
	return nil
}
