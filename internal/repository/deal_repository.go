package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealFilters contains filter options for listing deals
type DealFilters struct {
	Search   string
	Stage    *domain.DealStage
	ClientID *uint
	Priority *domain.Priority
}

// dealSortFields maps API sort fields to columns
var dealSortFields = map[string]string{
	"createdAt":         "deals.created_at",
	"updatedAt":         "deals.updated_at",
	"name":              "deals.name",
	"value":             "deals.value",
	"probability":       "deals.probability",
	"expectedCloseDate": "deals.expected_close_date",
}

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	// Omit associations to avoid GORM trying to upsert the preloaded client
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(deal).Error
}

func (r *DealRepository) GetByID(ctx context.Context, id uint) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).Preload("Client").Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(deal).Error
}

// Delete removes the deal and its stakeholder rows. Interactions, documents,
// tickets and invoices keep their deal_id.
func (r *DealRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.DealStakeholder{}, "deal_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Deal{}, "id = ?", id).Error
	})
}

func (r *DealRepository) List(ctx context.Context, page, pageSize int, filters *DealFilters, sort SortConfig) ([]domain.Deal, int64, error) {
	var deals []domain.Deal
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Deal{}).
		Joins("LEFT JOIN clients ON clients.id = deals.client_id")
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Select("deals.*").
		Preload("Client").
		Order(BuildOrderClause(sort, dealSortFields, "deals.created_at")).
		Order("deals.id DESC").
		Find(&deals).Error

	return deals, total, err
}

func (r *DealRepository) applyFilters(query *gorm.DB, filters *DealFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("LOWER(deals.name) LIKE ? OR LOWER(clients.name) LIKE ?", pattern, pattern)
	}

	if filters.Stage != nil {
		query = query.Where("deals.stage = ?", *filters.Stage)
	}

	if filters.ClientID != nil {
		query = query.Where("deals.client_id = ?", *filters.ClientID)
	}

	if filters.Priority != nil {
		query = query.Where("deals.priority = ?", *filters.Priority)
	}

	return query
}

// ListByClient returns deals owned by the client as primary, newest first
func (r *DealRepository) ListByClient(ctx context.Context, clientID uint) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC, id DESC").
		Find(&deals).Error
	return deals, err
}

// ListByIDs returns the deals with the given ids, with their primary clients
func (r *DealRepository) ListByIDs(ctx context.Context, ids []uint) ([]domain.Deal, error) {
	var deals []domain.Deal
	if len(ids) == 0 {
		return deals, nil
	}
	err := r.db.WithContext(ctx).Preload("Client").Where("id IN ?", ids).Order("id ASC").Find(&deals).Error
	return deals, err
}

// LatestByClients returns, per client, the newest deal it owns, falling back
// to the newest deal it is a stakeholder on.
func (r *DealRepository) LatestByClients(ctx context.Context, clientIDs []uint) (map[uint]domain.Deal, error) {
	latest := make(map[uint]domain.Deal, len(clientIDs))
	if len(clientIDs) == 0 {
		return latest, nil
	}

	var owned []domain.Deal
	err := r.db.WithContext(ctx).
		Where("client_id IN ?", clientIDs).
		Order("created_at DESC, id DESC").
		Find(&owned).Error
	if err != nil {
		return nil, err
	}
	for _, d := range owned {
		if _, ok := latest[d.ClientID]; !ok {
			latest[d.ClientID] = d
		}
	}

	var missing []uint
	for _, id := range clientIDs {
		if _, ok := latest[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return latest, nil
	}

	type stakeholderDeal struct {
		domain.Deal
		StakeholderClientID uint
	}
	var viaStakeholder []stakeholderDeal
	err = r.db.WithContext(ctx).Model(&domain.Deal{}).
		Select("deals.*, deal_stakeholders.client_id AS stakeholder_client_id").
		Joins("JOIN deal_stakeholders ON deal_stakeholders.deal_id = deals.id").
		Where("deal_stakeholders.client_id IN ?", missing).
		Order("deals.created_at DESC, deals.id DESC").
		Scan(&viaStakeholder).Error
	if err != nil {
		return nil, err
	}
	for _, row := range viaStakeholder {
		if _, ok := latest[row.StakeholderClientID]; !ok {
			latest[row.StakeholderClientID] = row.Deal
		}
	}

	return latest, nil
}

// FindOpenForClient finds the newest deal in an open stage for a client,
// first as primary owner and then as stakeholder. Returns nil when none match.
func (r *DealRepository) FindOpenForClient(ctx context.Context, clientID uint) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).
		Where("client_id = ? AND stage IN ?", clientID, domain.OpenDealStages).
		Order("created_at DESC, id DESC").
		First(&deal).Error
	if err == nil {
		return &deal, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&domain.Deal{}).
		Select("deals.*").
		Joins("JOIN deal_stakeholders ON deal_stakeholders.deal_id = deals.id").
		Where("deal_stakeholders.client_id = ? AND deals.stage IN ?", clientID, domain.OpenDealStages).
		Order("deals.created_at DESC, deals.id DESC").
		First(&deal).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

