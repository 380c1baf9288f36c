package repository

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var projectSortFields = map[string]string{
	"createdAt": "projects.created_at",
	"updatedAt": "projects.updated_at",
	"name":      "projects.name",
	"budget":    "projects.budget",
	"startDate": "projects.start_date",
	"endDate":   "projects.end_date",
}

// ProjectFilters narrows project listings. Nil and empty fields match everything.
type ProjectFilters struct {
	ClientID *uint
	Status   *domain.ProjectStatus
	Search   string
}

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// GetByID loads a project together with its client
func (r *ProjectRepository) GetByID(ctx context.Context, id uint) (*domain.Project, error) {
	var project domain.Project
	err := r.db.WithContext(ctx).Preload("Client").First(&project, id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Project{}, id).Error
}

func (r *ProjectRepository) List(ctx context.Context, page, pageSize int, filters *ProjectFilters, sort SortConfig) ([]domain.Project, int64, error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Project{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []domain.Project
	err := paginate(query, page, pageSize).
		Preload("Client").
		Order(BuildOrderClause(sort, projectSortFields, "projects.created_at")).
		Order("projects.id DESC").
		Find(&projects).Error
	return projects, total, err
}

// ListByClient returns every project of a client, newest first
func (r *ProjectRepository) ListByClient(ctx context.Context, clientID uint) ([]domain.Project, error) {
	var projects []domain.Project
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC, id DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return countGroupedBy(r.db.WithContext(ctx).Model(&domain.Project{}), "status")
}

func (r *ProjectRepository) applyFilters(query *gorm.DB, filters *ProjectFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.ClientID != nil {
		query = query.Where("projects.client_id = ?", *filters.ClientID)
	}
	if filters.Status != nil {
		query = query.Where("projects.status = ?", *filters.Status)
	}
	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where("LOWER(projects.name) LIKE ? OR LOWER(projects.description) LIKE ?", pattern, pattern)
	}
	return query
}
