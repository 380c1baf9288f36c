package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"go.uber.org/zap"
)

// defaultStakeholderRole is assigned when a stakeholder is added without a role
const defaultStakeholderRole = "stakeholder"

// StakeholderService manages the additional contacts of a deal. The primary
// client is reached through deal.ClientID and is not mirrored into this list.
type StakeholderService struct {
	stakeholderRepo *repository.StakeholderRepository
	dealRepo        *repository.DealRepository
	clientRepo      *repository.ClientRepository
	activity        *ActivityService
	logger          *zap.Logger
}

func NewStakeholderService(
	stakeholderRepo *repository.StakeholderRepository,
	dealRepo *repository.DealRepository,
	clientRepo *repository.ClientRepository,
	activity *ActivityService,
	logger *zap.Logger,
) *StakeholderService {
	return &StakeholderService{
		stakeholderRepo: stakeholderRepo,
		dealRepo:        dealRepo,
		clientRepo:      clientRepo,
		activity:        activity,
		logger:          logger,
	}
}

func (s *StakeholderService) List(ctx context.Context, dealID uint) ([]domain.StakeholderDTO, error) {
	if _, err := s.dealRepo.GetByID(ctx, dealID); err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}
	stakeholders, err := s.stakeholderRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakeholders: %w", err)
	}
	return mapper.ToStakeholderDTOs(stakeholders), nil
}

// Add attaches a client to a deal. A (deal, client) pair can exist only once.
func (s *StakeholderService) Add(ctx context.Context, dealID uint, req *domain.AddStakeholderRequest) (*domain.StakeholderDTO, error) {
	if _, err := s.dealRepo.GetByID(ctx, dealID); err != nil {
		return nil, notFound(err, ErrDealNotFound)
	}
	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	exists, err := s.stakeholderRepo.Exists(ctx, dealID, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check stakeholder: %w", err)
	}
	if exists {
		return nil, ErrDuplicateStakeholder
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = defaultStakeholderRole
	}
	stakeholder := &domain.DealStakeholder{
		DealID:          dealID,
		ClientID:        client.ID,
		Role:            role,
		IsPrimary:       boolOr(req.IsPrimary, false),
		ReceivesUpdates: boolOr(req.ReceivesUpdates, true),
		ReceivesBilling: boolOr(req.ReceivesBilling, false),
		Notes:           req.Notes,
	}
	if err := s.stakeholderRepo.Create(ctx, stakeholder); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateStakeholder
		}
		return nil, fmt.Errorf("failed to add stakeholder: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityStakeholder, stakeholder.ID, domain.ActivityActionCreated, map[string]interface{}{
		"dealId":   dealID,
		"clientId": client.ID,
		"role":     role,
	})

	stakeholder.Client = client
	dto := mapper.ToStakeholderDTO(stakeholder)
	return &dto, nil
}

func (s *StakeholderService) Update(ctx context.Context, dealID, id uint, req *domain.UpdateStakeholderRequest) (*domain.StakeholderDTO, error) {
	stakeholder, err := s.stakeholderRepo.GetByID(ctx, dealID, id)
	if err != nil {
		return nil, notFound(err, ErrStakeholderNotFound)
	}

	if req.Role != nil {
		stakeholder.Role = strings.TrimSpace(*req.Role)
	}
	if req.IsPrimary != nil {
		stakeholder.IsPrimary = *req.IsPrimary
	}
	if req.ReceivesUpdates != nil {
		stakeholder.ReceivesUpdates = *req.ReceivesUpdates
	}
	if req.ReceivesBilling != nil {
		stakeholder.ReceivesBilling = *req.ReceivesBilling
	}
	if req.Notes != nil {
		stakeholder.Notes = *req.Notes
	}

	if err := s.stakeholderRepo.Update(ctx, stakeholder); err != nil {
		return nil, fmt.Errorf("failed to update stakeholder: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntityStakeholder, stakeholder.ID, domain.ActivityActionUpdated, map[string]interface{}{
		"dealId": dealID,
	})

	dto := mapper.ToStakeholderDTO(stakeholder)
	return &dto, nil
}

func (s *StakeholderService) Remove(ctx context.Context, dealID, id uint) error {
	stakeholder, err := s.stakeholderRepo.GetByID(ctx, dealID, id)
	if err != nil {
		return notFound(err, ErrStakeholderNotFound)
	}
	if err := s.stakeholderRepo.Delete(ctx, dealID, id); err != nil {
		return fmt.Errorf("failed to remove stakeholder: %w", err)
	}
	s.activity.Log(ctx, domain.ActivityEntityStakeholder, id, domain.ActivityActionDeleted, map[string]interface{}{
		"dealId":   dealID,
		"clientId": stakeholder.ClientID,
	})
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
