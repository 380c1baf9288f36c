package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bettersystems/crm-api/internal/auth"
	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/mapper"
	"github.com/bettersystems/crm-api/internal/repository"
	"github.com/bettersystems/crm-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// allowedMimeTypes maps accepted upload types to the stored file type
var allowedMimeTypes = map[string]string{
	"image/jpeg":      "image",
	"image/png":       "image",
	"image/gif":       "image",
	"image/webp":      "image",
	"application/pdf": "pdf",
	"text/csv":        "excel",

	"application/msword": "word",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "word",

	"application/vnd.ms-excel": "excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "excel",
}

// UploadDocumentInput describes a file attached to a deal, client or project
type UploadDocumentInput struct {
	EntityType  string
	EntityID    uint
	Title       string
	Description string
	Category    string
	Tags        []string
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// DocumentService stores document blobs and their metadata
type DocumentService struct {
	documentRepo *repository.DocumentRepository
	dealRepo     *repository.DealRepository
	clientRepo   *repository.ClientRepository
	projectRepo  *repository.ProjectRepository
	storage      storage.Storage
	maxSize      int64
	activity     *ActivityService
	logger       *zap.Logger
}

// NewDocumentService creates the service; maxSizeMB bounds every upload
func NewDocumentService(
	documentRepo *repository.DocumentRepository,
	dealRepo *repository.DealRepository,
	clientRepo *repository.ClientRepository,
	projectRepo *repository.ProjectRepository,
	storage storage.Storage,
	maxSizeMB int64,
	activity *ActivityService,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		dealRepo:     dealRepo,
		clientRepo:   clientRepo,
		projectRepo:  projectRepo,
		storage:      storage,
		maxSize:      maxSizeMB * 1024 * 1024,
		activity:     activity,
		logger:       logger,
	}
}

// MaxUploadBytes is the largest accepted file
func (s *DocumentService) MaxUploadBytes() int64 {
	return s.maxSize
}

func (s *DocumentService) Upload(ctx context.Context, in UploadDocumentInput) (*domain.DocumentDTO, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(in.ContentType, ";")[0]))
	fileType, ok := allowedMimeTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, in.ContentType)
	}
	if s.maxSize > 0 && in.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}
	if err := s.ensureEntity(ctx, in.EntityType, in.EntityID); err != nil {
		return nil, err
	}

	folder := fmt.Sprintf("%ss/%d", in.EntityType, in.EntityID)
	storagePath, size, err := s.storage.Upload(ctx, folder, in.FileName, contentType, in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(in.FileName), filepath.Ext(in.FileName))
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	doc := &domain.Document{
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		Title:       title,
		Description: in.Description,
		FileType:    fileType,
		FileName:    filepath.Base(in.FileName),
		FileSize:    size,
		MimeType:    contentType,
		StoragePath: storagePath,
		Category:    in.Category,
		Tags:        datatypes.JSONSlice[string](tags),
		Status:      domain.DocumentStatusActive,
		UploadedBy:  auth.UserIDFromContext(ctx),
	}
	if err := s.documentRepo.Create(ctx, doc); err != nil {
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to cleanup file from storage after DB error",
				zap.Error(delErr),
				zap.String("storage_path", storagePath),
			)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.activity.Log(ctx, domain.ActivityEntityDocument, doc.ID, domain.ActivityActionCreated, map[string]interface{}{
		"entityType": doc.EntityType,
		"entityId":   doc.EntityID,
		"fileName":   doc.FileName,
	})

	dto := mapper.ToDocumentDTO(doc)
	return &dto, nil
}

func (s *DocumentService) ListByEntity(ctx context.Context, entityType string, entityID uint) ([]domain.DocumentDTO, error) {
	if !validEntityType(entityType) {
		return nil, ErrInvalidEntity
	}
	docs, err := s.documentRepo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return mapper.ToDocumentDTOs(docs), nil
}

// Download returns the document metadata and an open blob reader the caller must close
func (s *DocumentService) Download(ctx context.Context, id uint) (*domain.DocumentDTO, io.ReadCloser, error) {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, mapper.FormatError("document", "get", notFound(err, ErrDocumentNotFound))
	}
	reader, err := s.storage.Download(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download document: %w", err)
	}
	dto := mapper.ToDocumentDTO(doc)
	return &dto, reader, nil
}

// Delete marks the document deleted and removes its blob
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrDocumentNotFound)
	}
	if err := s.documentRepo.MarkDeleted(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		s.logger.Warn("failed to remove document blob",
			zap.Uint("document_id", id),
			zap.String("storage_path", doc.StoragePath),
			zap.Error(err),
		)
	}

	s.activity.Log(ctx, domain.ActivityEntityDocument, id, domain.ActivityActionDeleted, map[string]interface{}{
		"fileName": doc.FileName,
	})
	return nil
}

func (s *DocumentService) ensureEntity(ctx context.Context, entityType string, entityID uint) error {
	var err error
	switch entityType {
	case domain.DocumentEntityDeal:
		_, err = s.dealRepo.GetByID(ctx, entityID)
	case domain.DocumentEntityClient:
		_, err = s.clientRepo.GetByID(ctx, entityID)
	case domain.DocumentEntityProject:
		_, err = s.projectRepo.GetByID(ctx, entityID)
	default:
		return ErrInvalidEntity
	}
	if err != nil {
		return fmt.Errorf("%w: %s %d does not exist", ErrInvalidInput, entityType, entityID)
	}
	return nil
}

func validEntityType(entityType string) bool {
	switch entityType {
	case domain.DocumentEntityDeal, domain.DocumentEntityClient, domain.DocumentEntityProject:
		return true
	}
	return false
}
