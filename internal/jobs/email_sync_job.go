package jobs

import (
	"context"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/service"
	"go.uber.org/zap"
)

// EmailSyncJobName is the scheduler name of the mailbox sync
const EmailSyncJobName = "email_sync"

// EmailSyncer imports mailbox messages
type EmailSyncer interface {
	DefaultOptions() service.SyncOptions
	Sync(ctx context.Context, opts service.SyncOptions) (*domain.EmailSyncResultDTO, error)
}

// EmailSyncJob imports business email from the shared mailbox with the
// default sync options.
type EmailSyncJob struct {
	syncer EmailSyncer
	logger *zap.Logger
}

func NewEmailSyncJob(syncer EmailSyncer, logger *zap.Logger) *EmailSyncJob {
	return &EmailSyncJob{syncer: syncer, logger: logger}
}

func (j *EmailSyncJob) Name() string { return EmailSyncJobName }

func (j *EmailSyncJob) Run(ctx context.Context) error {
	result, err := j.syncer.Sync(ctx, j.syncer.DefaultOptions())
	if err != nil {
		return err
	}

	j.logger.Info("mailbox synced",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("contacts", result.Contacts))
	return nil
}
