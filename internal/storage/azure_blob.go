package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/bettersystems/crm-api/internal/config"
	"go.uber.org/zap"
)

// AzureBlobStorage keeps document bytes in one blob container. Blob names
// follow objectName, so documents of one entity share a virtual folder.
type AzureBlobStorage struct {
	client    *azblob.Client
	container string
	logger    *zap.Logger
}

// NewAzureBlobStorage authenticates with the connection string when set,
// otherwise with the default Azure credential against CloudAccountURL. The
// container is created on first use.
func NewAzureBlobStorage(cfg *config.StorageConfig, logger *zap.Logger) (*AzureBlobStorage, error) {
	client, err := newBlobClient(cfg)
	if err != nil {
		return nil, err
	}

	_, err = client.CreateContainer(context.Background(), cfg.CloudContainer, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %s: %w", cfg.CloudContainer, err)
	}

	logger.Info("document storage ready",
		zap.String("backend", "azure_blob"),
		zap.String("container", cfg.CloudContainer))

	return &AzureBlobStorage{client: client, container: cfg.CloudContainer, logger: logger}, nil
}

func newBlobClient(cfg *config.StorageConfig) (*azblob.Client, error) {
	if cfg.CloudConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.CloudConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
		return client, nil
	}
	if cfg.CloudAccountURL == "" {
		return nil, fmt.Errorf("azure storage needs a connection string or an account URL")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}
	client, err := azblob.NewClient(cfg.CloudAccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return client, nil
}

// Upload streams data into a new blob. The original filename is kept in the
// blob metadata for operators browsing the container.
func (s *AzureBlobStorage) Upload(ctx context.Context, folder, filename, contentType string, data io.Reader) (string, int64, error) {
	name := objectName(folder, filename)
	counter := &countingReader{r: data}
	original := url.QueryEscape(filename)

	_, err := s.client.UploadStream(ctx, s.container, name, counter, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
		Metadata:    map[string]*string{"originalfilename": &original},
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload %s: %w", name, err)
	}

	s.logger.Debug("document blob written",
		zap.String("storage_path", name),
		zap.Int64("size", counter.n))
	return name, counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *AzureBlobStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, storagePath, nil)
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
	case err != nil:
		return nil, fmt.Errorf("failed to download %s: %w", storagePath, err)
	}
	return resp.Body, nil
}

// Delete is idempotent; a blob that is already gone counts as deleted
func (s *AzureBlobStorage) Delete(ctx context.Context, storagePath string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, storagePath, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete %s: %w", storagePath, err)
	}
	return nil
}
