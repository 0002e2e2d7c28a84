package gcp

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/veldtops/fieldsuite-backend/internal/platform/dbctx"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

type BucketCategory string

const (
	BucketCategoryAvatar   BucketCategory = "avatar"
	BucketCategoryDocument BucketCategory = "document"
)

// StorageMode selects the object storage backend: real GCS or a
// fake-gcs-server style emulator for local development.
type StorageMode string

const (
	StorageModeGCS      StorageMode = "gcs"
	StorageModeEmulator StorageMode = "gcs_emulator"
)

type bucketConfig struct {
	name      string
	cdnDomain string
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

type BucketService interface {
	UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) error
	DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error
	ReplaceFile(dbc dbctx.Context, category BucketCategory, key string, newFile io.Reader) error
	DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error)
	OpenRangeReader(ctx context.Context, category BucketCategory, key string, offset, length int64) (io.ReadCloser, error)
	GetObjectAttrs(ctx context.Context, category BucketCategory, key string) (*ObjectAttrs, error)
	GetPublicURL(category BucketCategory, key string) string
	ObjectURI(category BucketCategory, key string) string
	Close() error
}

type bucketService struct {
	log            *logger.Logger
	storageClient  *storage.Client
	storageMode    StorageMode
	emulatorHost   string
	publicBaseURL  string
	avatarBucket   bucketConfig
	documentBucket bucketConfig
}

func NewBucketService(baseLog *logger.Logger) (BucketService, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := baseLog.With("service", "gcp.BucketService")

	mode, emulatorHost, err := resolveStorageMode()
	if err != nil {
		return nil, err
	}
	publicBaseURL, baseURLSource, err := resolveStoragePublicBaseURL(mode, emulatorHost)
	if err != nil {
		return nil, err
	}

	avatarName := strings.TrimSpace(os.Getenv("AVATAR_GCS_BUCKET_NAME"))
	if avatarName == "" {
		return nil, fmt.Errorf("AVATAR_GCS_BUCKET_NAME is not set")
	}
	documentName := strings.TrimSpace(os.Getenv("DOCUMENT_GCS_BUCKET_NAME"))
	if documentName == "" {
		return nil, fmt.Errorf("DOCUMENT_GCS_BUCKET_NAME is not set")
	}

	client, err := newStorageClientForMode(context.Background(), mode, emulatorHost)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	slog.Info("object storage configured",
		"mode", string(mode),
		"public_base_url_source", baseURLSource,
		"avatar_bucket", avatarName,
		"document_bucket", documentName,
	)

	return &bucketService{
		log:           slog,
		storageClient: client,
		storageMode:   mode,
		emulatorHost:  emulatorHost,
		publicBaseURL: publicBaseURL,
		avatarBucket: bucketConfig{
			name:      avatarName,
			cdnDomain: strings.TrimSpace(os.Getenv("AVATAR_CDN_DOMAIN")),
		},
		documentBucket: bucketConfig{name: documentName},
	}, nil
}

// resolveStorageMode reads OBJECT_STORAGE_MODE ("gcs" or "gcs_emulator").
// When unset, the presence of STORAGE_EMULATOR_HOST selects emulator mode.
func resolveStorageMode() (StorageMode, string, error) {
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")

	raw := strings.ToLower(strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE")))
	switch raw {
	case "":
		if emulatorHost != "" {
			return StorageModeEmulator, emulatorHost, nil
		}
		return StorageModeGCS, "", nil
	case string(StorageModeGCS):
		return StorageModeGCS, "", nil
	case string(StorageModeEmulator):
		if emulatorHost == "" {
			return "", "", fmt.Errorf("OBJECT_STORAGE_MODE=gcs_emulator requires STORAGE_EMULATOR_HOST")
		}
		return StorageModeEmulator, emulatorHost, nil
	default:
		return "", "", fmt.Errorf("invalid OBJECT_STORAGE_MODE %q (want gcs or gcs_emulator)", raw)
	}
}

// resolveStoragePublicBaseURL decides where public object URLs point. The
// second return names the source of the decision for startup logging.
func resolveStoragePublicBaseURL(mode StorageMode, emulatorHost string) (string, string, error) {
	raw := strings.TrimRight(strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL")), "/")
	if raw != "" {
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return "", "", fmt.Errorf("OBJECT_STORAGE_PUBLIC_BASE_URL must include a scheme, got %q", raw)
		}
		return raw, "object_storage_public_base_url", nil
	}
	if mode == StorageModeEmulator {
		return emulatorHost, "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func newStorageClientForMode(ctx context.Context, mode StorageMode, emulatorHost string) (*storage.Client, error) {
	if mode == StorageModeEmulator {
		// The storage SDK routes through the emulator when
		// STORAGE_EMULATOR_HOST is set at client construction.
		if err := os.Setenv("STORAGE_EMULATOR_HOST", emulatorHost); err != nil {
			return nil, err
		}
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (s *bucketService) Close() error {
	if s == nil || s.storageClient == nil {
		return nil
	}
	return s.storageClient.Close()
}

func (s *bucketService) bucketFor(category BucketCategory) (bucketConfig, error) {
	switch category {
	case BucketCategoryAvatar:
		return s.avatarBucket, nil
	case BucketCategoryDocument:
		return s.documentBucket, nil
	default:
		return bucketConfig{}, fmt.Errorf("unknown bucket category %q", category)
	}
}

func (s *bucketService) UploadFile(dbc dbctx.Context, category BucketCategory, key string, file io.Reader) error {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := s.storageClient.Bucket(cfg.name).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s/%s: %w", cfg.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s/%s: %w", cfg.name, key, err)
	}
	s.log.Debug("object uploaded", "bucket", cfg.name, "key", key)
	return nil
}

func (s *bucketService) DeleteFile(dbc dbctx.Context, category BucketCategory, key string) error {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(dbc.Ctx, 30*time.Second)
	defer cancel()

	err = s.storageClient.Bucket(cfg.name).Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("delete %s/%s: %w", cfg.name, key, err)
	}
	return nil
}

func (s *bucketService) ReplaceFile(dbc dbctx.Context, category BucketCategory, key string, newFile io.Reader) error {
	if err := s.DeleteFile(dbc, category, key); err != nil {
		return err
	}
	return s.UploadFile(dbc, category, key, newFile)
}

func (s *bucketService) DownloadFile(ctx context.Context, category BucketCategory, key string) (io.ReadCloser, error) {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return nil, err
	}
	rctx, cancel := context.WithCancel(ctx)
	r, err := s.storageClient.Bucket(cfg.name).Object(key).NewReader(rctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("download %s/%s: %w", cfg.name, key, err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *bucketService) OpenRangeReader(ctx context.Context, category BucketCategory, key string, offset, length int64) (io.ReadCloser, error) {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return nil, err
	}
	rctx, cancel := context.WithCancel(ctx)
	r, err := s.storageClient.Bucket(cfg.name).Object(key).NewRangeReader(rctx, offset, length)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("range read %s/%s: %w", cfg.name, key, err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *bucketService) GetObjectAttrs(ctx context.Context, category BucketCategory, key string) (*ObjectAttrs, error) {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return nil, err
	}
	attrs, err := s.storageClient.Bucket(cfg.name).Object(key).Attrs(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, nil
		}
		return nil, fmt.Errorf("attrs %s/%s: %w", cfg.name, key, err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}

// GetPublicURL builds a browser-reachable URL for an object. In emulator
// mode that is the raw media endpoint; in GCS mode a CDN domain wins over
// the default storage host.
func (s *bucketService) GetPublicURL(category BucketCategory, key string) string {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return ""
	}
	key = strings.TrimLeft(key, "/")

	if s.storageMode == StorageModeEmulator {
		base := s.publicBaseURL
		if base == "" {
			base = s.emulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, cfg.name, url.QueryEscape(key))
	}
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, cfg.name, key)
	}
	if cfg.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cfg.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.name, key)
}

// ObjectURI returns the gs:// form used by Google APIs that read straight
// from a bucket.
func (s *bucketService) ObjectURI(category BucketCategory, key string) string {
	cfg, err := s.bucketFor(category)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("gs://%s/%s", cfg.name, strings.TrimLeft(key, "/"))
}

// readCloserWithCancel ties a per-call context to the reader so the
// connection is released when the caller closes it.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

func contentTypeForKey(key string) string {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".json"):
		return "application/json"
	case strings.HasSuffix(lower, ".csv"):
		return "text/csv"
	case strings.HasSuffix(lower, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
