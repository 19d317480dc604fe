package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSConfig configures a Google Cloud Storage backed store.
type GCSConfig struct {
	Bucket          string
	Prefix          string        // optional key prefix inside the bucket
	CredentialsFile string        // service account JSON path or inline JSON; empty uses ADC
	Timeout         time.Duration // per-call timeout, default 30s
}

// GCSStore keeps artifacts as objects in a GCS bucket.
type GCSStore struct {
	client  *storage.Client
	bucket  string
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

// NewGCSStore dials GCS and returns a store for cfg.Bucket.
func NewGCSStore(ctx context.Context, cfg GCSConfig, log *zap.Logger) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return newGCSStoreWithClient(client, cfg, log), nil
}

func newGCSStoreWithClient(client *storage.Client, cfg GCSConfig, log *zap.Logger) *GCSStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GCSStore{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		timeout: timeout,
		log:     log.Named("artifact.gcs").With(zap.String("bucket", cfg.Bucket)),
	}
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) key(locator string) (string, error) {
	if !ValidLocator(locator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	if s.prefix == "" {
		return locator, nil
	}
	return path.Join(s.prefix, locator), nil
}

// Put uploads data under a fresh locator. The write is conditional on the
// object not existing, so a locator collision can never clobber content.
func (s *GCSStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	locator := NewLocator(suggestedName)
	key, err := s.key(locator)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = ContentType(suggestedName)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	s.log.Debug("artifact stored", zap.String("locator", locator), zap.Int("bytes", len(data)))
	return locator, nil
}

// Delete removes the object.
func (s *GCSStore) Delete(ctx context.Context, locator string) error {
	key, err := s.key(locator)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

// Exists reports whether the object is present.
func (s *GCSStore) Exists(ctx context.Context, locator string) (bool, error) {
	key, err := s.key(locator)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat GCS object %q: %w", key, err)
	}
	return true, nil
}

// List enumerates objects under the configured prefix.
func (s *GCSStore) List(ctx context.Context) ([]ObjectInfo, error) {
	q := &storage.Query{}
	if s.prefix != "" {
		q.Prefix = s.prefix + "/"
	}

	var out []ObjectInfo
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list GCS objects: %w", err)
		}
		locator := strings.TrimPrefix(attrs.Name, q.Prefix)
		if !ValidLocator(locator) {
			continue
		}
		out = append(out, ObjectInfo{Locator: locator, Size: attrs.Size, ModTime: attrs.Updated})
	}
	return out, nil
}
