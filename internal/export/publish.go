package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

const (
	// LatestName is the object name the frontend fetches.
	LatestName = "theater-data.json"
	// versionLayout timestamps archived copies.
	versionLayout = "20060102T150405Z"
	contentType   = "application/json"
)

// Uploader stores a named object and returns where it landed.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// PublishResult lists the locations written by Publish.
type PublishResult struct {
	Latest    string
	Versioned string
}

// VersionedName returns the archive object name for a publish at now.
func VersionedName(now time.Time) string {
	return "versions/theater-data-" + now.UTC().Format(versionLayout) + ".json"
}

// Publish validates data and uploads it as the latest blob plus a
// timestamped copy. The versioned copy goes first so a failed publish never
// leaves a latest blob without its archive.
func Publish(ctx context.Context, uploader Uploader, data []byte, now time.Time, logger zerolog.Logger) (*PublishResult, error) {
	logger = logger.With().Str("component", "publish").Logger()

	if err := validateBlob(data); err != nil {
		return nil, err
	}
	versioned, err := uploader.Upload(ctx, VersionedName(now), data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload versioned blob: %w", err)
	}
	logger.Info().Str("location", versioned).Int("bytes", len(data)).Msg("uploaded versioned blob")

	latest, err := uploader.Upload(ctx, LatestName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload latest blob: %w", err)
	}
	logger.Info().Str("location", latest).Msg("uploaded latest blob")

	return &PublishResult{Latest: latest, Versioned: versioned}, nil
}

// DirUploader publishes into a local directory, e.g. a static site root.
type DirUploader struct {
	Dir string
}

// Upload writes the object atomically under Dir.
func (u *DirUploader) Upload(_ context.Context, name string, data []byte, _ string) (string, error) {
	dest := filepath.Join(u.Dir, filepath.FromSlash(name))
	if err := WriteFile(dest, data); err != nil {
		return "", err
	}
	return dest, nil
}

// GCSUploader publishes to a Google Cloud Storage bucket.
type GCSUploader struct {
	service      *storage.Service
	bucket       string
	prefix       string
	cacheControl string
}

// NewGCSUploader creates an uploader using application default credentials
// unless opts say otherwise. prefix is prepended to every object name.
func NewGCSUploader(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSUploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is empty")
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{
		service:      svc,
		bucket:       bucket,
		prefix:       strings.Trim(prefix, "/"),
		cacheControl: "public, max-age=300",
	}, nil
}

// Upload inserts the object and returns its gs:// location.
func (u *GCSUploader) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	objectName := name
	if u.prefix != "" {
		objectName = path.Join(u.prefix, name)
	}
	obj := &storage.Object{
		Name:         objectName,
		ContentType:  contentType,
		CacheControl: u.cacheControl,
	}
	if _, err := u.service.Objects.Insert(u.bucket, obj).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to upload gs://%s/%s: %w", u.bucket, objectName, err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}

// ReadBlob loads a previously generated blob and checks it against the schema
// before it is published.
func ReadBlob(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", p, err)
	}
	if err := validateBlob(data); err != nil {
		return nil, err
	}
	return data, nil
}
