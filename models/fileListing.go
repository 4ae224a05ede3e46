package models

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"bitbucket.org/mmdatafocus/checklist_backend/config"
	"bitbucket.org/mmdatafocus/checklist_backend/utils"
	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
)

// FileListing is the set of file names present for one storage key.
// Available is false when the backing resource could not be read, which lets callers tell
// "no files" apart from "listing unavailable". Files is empty in that case.
type FileListing struct {
	Files     []string
	Available bool
}

type FileLister interface {
	ListFiles(ctx context.Context, storageKey string) FileListing
}

// JSONFileLister reads a listing file on every call. The file holds either a flat array of
// names (shared by every client) or an object mapping storage keys to arrays of names.
type JSONFileLister struct {
	Path   string
	Logger *logrus.Logger
}

func NewJSONFileLister(path string, logger *logrus.Logger) *JSONFileLister {
	return &JSONFileLister{Path: path, Logger: logger}
}

func (l *JSONFileLister) ListFiles(ctx context.Context, storageKey string) FileListing {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && l.Logger != nil {
			config.LogError(l.Logger, "FileListing", "ListFiles", "reading listing", l.Path, err)
		}
		return FileListing{Files: []string{}}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var byKey map[string][]string
		if err := utils.UnmarshalFromJSON(trimmed, &byKey); err != nil {
			l.logParseError(err)
			return FileListing{Files: []string{}}
		}
		files := byKey[storageKey]
		if files == nil {
			files = []string{}
		}
		return FileListing{Files: files, Available: true}
	}

	var files []string
	if err := utils.UnmarshalFromJSON(trimmed, &files); err != nil {
		l.logParseError(err)
		return FileListing{Files: []string{}}
	}
	files = utils.UniqueSlice(files)
	if files == nil {
		files = []string{}
	}
	return FileListing{Files: files, Available: true}
}

func (l *JSONFileLister) logParseError(err error) {
	if l.Logger != nil {
		config.LogError(l.Logger, "FileListing", "ListFiles", "parsing listing", l.Path, err)
	}
}

// GCSFileLister lists object names under "<storageKey>/" in a bucket.
type GCSFileLister struct {
	client *storage.Client
	bucket string
	logger *logrus.Logger
}

func NewGCSFileLister(ctx context.Context, bucket string, credJSON string, logger *logrus.Logger) (*GCSFileLister, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("GCS_BUCKET is required for the gcs storage provider")
	}
	client, err := utils.NewGCSClient(ctx, credJSON)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSFileLister{client: client, bucket: bucket, logger: logger}, nil
}

func (l *GCSFileLister) ListFiles(ctx context.Context, storageKey string) FileListing {
	prefix := strings.Trim(storageKey, "/") + "/"
	it := l.client.Bucket(l.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	files := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if l.logger != nil {
				config.LogError(l.logger, "FileListing", "ListFiles", "listing bucket", map[string]string{
					"bucket": l.bucket,
					"prefix": prefix,
				}, err)
			}
			return FileListing{Files: []string{}}
		}
		// skip "directory" placeholders
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		files = append(files, path.Base(attrs.Name))
	}
	return FileListing{Files: files, Available: true}
}

func (l *GCSFileLister) Close() error {
	return l.client.Close()
}

// NewFileLister builds the lister selected by STORAGE_PROVIDER. The returned close func is never nil.
func NewFileLister(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (FileLister, func(), error) {
	switch utils.NormalizeStorageProvider(cfg.StorageProvider) {
	case utils.StorageProviderGCS:
		l, err := NewGCSFileLister(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return l, func() { _ = l.Close() }, nil
	}
	return NewJSONFileLister(cfg.FileListingPath, logger), func() {}, nil
}
