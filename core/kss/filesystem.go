package kss

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/autotrack-work/backend/core/logger"
)

// LocalFilesystem stores objects in a local directory. It exists for
// development setups and tests, where no S3 bucket is available.
type LocalFilesystem struct {
	baseFolder string
	publicURL  string
}

// NewLocalFilesystem returns a new LocalFilesystem
func NewLocalFilesystem(config LocalConfiguration) (*LocalFilesystem, error) {
	if err := os.MkdirAll(config.BasePath, 0700); err != nil {
		return nil, err
	}
	logger.Default().Debugln("local filesystem image storage enabled:", config.BasePath)
	return &LocalFilesystem{
		baseFolder: config.BasePath,
		publicURL:  strings.TrimSuffix(config.PublicURL, "/"),
	}, nil
}

func (f LocalFilesystem) path(key string) string {
	return filepath.Join(f.baseFolder, filepath.FromSlash(key))
}

// UploadData uploads data into a new key object
func (f LocalFilesystem) UploadData(key string, data []byte, contentType string) error {
	if err := os.MkdirAll(filepath.Dir(f.path(key)), 0700); err != nil {
		return err
	}
	return os.WriteFile(f.path(key), data, 0600)
}

// Delete deletes the key object
func (f LocalFilesystem) Delete(key string) error {
	return os.RemoveAll(f.path(key))
}

// PublicURL returns the retrieval URL for key
func (f LocalFilesystem) PublicURL(key string) string {
	return f.publicURL + "/" + key
}
