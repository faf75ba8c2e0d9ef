/*Package kss stores uploaded images outside of the AutoTrack database.

There are currently two possible backends: a local file system and AWS S3.
Retrieval URLs are not issued by the storage backend; they are derived
from a configured public host that serves the bucket contents.
*/
package kss

import "fmt"

// Driver defines the interface for the image storage service
type Driver interface {
	// UploadData uploads data into a new key object
	UploadData(key string, data []byte, contentType string) error
	// Delete deletes the key object
	Delete(key string) error
	// PublicURL returns the publicly-resolvable retrieval URL for key
	PublicURL(key string) string
}

// DriverType represents the different types of storage drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation of the storage service
const DriverTypeLocal DriverType = "Local"

// DriverTypeAWSS3 is the AWS S3 implementation of the storage service
const DriverTypeAWSS3 DriverType = "AWSS3"

// None is used when there is no storage implementation
const None DriverType = ""

// Configuration contains the configuration for the storage service
type Configuration struct {
	DriverType         DriverType
	S3Configuration    *S3Configuration
	LocalConfiguration *LocalConfiguration
}

// S3Configuration contains the configuration for the S3 storage service
type S3Configuration struct {
	AccessID      string
	AccessKey     string
	AWSRegion     string
	AWSBucketName string
	KeyPrefix     string
	// Endpoint optionally addresses an S3-compatible store outside of
	// AWS, for example a Cloudflare R2 endpoint
	Endpoint string
	// PublicURL is the host pattern the bucket contents are served from,
	// for example "https://r2.autotrack.work"
	PublicURL string
}

// LocalConfiguration contains the configuration for the local filesystem storage service
type LocalConfiguration struct {
	BasePath  string
	PublicURL string
}

// NewDriver returns the storage driver for the given configuration, or
// nil if no driver is configured.
func NewDriver(config Configuration) (Driver, error) {
	switch config.DriverType {
	case DriverTypeAWSS3:
		if config.S3Configuration == nil {
			return nil, fmt.Errorf("S3 storage requested but not configured")
		}
		return NewS3(*config.S3Configuration)
	case DriverTypeLocal:
		if config.LocalConfiguration == nil {
			return nil, fmt.Errorf("local storage requested but not configured")
		}
		return NewLocalFilesystem(*config.LocalConfiguration)
	case None:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown storage driver type '%s'", config.DriverType)
}
