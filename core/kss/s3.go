package kss

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/autotrack-work/backend/core/logger"
)

// S3 is the implementation of the storage Driver for AWS S3
type S3 struct {
	config      aws.Config
	bucket      string
	baseKeyName string
	publicURL   string
}

// NewS3 returns a new S3
func NewS3(kssConfig S3Configuration) (*S3, error) {
	if kssConfig.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}
	if kssConfig.AccessID == "" || kssConfig.AccessKey == "" {
		return nil, fmt.Errorf("S3 credentials are not set")
	}

	options := []func(*config.LoadOptions) error{
		config.WithRegion(kssConfig.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(kssConfig.AccessID, kssConfig.AccessKey, "")),
	}
	if kssConfig.Endpoint != "" {
		// S3-compatible stores like Cloudflare R2 are addressed through
		// their own endpoint
		options = append(options, config.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, opts ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: kssConfig.Endpoint}, nil
				})))
	}
	config, err := config.LoadDefaultConfig(context.TODO(), options...)
	if err != nil {
		return nil, err
	}
	logger.Default().Debugln("S3 image storage enabled")
	s := S3{config, kssConfig.AWSBucketName, kssConfig.KeyPrefix, strings.TrimSuffix(kssConfig.PublicURL, "/")}
	return &s, nil
}

// UploadData uploads data into a new key object
func (s S3) UploadData(key string, data []byte, contentType string) error {
	cl := s3.NewFromConfig(s.config)

	_, err := cl.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.baseKeyName + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file, %v", err)
	}
	return nil
}

// Delete deletes the key object
func (s S3) Delete(key string) error {
	logger.Default().Infoln("Deleting ", s.baseKeyName+key)
	client := s3.NewFromConfig(s.config)

	input := &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(s.baseKeyName + key),
	}

	_, err := client.DeleteObject(context.TODO(), input)
	if err != nil {
		logger.Default().Error("Could not delete ", s.baseKeyName+key)
		return err
	}

	return nil
}

// PublicURL returns the retrieval URL for key. The URL points to the
// configured public host, not to S3 itself.
func (s S3) PublicURL(key string) string {
	return s.publicURL + "/" + s.baseKeyName + key
}
