// Package archive writes stage outputs to object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ILLUVRSE/trip-planner/internal/contracts"
)

// Uploader is the part of manager.Uploader the archiver needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes stage outputs to keys like:
//
//	<prefix>/itineraries/YYYY/MM/DD/<jobID>/<stage>.json
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader Uploader
	now      func() time.Time
}

// NewS3Archiver loads AWS configuration from the environment (AWS_REGION,
// AWS_PROFILE, static keys) and builds an archiver for bucket.
func NewS3Archiver(ctx context.Context, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3ArchiverWithUploader(bucket, prefix, manager.NewUploader(s3.NewFromConfig(cfg)))
}

func NewS3ArchiverWithUploader(bucket, prefix string, uploader Uploader) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: uploader,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Key returns the object key for a job's stage output written at ts.
func (s *S3Archiver) Key(ts time.Time, jobID string, stage contracts.Stage) string {
	year, month, day := ts.Date()
	return path.Join(s.prefix, "itineraries",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		jobID,
		fmt.Sprintf("%s.json", stage),
	)
}

// ArchiveStage uploads body (already canonical JSON) and returns its key.
func (s *S3Archiver) ArchiveStage(ctx context.Context, jobID string, stage contracts.Stage, body []byte) (string, error) {
	if jobID == "" {
		return "", fmt.Errorf("job id required")
	}
	key := s.Key(s.now(), jobID, stage)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return key, nil
}
