package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/fpang/cam-pipeline/internal/filehandler"
)

// S3Sink uploads images directly to an S3 bucket under
// <prefix>/<batch>/<image>.
type S3Sink struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

// NewS3Sink builds an S3 sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, bucket, prefix string) (*S3Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Sink{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
		Prefix: prefix,
	}, nil
}

// Upload puts one item into the bucket. The key is built from the item's
// batch and image name, never from the local path, so renditions keep the
// event's identity in the bucket listing.
func (s *S3Sink) Upload(ctx context.Context, item Item) error {
	f, err := os.Open(item.Path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s/%s", s.Prefix, item.Batch, item.Name)

	contentType := filehandler.SupportedImageExtensions[strings.ToLower(filepath.Ext(item.Name))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.Bucket,
		Key:         &key,
		Body:        f,
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	log.Debug().Str("bucket", s.Bucket).Str("key", key).Msg("Image uploaded to S3")
	return nil
}
