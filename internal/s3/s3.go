package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Session struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
}

// NewS3Session opens one client for the image bucket that is shared by every handler.
// Static credentials are used when both keys are given, the default chain otherwise.
func NewS3Session(ctx context.Context, accessKey string, secretKey string, region string, bucket string) (*S3Repository, error) {
	loadOptions := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("could not load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	session := &s3Session{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
	}
	return &S3Repository{
		s3_session: session,
	}, nil
}
