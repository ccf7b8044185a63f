package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const SignedUrlExpiry = 10 * time.Minute

// S3Repository allows for the server to interface with S3. We store car images here.
type S3Repository struct {
	s3_session *s3Session
}

// CarImageKey is the object key of an uploaded image of a car
func CarImageKey(carId string, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	return path.Join("cars", carId, name)
}

// IsCarImageKey reports whether key lies under the image prefix of carId
func IsCarImageKey(carId string, key string) bool {
	return carId != "" && strings.HasPrefix(key, path.Join("cars", carId)+"/")
}

// Writes an object to the S3 bucket from a reader.
func (s *S3Repository) WriteObjectReader(ctx context.Context, reader io.Reader, objectName string, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.s3_session.bucket),
		Key:    aws.String(objectName),
		Body:   reader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	_, err := s.s3_session.client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("couldn't upload file %v to %v:%v. Here's why: %w",
			objectName, s.s3_session.bucket, objectName, err)
	}

	return nil
}

// GetSignedUrl responds with a presigned URL for objectPath valid for SignedUrlExpiry
func (s *S3Repository) GetSignedUrl(ctx context.Context, objectPath string) (string, error) {
	request, err := s.s3_session.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s3_session.bucket),
		Key:    aws.String(objectPath),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = SignedUrlExpiry
	})
	if err != nil {
		return "", fmt.Errorf("couldn't get a presigned request to get %v:%v: %w", s.s3_session.bucket, objectPath, err)
	}

	return request.URL, nil
}

// FileExists reports whether objectPath is present in the bucket
func (s *S3Repository) FileExists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.s3_session.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.s3_session.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteObject deletes an object from the bucket located at the object path
func (s *S3Repository) DeleteObject(ctx context.Context, objectPath string) error {
	params := s3.DeleteObjectInput{
		Bucket: aws.String(s.s3_session.bucket),
		Key:    aws.String(objectPath),
	}
	_, err := s.s3_session.client.DeleteObject(ctx, &params)
	if err != nil {
		return err
	}

	return nil
}

func (s *S3Repository) Bucket() string {
	return s.s3_session.bucket
}
