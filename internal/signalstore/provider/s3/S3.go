package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/forceu/uploadrelay/internal/models"
)

const extensionCancel = ".cancel"
const extensionOutcome = ".outcome"
const defaultRegion = "us-east-1"
const requestTimeout = 30 * time.Second

// SignalProvider stores markers as objects in an S3 bucket, named <prefix><session id>.cancel and .outcome
type SignalProvider struct {
	client *s3.Client
	bucket string
	prefix string
}

// New returns an instance and verifies that the bucket is accessible. If no access key is part of the
// connection, the default credential chain of the SDK is used
func New(config models.SignalConnection) (SignalProvider, error) {
	if config.Bucket == "" {
		return SignalProvider{}, errors.New("empty bucket was provided")
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	region := config.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if config.Username != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.Username, config.Password, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return SignalProvider{}, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(config.Bucket)})
	if err != nil {
		return SignalProvider{}, fmt.Errorf("bucket %s is not accessible: %w", config.Bucket, err)
	}
	return SignalProvider{client: client, bucket: config.Bucket, prefix: config.Prefix}, nil
}

// GetType returns 3, for being an S3 provider
func (p SignalProvider) GetType() int {
	return 3 // signalstore.TypeS3
}

func (p SignalProvider) key(sessionId, extension string) string {
	return p.prefix + sessionId + extension
}

// RequestCancel creates the cancellation marker. The write is conditional on the key not existing;
// backends without conditional writes fall back to the preceding existence check
func (p SignalProvider) RequestCancel(sessionId string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	key := p.key(sessionId, extensionCancel)
	exists, err := p.objectExists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(strconv.FormatInt(time.Now().Unix(), 10)),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if hasErrorCode(err, "PreconditionFailed", "ConditionalRequestConflict") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsCancelled returns true if a cancellation marker exists
func (p SignalProvider) IsCancelled(sessionId string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return p.objectExists(ctx, p.key(sessionId, extensionCancel))
}

// SaveOutcome stores the terminal status reported by the worker
func (p SignalProvider) SaveOutcome(sessionId string, status models.SessionStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(sessionId, extensionOutcome)),
		Body:   strings.NewReader(string(status)),
	})
	return err
}

// GetOutcome returns the terminal status reported by the worker or false if none was saved yet
func (p SignalProvider) GetOutcome(sessionId string) (models.SessionStatus, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	result, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(sessionId, extensionOutcome)),
	})
	if err != nil {
		if hasErrorCode(err, "NoSuchKey", "NotFound") {
			return "", false, nil
		}
		return "", false, err
	}
	defer result.Body.Close()
	content, err := io.ReadAll(result.Body)
	if err != nil {
		return "", false, err
	}
	return models.SessionStatus(strings.TrimSpace(string(content))), true, nil
}

// Purge deletes all markers of a session
func (p SignalProvider) Purge(sessionId string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	for _, extension := range []string{extensionCancel, extensionOutcome} {
		err := p.deleteObject(ctx, p.key(sessionId, extension))
		if err != nil {
			return err
		}
	}
	return nil
}

// PurgeOlderThan deletes all markers that were last modified before now - age
func (p SignalProvider) PurgeOlderThan(age time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*requestTimeout)
	defer cancel()
	cutoff := time.Now().Add(-age)
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(p.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, extensionCancel) && !strings.HasSuffix(key, extensionOutcome) {
				continue
			}
			if object.LastModified != nil && object.LastModified.Before(cutoff) {
				err = p.deleteObject(ctx, key)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Close is a no-op, the client has no persistent connection
func (p SignalProvider) Close() {}

func (p SignalProvider) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if hasErrorCode(err, "NotFound", "NoSuchKey") {
		return false, nil
	}
	return false, err
}

func (p SignalProvider) deleteObject(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !hasErrorCode(err, "NotFound", "NoSuchKey") {
		return err
	}
	return nil
}

func hasErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
