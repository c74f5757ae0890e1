// Package s3 stores media in an S3-compatible bucket and serves it through
// a public URL prefix (bucket website, CDN or path-style endpoint).
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/media/objectkey"
	"github.com/tendant/simple-cms/pkg/simplecms/progress"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PublicURL       string // Public URL prefix objects are served under
	Folder          string // Optional key prefix inside the bucket
	PublicRead      bool   // Upload objects with the public-read canned ACL

	// Object key layout (default: recommended generator under Folder)
	Generator objectkey.Generator

	// Server-side encryption options
	EnableSSE    bool   // Enable server-side encryption
	SSEAlgorithm string // SSE algorithm (AES256 or aws:kms)
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms algorithm
}

type objectAPI interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type uploadAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Store is an S3-compatible implementation of simplecms.MediaStore
type Store struct {
	client    objectAPI
	uploader  uploadAPI
	bucket    string
	publicURL string
	keys      objectkey.Generator
	config    Config
}

// New creates a new S3 media store
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Options...)

	return newStore(config, client, manager.NewUploader(client)), nil
}

func newStore(config Config, client objectAPI, uploader uploadAPI) *Store {
	keys := config.Generator
	if keys == nil {
		keys = objectkey.NewRecommendedGenerator(config.Folder)
	}
	publicURL := strings.TrimRight(config.PublicURL, "/")
	if publicURL == "" {
		publicURL = defaultPublicURL(config)
	}
	return &Store{
		client:    client,
		uploader:  uploader,
		bucket:    config.Bucket,
		publicURL: publicURL + "/",
		keys:      keys,
		config:    config,
	}
}

func defaultPublicURL(config Config) string {
	if config.Endpoint != "" {
		return strings.TrimRight(config.Endpoint, "/") + "/" + config.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", config.Bucket, config.Region)
}

// Upload streams the file to the bucket through the multipart uploader
func (s *Store) Upload(ctx context.Context, file *simplecms.File, kind simplecms.MediaKind, report simplecms.ProgressFunc) (string, error) {
	key := s.keys.GenerateKey(string(kind), uuid.New(), file.Name)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   progress.NewReader(file.Reader, file.Size, report),
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}
	if s.config.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	// Add server-side encryption if enabled
	if s.config.EnableSSE {
		switch s.config.SSEAlgorithm {
		case "AES256":
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		case "aws:kms":
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			if s.config.SSEKMSKeyID != "" {
				input.SSEKMSKeyId = aws.String(s.config.SSEKMSKeyID)
			}
		}
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", &simplecms.UploadError{Kind: kind, Err: fmt.Errorf("s3 upload %s/%s: %w", s.bucket, key, err)}
	}
	if report != nil {
		report(100)
	}
	return s.publicURL + key, nil
}

// Remove deletes the object stored under objectID
func (s *Store) Remove(ctx context.Context, objectID string) error {
	if objectID == "" {
		return errors.New("object id is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectID),
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AllAccessDisabled":
			return fmt.Errorf("s3 delete %s/%s: %w: %v", s.bucket, objectID, simplecms.ErrRemoveUnsupported, err)
		case "NoSuchKey":
			return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, objectID, simplecms.ErrNotFound)
		}
	}
	return fmt.Errorf("s3 delete %s/%s: %w", s.bucket, objectID, err)
}

// DerivedID extracts the object key from a public URL
func (s *Store) DerivedID(url string) string {
	if !s.Owns(url) {
		return ""
	}
	key := strings.TrimPrefix(url, s.publicURL)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return strings.TrimSuffix(key, path.Ext(key))
}

// Owns reports whether url lies below the public URL prefix
func (s *Store) Owns(url string) bool {
	return strings.HasPrefix(url, s.publicURL) && len(url) > len(s.publicURL)
}

var _ simplecms.MediaStore = (*Store)(nil)
