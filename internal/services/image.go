package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"property-market-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = 5 * time.Minute

// Presigner signs S3 upload requests
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ImageService hands out pre-signed upload URLs for property images
type ImageService struct {
	properties PropertyStore
	presigner  Presigner
	bucket     string
	baseURL    string
}

// NewImageService creates an image service backed by S3
func NewImageService(ctx context.Context, properties PropertyStore, cfg config.AWSConfig) (*ImageService, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewImageServiceWithPresigner(properties, s3.NewPresignClient(client), cfg.S3Bucket, objectBaseURL(cfg)), nil
}

// NewImageServiceWithPresigner creates an image service around an existing presigner
func NewImageServiceWithPresigner(properties PropertyStore, presigner Presigner, bucket, baseURL string) *ImageService {
	return &ImageService{
		properties: properties,
		presigner:  presigner,
		bucket:     bucket,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// UploadRequest represents a request for a pre-signed image upload URL
type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// UploadResponse represents the response with a pre-signed URL
type UploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ImageURL  string `json:"imageUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// RequestUpload presigns an S3 PUT for a new image and records its URL on the property
func (s *ImageService) RequestUpload(ctx context.Context, callerID, propertyID string, req UploadRequest) (*UploadResponse, error) {
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, invalid("Content type must be an image")
	}

	if _, err := uuid.Parse(propertyID); err != nil {
		return nil, fmt.Errorf("property %q: %w", propertyID, ErrNotFound)
	}
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, mapStoreError(err, "failed to get property")
	}
	if p.OwnerID != callerID {
		return nil, fmt.Errorf("user %s does not own property %s: %w", callerID, propertyID, ErrForbidden)
	}

	// properties/{property_id}/{uuid}{ext}
	key := fmt.Sprintf("properties/%s/%s%s", propertyID, uuid.New().String(), strings.ToLower(path.Ext(req.Filename)))

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	imageURL := s.baseURL + "/" + key
	if err := s.properties.AppendImage(ctx, propertyID, imageURL); err != nil {
		return nil, mapStoreError(err, "failed to record property image")
	}

	return &UploadResponse{
		UploadURL: request.URL,
		ImageURL:  imageURL,
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}

func objectBaseURL(cfg config.AWSConfig) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
}
