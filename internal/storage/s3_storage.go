package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Storage issues presigned upload URLs for venue photos. The client uploads
// the original; the resize pipeline writes the thumb and medium variants next
// to it under deterministic keys.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// PhotoUploadTicket is everything a client needs to upload one photo and
// everything the server needs to record it afterwards.
type PhotoUploadTicket struct {
	UploadURL   string `json:"upload_url"`
	Key         string `json:"key"`
	OriginalURL string `json:"original_url"`
	ThumbURL    string `json:"thumb_url"`
	MediumURL   string `json:"medium_url"`
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, baseURL string) *S3Storage {
	var cfg aws.Config
	var err error

	// Static credentials when provided, default credential chain otherwise.
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{Region: region}
		}
	}

	return &S3Storage{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// GeneratePhotoUploadTicket returns a presigned PUT URL (valid for 15
// minutes) plus the final URLs of all three size variants.
func (s *S3Storage) GeneratePhotoUploadTicket(venueID uint, filename, contentType string) (*PhotoUploadTicket, error) {
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("venues/%d/%s%s", venueID, uuid.New().String(), ext)

	presignClient := s3.NewPresignClient(s.client)
	presignedReq, err := presignClient.PresignPutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &PhotoUploadTicket{
		UploadURL:   presignedReq.URL,
		Key:         key,
		OriginalURL: s.fileURL(key),
		ThumbURL:    s.fileURL(variantKey(key, "thumb")),
		MediumURL:   s.fileURL(variantKey(key, "medium")),
	}, nil
}

func (s *S3Storage) fileURL(key string) string {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key)
}

// variantKey turns "venues/1/abc.jpg" into "venues/1/abc_thumb.jpg".
func variantKey(key, variant string) string {
	ext := filepath.Ext(key)
	return strings.TrimSuffix(key, ext) + "_" + variant + ext
}

// ValidateFileSize validates the file size against a maximum.
func (s *S3Storage) ValidateFileSize(size int64, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %d bytes", maxSize)
	}
	return nil
}

// ValidateContentType checks the content type against an allow-list.
func (s *S3Storage) ValidateContentType(contentType string, allowedTypes []string) error {
	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("content type %s is not allowed", contentType)
}
