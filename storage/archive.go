package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Number of attempts for UploadFile retry loop
const maxUploadAttempts = 3

// ArchiveConfig holds configuration for an S3 compatible archive bucket
type ArchiveConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string
	Region    string
}

// Uploader is the part of the archive the sweep job needs
type Uploader interface {
	UploadFile(localPath, remotePath string) (string, error)
}

// Archive uploads finished snapshots and clips to an S3 compatible bucket
type Archive struct {
	config   ArchiveConfig
	uploader *s3manager.Uploader
	backoff  func(attempt int) time.Duration
}

// NewArchive creates a new Archive instance
func NewArchive(config ArchiveConfig) (*Archive, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("archive bucket not configured")
	}
	if config.Region == "" {
		config.Region = "auto"
	}

	awsCfg := &aws.Config{
		Credentials: credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		Region:      aws.String(config.Region),
		// Force path style addressing for compatibility with S3 API clones
		S3ForcePathStyle: aws.Bool(true),
	}
	if config.Endpoint != "" {
		awsCfg.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	// The Pi shares a phone hotspot; keep to a single connection.
	uploader := s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 1
	})

	return &Archive{
		config:   config,
		uploader: uploader,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}, nil
}

// UploadFile uploads a file to the archive bucket and returns its location
func (a *Archive) UploadFile(localPath, remotePath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", err)
	}

	metadata := map[string]*string{
		"OriginalFileName": aws.String(filepath.Base(localPath)),
		"UploadedAt":       aws.String(time.Now().Format(time.RFC3339)),
		"FileSize":         aws.String(fmt.Sprintf("%d", fileInfo.Size())),
	}

	log.Printf("[ARCHIVE] Uploading %s (%.2f MB) to %s/%s", localPath, float64(fileInfo.Size())/1024/1024, a.config.Bucket, remotePath)

	var location string
	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		if _, err := file.Seek(0, 0); err != nil {
			return "", fmt.Errorf("failed to seek to beginning of file: %w", err)
		}

		var out *s3manager.UploadOutput
		out, lastErr = a.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(a.config.Bucket),
			Key:         aws.String(remotePath),
			Body:        file,
			ContentType: aws.String(ContentType(localPath)),
			Metadata:    metadata,
		})
		if lastErr == nil {
			location = out.Location
			break
		}

		log.Printf("[ARCHIVE] Upload attempt %d/%d failed for %s: %v", attempt, maxUploadAttempts, localPath, lastErr)
		if attempt < maxUploadAttempts {
			time.Sleep(a.backoff(attempt))
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("failed to upload file after %d attempts: %w", maxUploadAttempts, lastErr)
	}

	return location, nil
}

// ContentType returns the MIME type used when archiving a media file
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".avi":
		return "video/x-msvideo"
	case ".mp4":
		return "video/mp4"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}
