// Package archive stores rendered invoice PDFs in S3-compatible object
// storage so sent invoices keep an immutable copy of what the client saw.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	appconfig "invoicely-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Archiver persists invoice documents.
type Archiver interface {
	StoreInvoicePDF(ctx context.Context, workspaceID, invoiceID uuid.UUID, invoiceNumber string, pdf []byte) (string, error)
}

// S3Archiver writes PDFs to a bucket. Works with AWS S3 and Cloudflare R2
// (any S3-compatible endpoint).
type S3Archiver struct {
	client *s3.Client
	bucket string
}

// NewS3Archiver builds the archiver, or returns nil when archiving is
// disabled. A nil *S3Archiver is safe to use and stores nothing.
func NewS3Archiver(cfg *appconfig.Config) (*S3Archiver, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Archive.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("archive client config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
		}
	})

	return &S3Archiver{client: client, bucket: cfg.Archive.Bucket}, nil
}

// StoreInvoicePDF uploads the PDF and returns the object key.
func (a *S3Archiver) StoreInvoicePDF(ctx context.Context, workspaceID, invoiceID uuid.UUID, invoiceNumber string, pdf []byte) (string, error) {
	if a == nil || a.client == nil {
		return "", nil
	}

	key := fmt.Sprintf("invoices/%s/%s_%s.pdf", workspaceID, invoiceNumber, invoiceID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("archive upload failed: %w", err)
	}

	log.Printf("[Archive] Stored %s (%d bytes)", key, len(pdf))
	return key, nil
}
