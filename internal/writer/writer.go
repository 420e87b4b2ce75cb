package writer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the slice of the s3 client the writer needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Writer encodes report rows as csv and ships them to s3.
type Writer interface {
	// encode header + records as csv
	WriteCSV(header []string, records [][]string) ([]byte, error)
	// Write data to s3 bucket, returns the full object key
	ExportToS3(ctx context.Context, bucket, key, prefix string, data []byte) (string, error)
}

type _Writer struct {
	s3Client S3API
}

type WriterInitConfig struct {
	S3Client S3API
}

func Init(config WriterInitConfig) (Writer, error) {
	// return errors
	if config.S3Client == nil {
		return nil, errors.New("s3 client is not set")
	}
	return &_Writer{
		s3Client: config.S3Client,
	}, nil
}

// WriteCSV writes the header and records into an in memory csv document.
func (w *_Writer) WriteCSV(header []string, records [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	// Write the header
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	// Write the records
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()

	// Check for errors from the CSV writer
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportToS3 uploads data to an S3 bucket.
func (w *_Writer) ExportToS3(ctx context.Context, bucket, key, prefix string, data []byte) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("bucket and key are required")
	}

	// Create the full S3 key with the provided prefix
	fullKey := path.Join(prefix, key)

	// Upload the data to S3
	_, err := w.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", err
	}
	return fullKey, nil
}
