package reportreader

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/outofoffice3/common/logger"
	"github.com/outofoffice3/org-guardrails/internal/retry"
	"github.com/outofoffice3/org-guardrails/internal/shared"
)

const byteOrderMark = "\ufeff"

// S3API is the slice of the s3 client the reader needs.  It also satisfies
// s3.ListObjectsV2APIClient.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type ReportReader interface {
	// key of the most recently modified csv in the bucket, false when there is none
	LatestCSVKey(ctx context.Context) (string, bool, error)
	// download key and extract its non compliant findings
	ReadFindings(ctx context.Context, key string) ([]shared.Finding, error)
}

type _ReportReader struct {
	client S3API
	bucket string
	policy retry.Policy
	logger logger.Logger
}

type ReportReaderInitConfig struct {
	Client      S3API
	Bucket      string
	RetryPolicy retry.Policy
	Logger      logger.Logger
}

func Init(config ReportReaderInitConfig) (ReportReader, error) {
	// return errors
	if config.Client == nil {
		return nil, errors.New("s3 client is not set")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket is not set")
	}
	if config.Logger == nil {
		return nil, errors.New("logger is not set")
	}
	policy := config.RetryPolicy
	// everything but access denied is retried
	policy.Retryable = retry.RetryUnlessDenied
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = retry.DefaultMaxAttempts
	}
	reader := &_ReportReader{
		client: config.Client,
		bucket: config.Bucket,
		policy: policy,
		logger: config.Logger,
	}
	if reader.policy.OnRetry == nil {
		reader.policy.OnRetry = func(attempt int, err error) {
			reader.logger.Infof("[attempt %d/%d] s3 call failed on bucket [%s], retrying : [%v]", attempt, reader.policy.MaxAttempts, reader.bucket, err)
		}
	}
	return reader, nil
}

func (r *_ReportReader) LatestCSVKey(ctx context.Context) (string, bool, error) {
	var (
		best  s3types.Object
		found bool
		pages int
	)
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{Bucket: aws.String(r.bucket)})
	for paginator.HasMorePages() {
		pages++
		output, _, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			if retry.IsAccessDenied(err) {
				r.logger.Errorf("access denied listing bucket [%s], check the lambda role has s3 read permissions : [%v]", r.bucket, err)
			}
			return "", false, err
		}
		if candidate, ok := LatestCSV(output.Contents); ok {
			if !found || lastModified(candidate).After(lastModified(best)) {
				best, found = candidate, true
			}
		}
	}
	if !found {
		r.logger.Infof("no csv files found in bucket [%s] across [%d] pages", r.bucket, pages)
		return "", false, nil
	}
	r.logger.Infof("latest csv file [%s] modified [%v]", aws.ToString(best.Key), lastModified(best))
	return aws.ToString(best.Key), true, nil
}

func (r *_ReportReader) ReadFindings(ctx context.Context, key string) ([]shared.Finding, error) {
	output, _, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*s3.GetObjectOutput, error) {
		return r.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(key),
		})
	})
	if err != nil {
		return nil, err
	}
	if output == nil || output.Body == nil {
		return nil, errors.New("empty get object response for [" + key + "]")
	}
	defer output.Body.Close()

	findings, err := ParseFindings(output.Body)
	if err != nil {
		return nil, errors.New("failed to parse csv file [" + key + "] : " + err.Error())
	}
	r.logger.Infof("parsed [%d] non compliant findings from [%s]", len(findings), key)
	return findings, nil
}

// LatestCSV returns the object with a .csv key and the greatest LastModified.  The first
// maximum wins on ties.
func LatestCSV(objects []s3types.Object) (s3types.Object, bool) {
	var (
		best  s3types.Object
		found bool
	)
	for _, object := range objects {
		if !strings.HasSuffix(aws.ToString(object.Key), shared.CSVExtension) {
			continue
		}
		if !found || lastModified(object).After(lastModified(best)) {
			best, found = object, true
		}
	}
	return best, found
}

func lastModified(object s3types.Object) time.Time {
	return aws.ToTime(object.LastModified)
}

// ParseRows reads a compliance report.  Columns are matched by header name, extra columns
// are ignored and missing ones read as empty.  Values are trimmed.
func ParseRows(body io.Reader) ([]shared.ComplianceRow, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []shared.ComplianceRow{}, nil
	}
	if err != nil {
		return nil, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, byteOrderMark)
		}
		name = strings.TrimSpace(name)
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	field := func(record []string, column string) string {
		i, ok := columns[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := []shared.ComplianceRow{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, shared.ComplianceRow{
			AccountId:    field(record, shared.ColumnAccountId),
			Guardrail:    field(record, shared.ColumnGuardrail),
			ControlName:  field(record, shared.ColumnControlName),
			ResourceType: field(record, shared.ColumnResourceType),
			ResourceArn:  field(record, shared.ColumnResourceArn),
			Compliance:   field(record, shared.ColumnCompliance),
		})
	}
	return rows, nil
}

// ParseFindings returns, in row order, the rows that are findings.
func ParseFindings(body io.Reader) ([]shared.Finding, error) {
	rows, err := ParseRows(body)
	if err != nil {
		return nil, err
	}
	findings := []shared.Finding{}
	for _, row := range rows {
		if row.IsFinding() {
			findings = append(findings, row.ToFinding())
		}
	}
	return findings, nil
}
