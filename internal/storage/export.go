package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
)

const (
	defaultExportPrefix  = "exports"
	defaultExportExpires = 15 * time.Minute
)

// Export is an uploaded result and a time limited link to it.
type Export struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	Truncated bool      `json:"truncated"`
	Bytes     int       `json:"bytes"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Exporter struct {
	objects    ObjectStore
	signer     URLSigner
	bucket     string
	prefix     string
	pathPrefix string
	expires    time.Duration
	now        func() time.Time
}

// NewExporterParams configures an Exporter. PathPrefix is the path of the
// public endpoint, as returned by NewPublicSigner.
type NewExporterParams struct {
	Objects    ObjectStore
	Signer     URLSigner
	Bucket     string
	Prefix     string
	PathPrefix string
	Expires    time.Duration
}

func NewExporter(params NewExporterParams) (*Exporter, error) {
	if params.Objects == nil || params.Signer == nil {
		return nil, errors.New("exporter needs an object store and a signer")
	}
	if params.Bucket == "" {
		return nil, errors.New("exporter needs a bucket")
	}
	e := &Exporter{
		objects:    params.Objects,
		signer:     params.Signer,
		bucket:     params.Bucket,
		prefix:     params.Prefix,
		pathPrefix: params.PathPrefix,
		expires:    params.Expires,
		now:        time.Now,
	}
	if e.prefix == "" {
		e.prefix = defaultExportPrefix
	}
	if e.expires <= 0 {
		e.expires = defaultExportExpires
	}
	return e, nil
}

// ExportCSV uploads res as <prefix>/<yyyy>/<mm>/<dd>/<name>.csv and returns a
// presigned download link.
func (e *Exporter) ExportCSV(ctx context.Context, name string, res *common.ExecutionResult) (*Export, error) {
	if res == nil {
		return nil, errors.New("nothing to export")
	}
	if name == "" {
		return nil, errors.New("export name is empty")
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	now := e.now().UTC()
	key := path.Join(e.prefix, now.Format("2006/01/02"), name+".csv")
	size := buf.Len()

	_, err := e.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload export to S3: %w", err)
	}

	signed, err := e.signer.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(e.expires))
	if err != nil {
		return nil, fmt.Errorf("failed to generate download link: %w", err)
	}
	link, err := withPathPrefix(signed.URL, e.pathPrefix)
	if err != nil {
		return nil, err
	}

	logger.Debug("Exported answer", "key", key, "rows", res.RowCount, "bytes", size)
	return &Export{
		Key:       key,
		URL:       link,
		Rows:      res.RowCount,
		Truncated: res.Truncated,
		Bytes:     size,
		ExpiresAt: now.Add(e.expires),
	}, nil
}

// WriteCSV writes a header of res.Columns followed by one line per row.
// Missing cells are empty.
func WriteCSV(w io.Writer, res *common.ExecutionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			record[i] = row[col].Text()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
