package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinayJogani14/Supply-Chain-Management/pkg/common"
)

type fakeObjects struct {
	put  *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

type fakeSigner struct {
	key string
}

func (f *fakeSigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.key = *in.Key
	return &v4.PresignedHTTPRequest{
		URL:    "https://files.example.com/" + *in.Bucket + "/" + *in.Key + "?X-Amz-Signature=abc",
		Method: http.MethodGet,
	}, nil
}

func suppliers() *common.ExecutionResult {
	return &common.ExecutionResult{
		Columns: []string{"name", "rating", "country"},
		Rows: []common.Row{
			{"name": common.String("Acme, Inc."), "rating": common.Float(4.5), "country": common.String("DE")},
			{"name": common.String("Globex"), "rating": common.Integer(3)},
		},
		RowCount: 2,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, suppliers()))
	assert.Equal(t, "name,rating,country\n\"Acme, Inc.\",4.5,DE\nGlobex,3,\n", buf.String())
}

func TestExportCSV(t *testing.T) {
	objects := &fakeObjects{}
	signer := &fakeSigner{}
	e, err := NewExporter(NewExporterParams{
		Objects:    objects,
		Signer:     signer,
		Bucket:     "answers",
		PathPrefix: "/s3",
	})
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

	out, err := e.ExportCSV(context.Background(), "req-42", suppliers())
	require.NoError(t, err)

	assert.Equal(t, "exports/2026/10/18/req-42.csv", out.Key)
	assert.Equal(t, out.Key, *objects.put.Key)
	assert.Equal(t, "text/csv", *objects.put.ContentType)
	assert.Equal(t, out.Key, signer.key)
	assert.True(t, strings.HasPrefix(out.URL, "https://files.example.com/s3/answers/exports/"), out.URL)
	assert.Equal(t, 2, out.Rows)
	assert.Equal(t, len(objects.body), out.Bytes)
	assert.Equal(t, e.now().Add(defaultExportExpires), out.ExpiresAt)
}

func TestExportCSVErrors(t *testing.T) {
	_, err := NewExporter(NewExporterParams{Bucket: "answers"})
	require.Error(t, err)

	objects := &fakeObjects{err: errors.New("access denied")}
	e, err := NewExporter(NewExporterParams{Objects: objects, Signer: &fakeSigner{}, Bucket: "answers"})
	require.NoError(t, err)

	_, err = e.ExportCSV(context.Background(), "req-1", suppliers())
	assert.ErrorIs(t, err, objects.err)

	_, err = e.ExportCSV(context.Background(), "req-1", nil)
	assert.Error(t, err)
	_, err = e.ExportCSV(context.Background(), "", suppliers())
	assert.Error(t, err)
}
