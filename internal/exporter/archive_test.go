package exporter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorageService is a mock implementation of gcsuploader.StorageService for testing.
type MockStorageService struct {
	UploadBytesFunc func(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error)
	Objects         []string
}

func (m *MockStorageService) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error) {
	m.Objects = append(m.Objects, objectName)
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, bucketName, objectName, contentType, data)
	}
	return "gs://" + bucketName + "/" + objectName, nil
}

func TestArchivingExporter_Export(t *testing.T) {
	store := &MockStorageService{}
	e := NewArchivingExporter(NewPDFExporter(""), store, "reports-bucket", "/reports/")

	doc, err := e.Export(context.Background(), januaryReport())
	require.NoError(t, err)

	require.Len(t, store.Objects, 1)
	object := store.Objects[0]
	assert.True(t, strings.HasPrefix(object, "reports/"), object)
	assert.True(t, strings.HasSuffix(object, "/relatorio-2024-01.pdf"), object)
	assert.NotContains(t, object, "alice")
	assert.Equal(t, "gs://reports-bucket/"+object, doc.Location)
}

func TestArchivingExporter_ObjectNameIsStablePerRecipient(t *testing.T) {
	e := NewArchivingExporter(nil, nil, "b", "reports")

	a := e.ObjectName("Alice@Example.com", "x.pdf")
	b := e.ObjectName("alice@example.com", "x.pdf")
	c := e.ObjectName("bob@example.com", "x.pdf")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, strings.Split(a, "/")[1], 16)
}

func TestArchivingExporter_UploadFailure(t *testing.T) {
	boom := errors.New("bucket unavailable")
	store := &MockStorageService{
		UploadBytesFunc: func(context.Context, string, string, string, []byte) (string, error) {
			return "", boom
		},
	}
	e := NewArchivingExporter(NewPDFExporter(""), store, "b", "reports")

	doc, err := e.Export(context.Background(), januaryReport())
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, boom)
}

func TestArchivingExporter_RenderFailureSkipsUpload(t *testing.T) {
	store := &MockStorageService{}
	e := NewArchivingExporter(NewPDFExporter(""), store, "b", "reports")

	_, err := e.Export(context.Background(), &report.Report{})
	assert.ErrorIs(t, err, ErrMalformedReport)
	assert.Empty(t, store.Objects)
}
