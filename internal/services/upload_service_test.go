package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext/pdftest"
)

func newUploadService(t *testing.T, e *env, maxBytes int64) (UploadService, *objectstore.Local) {
	t.Helper()
	store, err := objectstore.NewLocal(t.TempDir())
	require.NoError(t, err)
	return NewUploadService(e.db, e.log, store, e.repos, maxBytes), store
}

func TestUploadStoresPaperAndAnalysis(t *testing.T) {
	e := newEnv(t)
	svc, store := newUploadService(t, e, 0)
	ctx := context.Background()
	data := pdftest.Build("Sparse Attention", "Sparse Attention for Long Documents\nWe study transformers.", "Results.")

	res, err := svc.Upload(dbctx.Context{Ctx: ctx}, UploadInput{
		Filename:    "../../sparse.PDF",
		ContentType: "application/pdf",
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)

	assert.Equal(t, "sparse.PDF", res.Paper.Filename)
	assert.Equal(t, "Sparse Attention", res.Paper.Title)
	assert.Equal(t, 2, res.Paper.PageCount)
	assert.Equal(t, int64(len(data)), res.Paper.SizeBytes)
	assert.Len(t, res.Paper.SHA256, 64)
	assert.Equal(t, types.AnalysisUploaded, res.Analysis.Status)
	assert.Equal(t, res.Paper.ID, res.Analysis.PaperID)

	stored, err := objectstore.ReadAll(ctx, store, res.Paper.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	got, err := e.repos.Analysis.GetByID(dbctx.Context{Ctx: ctx}, res.Analysis.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisUploaded, got.Status)
}

func TestUploadGuessesTitleFromText(t *testing.T) {
	e := newEnv(t)
	svc, _ := newUploadService(t, e, 0)
	data := pdftest.Build("", "Graph Neural Networks at Scale\nWe study message passing.")

	res, err := svc.Upload(dbctx.Context{Ctx: context.Background()}, UploadInput{Filename: "gnn.pdf", Body: bytes.NewReader(data)})
	require.NoError(t, err)
	assert.Contains(t, res.Paper.Title, "Graph Neural Networks")
}

func TestUploadAcceptsScannedPDF(t *testing.T) {
	e := newEnv(t)
	svc, _ := newUploadService(t, e, 0)
	data := pdftest.Build("", "")

	res, err := svc.Upload(dbctx.Context{Ctx: context.Background()}, UploadInput{Filename: "scan.pdf", Body: bytes.NewReader(data)})
	require.NoError(t, err, "parse failures surface in the reader stage")
	assert.Equal(t, 1, res.Paper.PageCount)
	assert.Empty(t, res.Paper.Title)
}

func TestUploadValidation(t *testing.T) {
	e := newEnv(t)
	svc, store := newUploadService(t, e, 1024)
	pdf := pdftest.Build("T", "body")

	cases := []struct {
		name string
		in   UploadInput
	}{
		{"no filename", UploadInput{Filename: "", Body: bytes.NewReader(pdf)}},
		{"wrong extension", UploadInput{Filename: "paper.docx", Body: bytes.NewReader(pdf)}},
		{"wrong content type", UploadInput{Filename: "paper.pdf", ContentType: "image/png", Body: bytes.NewReader(pdf)}},
		{"not a pdf", UploadInput{Filename: "paper.pdf", Body: strings.NewReader("hello world")}},
		{"too large", UploadInput{Filename: "paper.pdf", Body: bytes.NewReader(append([]byte("%PDF-1.4\n"), make([]byte, 2048)...))}},
		{"no body", UploadInput{Filename: "paper.pdf"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(dbctx.Context{Ctx: context.Background()}, tc.in)
			require.Error(t, err)
			assert.Equal(t, errkind.KindValidation, errkind.KindOf(err))
		})
	}

	keys, err := store.List(context.Background(), "papers/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
