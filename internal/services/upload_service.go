package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/paperlens-backend/internal/data/repos"
	types "github.com/yungbote/paperlens-backend/internal/domain"
	"github.com/yungbote/paperlens-backend/internal/pkg/dbctx"
	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	"github.com/yungbote/paperlens-backend/internal/platform/logger"
	"github.com/yungbote/paperlens-backend/internal/platform/objectstore"
	"github.com/yungbote/paperlens-backend/internal/platform/pdftext"
)

const DefaultMaxUploadBytes int64 = 50 << 20

type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type UploadResult struct {
	Paper    *types.Paper
	Analysis *types.Analysis
}

type UploadService interface {
	// Upload stores a PDF and creates its paper and a fresh analysis in
	// status uploaded.
	Upload(dbc dbctx.Context, in UploadInput) (*UploadResult, error)
}

type uploadService struct {
	db       *gorm.DB
	log      *logger.Logger
	store    objectstore.Store
	papers   repos.PaperRepo
	analyses repos.AnalysisRepo
	text     *pdftext.Extractor
	maxBytes int64
}

func NewUploadService(db *gorm.DB, baseLog *logger.Logger, store objectstore.Store, r repos.Repos, maxBytes int64) UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	log := baseLog.With("service", "UploadService")
	return &uploadService{
		db:       db,
		log:      log,
		store:    store,
		papers:   r.Paper,
		analyses: r.Analysis,
		// Title guessing only needs the embedded text layer.
		text:     pdftext.NewExtractor(log, nil),
		maxBytes: maxBytes,
	}
}

func (s *uploadService) Upload(dbc dbctx.Context, in UploadInput) (*UploadResult, error) {
	name := filepath.Base(strings.TrimSpace(in.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, errkind.Validationf("upload", "no file selected")
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, errkind.Validationf("upload", "invalid file type, only PDF files are allowed")
	}
	if ct := strings.ToLower(strings.TrimSpace(in.ContentType)); ct != "" && ct != "application/pdf" && ct != "application/octet-stream" {
		return nil, errkind.Validationf("upload", "invalid content type %q, only PDF files are allowed", in.ContentType)
	}
	if in.Body == nil {
		return nil, errkind.Validationf("upload", "empty file")
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, errkind.Validationf("upload", "file exceeds %d MB", s.maxBytes>>20)
	}
	if !pdftext.IsPDF(data) {
		return nil, errkind.Validationf("upload", "file is not a PDF")
	}

	paper := &types.Paper{
		ID:        uuid.New(),
		Filename:  name,
		MimeType:  "application/pdf",
		SizeBytes: int64(len(data)),
		SHA256:    digest(data),
	}
	paper.StorageKey = fmt.Sprintf("papers/%s.pdf", paper.ID)
	s.describe(dbc.Ctx, paper, data)

	if err := s.store.Put(dbc.Ctx, paper.StorageKey, bytes.NewReader(data), paper.MimeType); err != nil {
		return nil, fmt.Errorf("store paper: %w", err)
	}

	analysis := &types.Analysis{
		ID:       uuid.New(),
		PaperID:  paper.ID,
		Status:   types.AnalysisUploaded,
		Progress: types.ProgressFloorOf(types.AnalysisUploaded),
	}
	err = dbctx.InTx(dbc, s.db, func(inner dbctx.Context) error {
		if err := s.papers.Create(inner, paper); err != nil {
			return fmt.Errorf("create paper: %w", err)
		}
		if err := s.analyses.Create(inner, analysis); err != nil {
			return fmt.Errorf("create analysis: %w", err)
		}
		return nil
	})
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(dbc.Ctx), paper.StorageKey); derr != nil {
			s.log.Warn("orphaned paper object", "storage_key", paper.StorageKey, "error", derr)
		}
		return nil, err
	}

	s.log.Info("paper uploaded",
		"paper_id", paper.ID,
		"analysis_id", analysis.ID,
		"size_bytes", paper.SizeBytes,
		"page_count", paper.PageCount,
	)
	return &UploadResult{Paper: paper, Analysis: analysis}, nil
}

// describe fills title, authors and page count. A PDF that can't be read
// here is still accepted; the reader stage reports the parse failure.
func (s *uploadService) describe(ctx context.Context, paper *types.Paper, data []byte) {
	meta, err := pdftext.Probe(data)
	if err != nil {
		s.log.Warn("pdf probe failed", "paper_id", paper.ID, "error", err)
	}
	paper.PageCount = meta.PageCount
	paper.Title = meta.Title
	paper.Authors = mustJSON(nonNil(meta.Authors))
	if paper.Title != "" || err != nil {
		return
	}
	res, err := s.text.Extract(ctx, data)
	if err != nil {
		s.log.Debug("no text for title guess", "paper_id", paper.ID, "error", err)
		return
	}
	paper.Title = pdftext.GuessTitle(res.Text)
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
