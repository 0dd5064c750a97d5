package usecase

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/ports"
)

var pdfMagic = []byte("%PDF-")

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores a prospectus under a fresh id and requests indexing.
// Bodies without the PDF header are rejected before anything is stored.
func (uc *IngestDocumentUseCase) Upload(ctx context.Context, name string, body io.Reader) (*domain.Document, error) {
	pdf, err := requirePDF(body)
	if err != nil {
		return nil, err
	}
	doc, err := uc.Register(ctx, uuid.NewString(), name, pdf)
	if err != nil {
		return nil, err
	}
	if uc.queue == nil {
		return doc, nil
	}
	if err := uc.queue.PublishIndexRequested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish index request: %w", err)
	}
	return doc, nil
}

// Register stores the file and creates the document row under the given id.
// An id that already exists is returned as is without touching storage. The
// body is not inspected: a file that will not open is recorded as
// unindexable when it is processed.
func (uc *IngestDocumentUseCase) Register(ctx context.Context, id, name string, body io.Reader) (*domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register document", errors.New("document id is empty"))
	}

	existing, err := uc.repo.GetByID(ctx, id)
	switch {
	case err == nil:
		return existing, nil
	case !domain.IsKind(err, domain.ErrDocumentNotFound):
		return nil, fmt.Errorf("lookup document: %w", err)
	}

	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register document", errors.New("empty body"))
	}

	storageKey := id + ".pdf"
	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:            id,
		Name:          displayName(name, id),
		StoragePath:   storageKey,
		Status:        domain.StatusUploaded,
		SectionsFound: []domain.SectionTag{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}
	return doc, nil
}

func requirePDF(body io.Reader) (io.Reader, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("empty body"))
	}
	br := bufio.NewReader(body)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("body is not a PDF"))
	}
	return br, nil
}

// displayName strips directories and the .pdf extension from an uploaded name.
func displayName(name, fallback string) string {
	base := strings.TrimSpace(filepath.Base(strings.TrimSpace(name)))
	if strings.EqualFold(filepath.Ext(base), ".pdf") {
		base = base[:len(base)-len(filepath.Ext(base))]
	}
	base = strings.TrimSpace(strings.NewReplacer("_", " ").Replace(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}

// DocumentIDFromFilename derives a stable document id from a PDF file name,
// e.g. "Acme Foods DRHP.pdf" -> "acme-foods-drhp".
func DocumentIDFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
