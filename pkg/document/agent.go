package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/clinical-assistant/pkg/common/kafka"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/logger"
	"github.com/synaptica-ai/clinical-assistant/pkg/common/models"
)

const DefaultDocumentType = "Medical Report"

type Repository interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	ListDocuments(ctx context.Context, patientID uint) ([]models.Document, error)
}

type Agent struct {
	parser *Parser
	repo   Repository
	events kafka.Publisher
}

func NewAgent(parser *Parser, repo Repository, events kafka.Publisher) *Agent {
	return &Agent{parser: parser, repo: repo, events: events}
}

func (a *Agent) Parse(ctx context.Context, path, filename string) string {
	return a.parser.Parse(ctx, path, filename)
}

type StoreInput struct {
	PatientID    uint
	Filename     string
	FilePath     string
	ParsedText   string
	DocumentType string
}

// Store persists the document. Empty text is stored as null; parse
// diagnostics are stored as they are.
func (a *Agent) Store(ctx context.Context, in StoreInput) (*models.Document, error) {
	docType := strings.TrimSpace(in.DocumentType)
	if docType == "" {
		docType = DefaultDocumentType
	}

	doc := &models.Document{
		PatientID:    in.PatientID,
		Filename:     in.Filename,
		FilePath:     in.FilePath,
		DocumentType: docType,
		UploadedAt:   time.Now().UTC(),
	}
	if in.ParsedText != "" {
		text := in.ParsedText
		doc.ParsedText = &text
	}

	if err := a.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("persisting document: %w", err)
	}

	logger.ForPatient("document", in.PatientID).WithFields(map[string]interface{}{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"parse_error": IsParseFailure(in.ParsedText),
	}).Info("document stored")
	kafka.Notify(ctx, a.events, kafka.EventDocumentUploaded, in.PatientID, map[string]interface{}{
		"document_id":   doc.ID,
		"filename":      doc.Filename,
		"document_type": doc.DocumentType,
		"parse_failed":  IsParseFailure(in.ParsedText),
	})
	return doc, nil
}

// Ingest parses the stored file and records the result in one step.
func (a *Agent) Ingest(ctx context.Context, patientID uint, filename, path, docType string) (*models.Document, error) {
	text := a.Parse(ctx, path, filename)
	return a.Store(ctx, StoreInput{
		PatientID:    patientID,
		Filename:     filename,
		FilePath:     path,
		ParsedText:   text,
		DocumentType: docType,
	})
}

func (a *Agent) List(ctx context.Context, patientID uint) ([]models.Document, error) {
	return a.repo.ListDocuments(ctx, patientID)
}
