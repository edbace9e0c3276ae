package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/oficios-api/internal/models"
	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
	"github.com/noah-isme/oficios-api/pkg/export"
)

type letterRenderer interface {
	Render(letter export.Letter) ([]byte, error)
}

// LetterConfig carries the fixed wording printed on every letter.
type LetterConfig struct {
	HeaderLines    []string
	City           string
	OfficeCode     string
	Motto          string
	AnalystTitle   string
	ReviewerTitle  string
	SignatureOrgan string
}

// LetterService renders the PDF letter of a response.
type LetterService struct {
	reads    Stores
	renderer letterRenderer
	cfg      LetterConfig
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewLetterService constructs the service.
func NewLetterService(reads Stores, renderer letterRenderer, cfg LetterConfig, logger *zap.Logger) *LetterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewLetterRenderer()
	}
	return &LetterService{reads: reads, renderer: renderer, cfg: cfg, logger: logger}
}

// WithMetrics records render latency and size on m.
func (s *LetterService) WithMetrics(m *MetricsService) *LetterService {
	s.metrics = m
	return s
}

// Render loads the response and returns the file name and PDF bytes. Any
// missing relation the letter prints fails the call before rendering.
func (s *LetterService) Render(ctx context.Context, responseID string) (string, []byte, error) {
	start := time.Now()
	detail, err := loadDetail(ctx, s.reads, responseID)
	if err != nil {
		return "", nil, err
	}
	letter, err := s.Compose(detail)
	if err != nil {
		return "", nil, err
	}
	data, err := s.renderer.Render(letter)
	s.metrics.ObserveLetter(time.Since(start), len(data), err)
	if err != nil {
		s.logger.Error("render letter failed", zap.String("response_id", responseID), zap.Error(err))
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render letter")
	}
	s.logger.Info("letter rendered", zap.String("response_id", responseID), zap.Int("bytes", len(data)))
	return export.SafeFilename(detail.Response.Number), data, nil
}

// Compose builds the letter content from a hydrated response.
func (s *LetterService) Compose(detail *models.ResponseDetail) (export.Letter, error) {
	if err := requireRelations(detail); err != nil {
		return export.Letter{}, err
	}
	response := detail.Response
	request := detail.Request

	recipient := []string{"Señor(a)", detail.Position.Name, detail.Agent.FullName(), detail.Institution.Name}
	if detail.Unit != nil {
		recipient = append(recipient, detail.Unit.Name)
	}
	recipient = append(recipient, "Su oficina.")

	var intro strings.Builder
	intro.WriteString("Por medio de la presente me dirijo a usted muy cordialmente, deseando éxitos en el desempeño de sus funciones y a la vez dar respuesta a la solicitud")
	if request.TrackingNumber != nil {
		fmt.Fprintf(&intro, " con número de oficio %s", *request.TrackingNumber)
	}
	fmt.Fprintf(&intro, " en fecha %s, donde se solicita información de", export.SpanishLongDate(request.ReceivedAt))

	first := export.Paragraph{Number: "1."}
	if len(detail.Results) == 1 {
		person := detail.Results[0].Person
		fmt.Fprintf(&intro, " la persona %s, con número de identidad %s.", person.FullName(), person.NationalID)
	} else {
		intro.WriteString(" las siguientes personas:")
		for _, result := range detail.Results {
			first.Bullets = append(first.Bullets, fmt.Sprintf("%s, DNI: %s", result.Person.FullName(), result.Person.NationalID))
		}
	}
	first.Text = intro.String()

	table := export.Table{
		Headers: []string{"Nombre Completo", "DNI", "Estado", "Observaciones"},
		Widths:  []float64{0.35, 0.20, 0.15, 0.30},
		Rows:    make([][]string, len(detail.Results)),
	}
	for i, result := range detail.Results {
		table.Rows[i] = []string{result.Person.FullName(), result.Person.NationalID, statusLabel(result.Found), observationText(result)}
	}

	closing := make([]export.Paragraph, 0, 2)
	if response.Content != nil && strings.TrimSpace(*response.Content) != "" {
		closing = append(closing, export.Paragraph{Text: *response.Content})
	}
	closing = append(closing, export.Paragraph{Number: "3.", Text: "Me suscribo de usted muy atentamente."})

	return export.Letter{
		HeaderLines: s.cfg.HeaderLines,
		DateLine:    fmt.Sprintf("%s, %s.", s.cfg.City, export.SpanishLongDate(response.ResponseDate)),
		Reference:   fmt.Sprintf("OFICIO %s-%s.", s.cfg.OfficeCode, response.Number),
		Recipient:   recipient,
		Paragraphs: []export.Paragraph{
			first,
			{Number: "2.", Text: "Referente a lo solicitado se informa:"},
		},
		Table:   table,
		Closing: closing,
		Motto:   s.cfg.Motto,
		Signatures: []export.Signature{
			{Name: detail.Analyst.Name, Lines: signatureLines(s.cfg.AnalystTitle, s.cfg.SignatureOrgan)},
			{Name: detail.Reviewer.Name, Lines: signatureLines(s.cfg.ReviewerTitle, s.cfg.SignatureOrgan)},
		},
	}, nil
}

func requireRelations(detail *models.ResponseDetail) error {
	missing := func(what string) error {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s of response %s not found", what, detail.Response.Number))
	}
	switch {
	case detail.Institution == nil:
		return missing("institution")
	case detail.Agent == nil:
		return missing("requesting agent")
	case detail.Position == nil:
		return missing("agent position")
	case detail.Analyst == nil:
		return missing("analyst")
	case detail.Reviewer == nil:
		return missing("reviewer")
	case detail.Request.UnitID != nil && detail.Unit == nil:
		return missing("unit")
	}
	if len(detail.Results) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "response has no cross reference results")
	}
	for _, result := range detail.Results {
		if result.Person == nil {
			return missing("requested person " + result.RequestedPersonID)
		}
	}
	return nil
}

func statusLabel(found bool) string {
	if found {
		return "REGISTRADO"
	}
	return "NO REGISTRADO"
}

func observationText(result models.ResolvedResult) string {
	if !result.Found || result.Snapshot.Empty() {
		return "Sin antecedentes en base de datos."
	}
	parts := make([]string, 0, 2)
	if v := result.Snapshot.CriminalGroup; v != nil {
		parts = append(parts, fmt.Sprintf("Grupo: %s.", *v))
	}
	if v := result.Snapshot.CriminalStructure; v != nil {
		parts = append(parts, fmt.Sprintf("Estructura: %s.", *v))
	}
	if len(parts) == 0 {
		return "Sin antecedentes en base de datos."
	}
	return strings.Join(parts, " ")
}

func signatureLines(title, organ string) []string {
	lines := make([]string, 0, 2)
	for _, v := range []string{title, organ} {
		if v != "" {
			lines = append(lines, v)
		}
	}
	return lines
}
