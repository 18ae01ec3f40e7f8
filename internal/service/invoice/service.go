package invoice

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/repository"
	apperrors "github.com/jwalitptl/cupping-console/pkg/errors"
	"github.com/jwalitptl/cupping-console/pkg/logger"
	"github.com/jwalitptl/cupping-console/pkg/metrics"
)

type Service struct {
	repos   repository.Repositories
	synth   *Synthesizer
	encoder ImageEncoder
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(repos repository.Repositories, synth *Synthesizer, encoder ImageEncoder, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{repos: repos, synth: synth, encoder: encoder, logger: log, metrics: m}
}

// Rendered is an invoice with its optional QR image.
type Rendered struct {
	*model.Invoice
	QRImage []byte `json:"qr_image,omitempty"`
}

func (s *Service) ForPayment(ctx context.Context, paymentID uuid.UUID) (*model.Invoice, error) {
	p, err := s.repos.Payments().Get(ctx, paymentID)
	if err != nil {
		return nil, apperrors.WrapPersistence("load payment", err)
	}
	inv, err := s.synth.Synthesize(p)
	if err != nil {
		return nil, err
	}
	s.metrics.InvoicesSynthesized.Inc()
	return inv, nil
}

// Render synthesizes the invoice and attaches a QR image. An encoder
// failure is logged and the invoice is returned without the image.
func (s *Service) Render(ctx context.Context, paymentID uuid.UUID) (*Rendered, error) {
	inv, err := s.ForPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	out := &Rendered{Invoice: inv}
	img, err := s.encoder.Encode(inv.Payload)
	if err != nil {
		s.metrics.QREncodeFailures.Inc()
		s.logger.Warn("Invoice QR image unavailable",
			"payment_id", paymentID.String(),
			"invoice_number", inv.InvoiceNumber,
			"error", err.Error())
		return out, nil
	}
	out.QRImage = img
	return out, nil
}

// QRImage returns only the PNG for the invoice of paymentID.
func (s *Service) QRImage(ctx context.Context, paymentID uuid.UUID) ([]byte, error) {
	inv, err := s.ForPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	img, err := s.encoder.Encode(inv.Payload)
	if err != nil {
		s.metrics.QREncodeFailures.Inc()
		return nil, apperrors.Internal(err)
	}
	return img, nil
}
