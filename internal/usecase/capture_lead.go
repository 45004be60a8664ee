package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xavierca1/diag-leads/internal/entity"
	"github.com/xavierca1/diag-leads/internal/geo"
)

// CaptureLeadUseCase recebe o formulário de contato do site.
type CaptureLeadUseCase struct {
	Repo          entity.LeadRepositoryInterface
	Resolver      GeoResolver
	Notifier      Notifier
	DefaultRegion string

	logger *zap.Logger
	now    func() time.Time
}

func NewCaptureLeadUseCase(
	repo entity.LeadRepositoryInterface,
	resolver GeoResolver,
	notifier Notifier,
	defaultRegion string,
) *CaptureLeadUseCase {
	if defaultRegion == "" {
		defaultRegion = geo.DefaultRegion
	}
	return &CaptureLeadUseCase{
		Repo:          repo,
		Resolver:      resolver,
		Notifier:      notifier,
		DefaultRegion: defaultRegion,
		logger:        zap.L().With(zap.String("component", "capture_lead")),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, input CaptureLeadInput) (*entity.Lead, error) {
	if err := foldValidationErrors(ValidateCaptureLeadInput(input)); err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(input.Phone)
	whatsapp := strings.TrimSpace(input.WhatsApp)

	// O perfil geográfico sai do número cru: o DDD some quando o número vira E.164 de outro país.
	geoSource := phone
	if geoSource == "" {
		geoSource = whatsapp
	}
	profile := uc.Resolver.Resolve(geoSource)

	now := uc.now()
	lead := &entity.Lead{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     geo.NormalizeE164(phone, uc.DefaultRegion),
		WhatsApp:  geo.NormalizeE164(whatsapp, uc.DefaultRegion),
		Company:   strings.TrimSpace(input.Company),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Country:   strings.TrimSpace(input.Country),
		Message:   strings.TrimSpace(input.Message),
		Source:    strings.TrimSpace(input.Source),
		Status:    entity.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	lead.ApplyGeo(profile)

	if err := uc.Repo.Create(ctx, lead); err != nil {
		uc.logger.Error("erro ao salvar lead", zap.String("email", lead.Email), zap.Error(err))
		return nil, &TechnicalError{Code: CodeDatabase, Message: "erro ao salvar lead", Err: err}
	}

	uc.logger.Info("lead capturado",
		zap.String("lead_id", lead.ID),
		zap.String("source", lead.Source),
		zap.String("estado", lead.Estado),
		zap.String("pais", lead.Pais),
	)

	if uc.Notifier != nil {
		event := entity.LeadEvent{
			Type:       entity.EventLeadCaptured,
			LeadID:     lead.ID,
			NewStatus:  lead.Status,
			Lead:       lead,
			OccurredAt: now,
		}
		if err := uc.Notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
			uc.logger.Warn("falha ao publicar lead capturado (ignorada)", zap.String("lead_id", lead.ID), zap.Error(err))
		}
	}

	return lead, nil
}
