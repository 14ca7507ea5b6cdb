// Package aggregator computes episode totals from the linked clinical
// services. Summing happens at full precision; two decimal rounding is
// applied once at the end, never per line, to avoid cumulative drift.
package aggregator

import (
	"context"

	"github.com/pborman/uuid"
	"github.com/saludtotal/rips-app/ripsapp/adapter"
	"github.com/saludtotal/rips-app/ripsapp/constants"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
)

// Line is one episode service resolved to billable fields and cost.
type Line struct {
	adapter.ServiceFields

	ServiceID uuid.UUID
	Kind      models.ServiceKind

	// Cost is quantity times unit cost at full precision.
	Cost decimal.Decimal
}

type Aggregator struct {
	registry *adapter.Registry
	r        models.EpisodeRepository
}

func New(registry *adapter.Registry, r models.EpisodeRepository) *Aggregator {
	return &Aggregator{registry: registry, r: r}
}

// LineBreakdown resolves every episode service through the adapter registry.
//
// A stale reference is a hard error while the episode is active. Once the
// episode is closed, the cached cost snapshot taken at link time stands in
// for the purged record, so already-billed episodes stay reproducible.
func (a *Aggregator) LineBreakdown(ctx context.Context, episode *models.AttentionEpisode) ([]Line, error) {
	services, err := a.r.GetEpisodeServices(ctx, episode.ID)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(services))
	for _, svc := range services {
		fields, err := a.registry.Extract(ctx, svc.Kind, svc.ServiceRef)
		if err != nil {
			if _, stale := err.(*ripserrors.StaleReferenceError); stale && episodeFrozen(episode) && svc.CostCached {
				lines = append(lines, snapshotLine(svc))
				continue
			}
			return nil, err
		}

		lines = append(lines, Line{
			ServiceFields: fields,
			ServiceID:     svc.ID,
			Kind:          svc.Kind,
			Cost:          fields.UnitCost.Mul(fields.Quantity),
		})
	}

	return lines, nil
}

// Compute returns the episode total rounded to two decimals.
func (a *Aggregator) Compute(ctx context.Context, episode *models.AttentionEpisode) (decimal.Decimal, error) {
	lines, err := a.LineBreakdown(ctx, episode)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Cost)
	}

	return total.Round(2), nil
}

func episodeFrozen(episode *models.AttentionEpisode) bool {
	return episode.Status == models.EpisodeStatusClosed || episode.Status == models.EpisodeStatusBilled
}

// snapshotLine rebuilds a line from the cached cost when the source record is
// gone. The extraction defaults still apply so the line stays encodable.
func snapshotLine(svc *models.EpisodeService) Line {
	return Line{
		ServiceID: svc.ID,
		ServiceFields: adapter.ServiceFields{
			Code:          constants.GenericServiceCode,
			Name:          string(svc.Kind),
			Date:          svc.AddedAt,
			Quantity:      decimal.NewFromInt(1),
			UnitCost:      svc.ServiceCost,
			DiagnosisCode: constants.DefaultDiagnosis,
		},
		Kind: svc.Kind,
		Cost: svc.ServiceCost,
	}
}
