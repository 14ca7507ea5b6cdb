package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/pborman/uuid"
	"github.com/saludtotal/rips-app/ripsapp/adapter"
	ripserrors "github.com/saludtotal/rips-app/ripsapp/errors"
	"github.com/saludtotal/rips-app/ripsapp/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type fakeSource struct {
	records map[string]*adapter.RawRecord
}

func (f *fakeSource) Lookup(ctx context.Context, kind models.ServiceKind, ref string) (*adapter.RawRecord, error) {
	record, ok := f.records[ref]
	if !ok {
		return nil, adapter.ErrRecordNotFound
	}
	return record, nil
}

type AggregatorTestSuite struct {
	suite.Suite
	source *fakeSource
	repo   *models.MockRepository
	agg    *Aggregator
}

func (s *AggregatorTestSuite) SetupTest() {
	s.source = &fakeSource{records: make(map[string]*adapter.RawRecord)}
	s.repo = &models.MockRepository{}
	s.agg = New(adapter.NewRegistry(s.source), s.repo)
}

func (s *AggregatorTestSuite) episode(status models.EpisodeStatus) *models.AttentionEpisode {
	return &models.AttentionEpisode{
		ID:            uuid.NewRandom(),
		EpisodeNumber: "EP-2025-000001",
		Status:        status,
	}
}

func (s *AggregatorTestSuite) service(episode *models.AttentionEpisode, kind models.ServiceKind, ref, cost string) *models.EpisodeService {
	return &models.EpisodeService{
		ID:          uuid.NewRandom(),
		EpisodeID:   episode.ID,
		Kind:        kind,
		ServiceRef:  ref,
		ServiceCost: decimal.RequireFromString(cost),
		CostCached:  true,
		AddedAt:     time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}
}

func (s *AggregatorTestSuite) TestLineBreakdown() {
	episode := s.episode(models.EpisodeStatusActive)
	services := []*models.EpisodeService{
		s.service(episode, models.ServiceKindConsultation, "101", "65000"),
		s.service(episode, models.ServiceKindMedication, "202", "10000"),
	}
	s.repo.On("GetEpisodeServices", mock.Anything, episode.ID).Return(services, nil)

	s.source.records["101"] = &adapter.RawRecord{TotalAmount: decimal.RequireFromString("65000")}
	s.source.records["202"] = &adapter.RawRecord{
		Quantity: decimal.NewFromInt(4), TotalAmount: decimal.RequireFromString("10000")}

	lines, err := s.agg.LineBreakdown(context.Background(), episode)
	s.NoError(err)
	s.Len(lines, 2)
	s.Equal(services[0].ID, lines[0].ServiceID)
	s.True(lines[0].Cost.Equal(decimal.RequireFromString("65000")))
	s.True(lines[1].Cost.Equal(decimal.RequireFromString("10000")))
}

func (s *AggregatorTestSuite) TestLineBreakdownStaleOnActiveEpisode() {
	episode := s.episode(models.EpisodeStatusActive)
	services := []*models.EpisodeService{
		s.service(episode, models.ServiceKindProcedure, "gone", "320000"),
	}
	s.repo.On("GetEpisodeServices", mock.Anything, episode.ID).Return(services, nil)

	_, err := s.agg.LineBreakdown(context.Background(), episode)
	var stale *ripserrors.StaleReferenceError
	s.ErrorAs(err, &stale)
}

func (s *AggregatorTestSuite) TestLineBreakdownStaleOnClosedEpisodeUsesSnapshot() {
	episode := s.episode(models.EpisodeStatusClosed)
	services := []*models.EpisodeService{
		s.service(episode, models.ServiceKindProcedure, "gone", "320000"),
	}
	s.repo.On("GetEpisodeServices", mock.Anything, episode.ID).Return(services, nil)

	lines, err := s.agg.LineBreakdown(context.Background(), episode)
	s.NoError(err)
	s.Len(lines, 1)
	s.True(lines[0].Cost.Equal(decimal.RequireFromString("320000")))
	s.Equal("SERV001", lines[0].Code)
	s.Equal("procedure", lines[0].Name)
}

func (s *AggregatorTestSuite) TestLineBreakdownStaleWithoutSnapshotFails() {
	episode := s.episode(models.EpisodeStatusClosed)
	svc := s.service(episode, models.ServiceKindProcedure, "gone", "320000")
	svc.CostCached = false
	s.repo.On("GetEpisodeServices", mock.Anything, episode.ID).Return([]*models.EpisodeService{svc}, nil)

	_, err := s.agg.LineBreakdown(context.Background(), episode)
	var stale *ripserrors.StaleReferenceError
	s.ErrorAs(err, &stale)
}

func (s *AggregatorTestSuite) TestLineBreakdownStaleZeroCostSnapshot() {
	episode := s.episode(models.EpisodeStatusClosed)
	services := []*models.EpisodeService{
		s.service(episode, models.ServiceKindOther, "gone", "0"),
	}
	s.repo.On("GetEpisodeServices", mock.Anything, episode.ID).Return(services, nil)

	lines, err := s.agg.LineBreakdown(context.Background(), episode)
	s.NoError(err)
	s.Len(lines, 1)
	s.True(lines[0].Cost.IsZero())
}

func (s *AggregatorTestSuite) TestComputeRoundsOnceAtTheEnd() {
	episode := s.episode(models.EpisodeStatusActive)
	services := []*models.EpisodeService{
		s.service(episode, models.ServiceKindOther, "a", "0"),
		s.service(episode, models.ServiceKindOther, "b", "0"),
		s.service(episode, models.ServiceKindOther, "c", "0"),
	}
	s.repo.On("GetEpisodeServices", mock.Anything, episode.ID).Return(services, nil)

	// Three lines of 10.005 each. Summed at full precision they make 30.015,
	// which rounds to 30.02; rounding per line first would yield 30.03.
	for _, ref := range []string{"a", "b", "c"} {
		s.source.records[ref] = &adapter.RawRecord{TotalAmount: decimal.RequireFromString("10.005")}
	}

	total, err := s.agg.Compute(context.Background(), episode)
	s.NoError(err)
	s.True(total.Equal(decimal.RequireFromString("30.02")), "got %s", total)
}

func TestAggregatorTestSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}
