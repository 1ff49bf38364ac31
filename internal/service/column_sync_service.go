package service

import (
	"context"
	"fmt"

	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
)

// SyncReport lists what a sync run saw and did. Errors are keyed by code.
type SyncReport struct {
	Detected []string          `json:"detected"`
	Created  []string          `json:"created"`
	Existing []string          `json:"existing"`
	Errors   map[string]string `json:"errors"`
}

// ColumnSyncService infers trainings from the legacy employee table and
// creates the missing TrainingDefinitions. It never deletes or edits one.
type ColumnSyncService interface {
	DetectTrainingCodes(ctx context.Context) ([]string, error)
	Sync(ctx context.Context) (*SyncReport, error)
	// RefreshWhitelist reloads the allowed codes from the definitions table.
	RefreshWhitelist(ctx context.Context) error
}

type columnSyncService struct {
	catalog               repository.ColumnCatalog
	columns               repository.LegacyColumns
	definitionRepo        repository.TrainingDefinitionRepository
	whitelist             *repository.CodeWhitelist
	defaultValidityMonths int
}

func NewColumnSyncService(
	catalog repository.ColumnCatalog,
	columns repository.LegacyColumns,
	definitionRepo repository.TrainingDefinitionRepository,
	whitelist *repository.CodeWhitelist,
	defaultValidityMonths int,
) ColumnSyncService {
	if defaultValidityMonths <= 0 {
		defaultValidityMonths = 12
	}
	return &columnSyncService{
		catalog:               catalog,
		columns:               columns,
		definitionRepo:        definitionRepo,
		whitelist:             whitelist,
		defaultValidityMonths: defaultValidityMonths,
	}
}

func (s *columnSyncService) DetectTrainingCodes(ctx context.Context) ([]string, error) {
	names, err := s.catalog.ColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	codes, dropped := s.columns.DetectCodes(names)
	if len(dropped) > 0 {
		log.Debug().Strs("codes", dropped).Msg("ColumnSync: ignoring codes with an incomplete column pair")
	}
	return codes, nil
}

func (s *columnSyncService) Sync(ctx context.Context) (*SyncReport, error) {
	detected, err := s.DetectTrainingCodes(ctx)
	if err != nil {
		log.Error().Err(err).Msg("ColumnSync: failed to detect training codes")
		return nil, fmt.Errorf("failed to detect training codes: %w", err)
	}

	known, err := s.definitionRepo.FindAllCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load training definitions: %w", err)
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, c := range known {
		knownSet[c] = struct{}{}
	}

	report := &SyncReport{
		Detected: detected,
		Created:  []string{},
		Existing: []string{},
		Errors:   map[string]string{},
	}
	for _, code := range detected {
		if _, ok := knownSet[code]; ok {
			report.Existing = append(report.Existing, code)
			continue
		}
		def := &model.TrainingDefinition{
			Code:           code,
			Name:           code,
			ValidityMonths: s.defaultValidityMonths,
		}
		if err := s.definitionRepo.Create(ctx, def); err != nil {
			log.Warn().Err(err).Str("code", code).Msg("ColumnSync: failed to create training definition")
			report.Errors[code] = err.Error()
			continue
		}
		report.Created = append(report.Created, code)
	}

	if err := s.RefreshWhitelist(ctx); err != nil {
		return report, err
	}

	log.Info().Int("detected", len(report.Detected)).Int("created", len(report.Created)).
		Int("existing", len(report.Existing)).Int("errors", len(report.Errors)).Msg("ColumnSync: done")
	return report, nil
}

func (s *columnSyncService) RefreshWhitelist(ctx context.Context) error {
	codes, err := s.definitionRepo.FindAllCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh training code whitelist: %w", err)
	}
	s.whitelist.Replace(codes)
	return nil
}
