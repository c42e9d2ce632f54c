package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"lifeslice/internal/database"
	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/formula"
	"lifeslice/internal/logger"
	"lifeslice/internal/models"
	"lifeslice/internal/services"
)

// seedSlice is one entry of the seed catalog.
type seedSlice struct {
	Slug string `json:"slug"`
	Name string `json:"name"`

	IncreaseType   formula.Type   `json:"increase_type"`
	IncreaseParams formula.Params `json:"increase_params"`
	DecreaseType   formula.Type   `json:"decrease_type"`
	DecreaseParams formula.Params `json:"decrease_params"`

	TemporalType    models.TemporalType `json:"temporal_type"`
	ExpectedTime    string              `json:"expected_time"`
	GracePeriod     int                 `json:"grace_period"`
	PenaltyInterval int                 `json:"penalty_interval"`
	PenaltyAmount   int                 `json:"penalty_amount"`
	MaxInterval     int                 `json:"max_interval"`
	ResetDaily      bool                `json:"reset_daily"`

	IsComposite bool `json:"is_composite"`
	Components  []struct {
		Key       string           `json:"key"`
		Name      string           `json:"name"`
		Weight    float64          `json:"weight"`
		MaxValue  int              `json:"max_value"`
		DecayType models.DecayType `json:"decay_type"`
		DecayRate float64          `json:"decay_rate"`
	} `json:"components"`
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	path := "seed/slices.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed catalog: %w", err)
	}

	var catalog []seedSlice
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse seed catalog: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	sliceService := services.NewSliceService(db)
	compositeService := services.NewCompositeService(db)

	created, skipped := 0, 0
	for _, entry := range catalog {
		slice, err := sliceService.CreateSlice(services.SliceInput{
			Slug:            entry.Slug,
			Name:            entry.Name,
			IncreaseType:    entry.IncreaseType,
			IncreaseParams:  entry.IncreaseParams,
			DecreaseType:    entry.DecreaseType,
			DecreaseParams:  entry.DecreaseParams,
			TemporalType:    entry.TemporalType,
			ExpectedTime:    entry.ExpectedTime,
			GracePeriod:     entry.GracePeriod,
			PenaltyInterval: entry.PenaltyInterval,
			PenaltyAmount:   entry.PenaltyAmount,
			MaxInterval:     entry.MaxInterval,
			ResetDaily:      entry.ResetDaily,
			IsComposite:     entry.IsComposite,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrDuplicateSlug) {
				log.Infow("slice already seeded, skipping", "slug", entry.Slug)
				skipped++
				continue
			}
			return fmt.Errorf("failed to seed slice %q: %w", entry.Slug, err)
		}

		for _, component := range entry.Components {
			if _, err := compositeService.AddComponent(slice.ID, services.ComponentInput{
				Key:       component.Key,
				Name:      component.Name,
				Weight:    component.Weight,
				MaxValue:  component.MaxValue,
				DecayType: component.DecayType,
				DecayRate: component.DecayRate,
			}); err != nil {
				return fmt.Errorf("failed to seed component %q of %q: %w", component.Key, entry.Slug, err)
			}
		}
		created++
	}

	log.Infow("seed completed", "created", created, "skipped", skipped)
	return nil
}
