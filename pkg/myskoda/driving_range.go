package myskoda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/myskoda/pkg/models"
)

type drivingRangeResponse struct {
	CarType              *string              `json:"carType"`
	PrimaryEngineRange   *engineRangeResponse `json:"primaryEngineRange"`
	SecondaryEngineRange *engineRangeResponse `json:"secondaryEngineRange"`
	TotalRangeInKm       *int                 `json:"totalRangeInKm"`
	AdBlueRange          *int                 `json:"adBlueRange"`
	CarCapturedTimestamp *time.Time           `json:"carCapturedTimestamp"`
}

type engineRangeResponse struct {
	EngineType                *string `json:"engineType"`
	RemainingRangeInKm        *int    `json:"remainingRangeInKm"`
	CurrentSoCInPercent       *int    `json:"currentSoCInPercent"`
	CurrentFuelLevelInPercent *int    `json:"currentFuelLevelInPercent"`
}

// GetDrivingRange fetches the remaining range per engine for vin. The VIN is
// placed in the path as given.
func (r *RestAPI) GetDrivingRange(ctx context.Context, vin string) (*models.DrivingRangeStatus, error) {
	url := r.drivingRangeURL(vin)
	body, err := r.getBody(ctx, url)
	if err != nil {
		return nil, err
	}

	status, err := parseDrivingRange(body)
	if err != nil {
		r.log.WarnObj("driving range response rejected", "myskoda_response_error", map[string]any{
			"vin":   vin,
			"error": err.Error(),
			"body":  responseSnippet(body),
		})
		return nil, err
	}

	r.log.DebugObj("driving range fetched", "driving_range", map[string]any{
		"vin":      vin,
		"car_type": status.CarType,
	})
	return status, nil
}

func parseDrivingRange(body []byte) (*models.DrivingRangeStatus, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: driving range body: %s", ErrParse, responseSnippet(body))
	}

	var raw drivingRangeResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode driving range: %w", ErrSchema, err)
	}

	status, err := raw.toModel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if err := status.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return status, nil
}

func (d drivingRangeResponse) toModel() (*models.DrivingRangeStatus, error) {
	if d.CarType == nil {
		return nil, errors.New("carType is missing")
	}
	carType, err := models.ParseEngineType(*d.CarType)
	if err != nil {
		return nil, fmt.Errorf("carType: %w", err)
	}
	if d.PrimaryEngineRange == nil {
		return nil, errors.New("primaryEngineRange is missing")
	}
	primary, err := d.PrimaryEngineRange.toModel()
	if err != nil {
		return nil, fmt.Errorf("primaryEngineRange: %w", err)
	}

	status := &models.DrivingRangeStatus{
		CarType:              carType,
		PrimaryEngineRange:   primary,
		TotalRangeInKm:       d.TotalRangeInKm,
		AdBlueRangeInKm:      d.AdBlueRange,
		CarCapturedTimestamp: d.CarCapturedTimestamp,
	}
	if d.SecondaryEngineRange != nil {
		secondary, err := d.SecondaryEngineRange.toModel()
		if err != nil {
			return nil, fmt.Errorf("secondaryEngineRange: %w", err)
		}
		status.SecondaryEngineRange = &secondary
	}
	return status, nil
}

func (e engineRangeResponse) toModel() (models.EngineRange, error) {
	if e.EngineType == nil {
		return models.EngineRange{}, errors.New("engineType is missing")
	}
	engineType, err := models.ParseEngineType(*e.EngineType)
	if err != nil {
		return models.EngineRange{}, fmt.Errorf("engineType: %w", err)
	}
	if e.RemainingRangeInKm == nil {
		return models.EngineRange{}, errors.New("remainingRangeInKm is missing")
	}
	return models.EngineRange{
		EngineType:                engineType,
		RemainingRangeInKm:        *e.RemainingRangeInKm,
		CurrentSoCInPercent:       e.CurrentSoCInPercent,
		CurrentFuelLevelInPercent: e.CurrentFuelLevelInPercent,
	}, nil
}
