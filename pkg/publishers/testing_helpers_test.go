package publishers

import "github.com/samvad-hq/myskoda/pkg/models"

func hybridEvent() Event {
	electric := models.EngineRange{EngineType: models.EngineTypeElectric, RemainingRangeInKm: 7}
	return NewEvent("TMBJM0CKV1N12345", "Superb iV", models.DrivingRangeStatus{
		CarType:              models.EngineTypeHybrid,
		PrimaryEngineRange:   models.EngineRange{EngineType: models.EngineTypeGasoline, RemainingRangeInKm: 670},
		SecondaryEngineRange: &electric,
	})
}
