package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EngineType classifies a propulsion energy source as reported by the vehicle-status API.
type EngineType string

const (
	EngineTypeGasoline EngineType = "gasoline"
	EngineTypeDiesel   EngineType = "diesel"
	EngineTypeElectric EngineType = "electric"
	EngineTypeHybrid   EngineType = "hybrid"
	EngineTypeCNG      EngineType = "cng"
	EngineTypeLPG      EngineType = "lpg"
)

var knownEngineTypes = map[EngineType]struct{}{
	EngineTypeGasoline: {},
	EngineTypeDiesel:   {},
	EngineTypeElectric: {},
	EngineTypeHybrid:   {},
	EngineTypeCNG:      {},
	EngineTypeLPG:      {},
}

// ErrUnknownEngineType is returned for engine tags outside the known set.
var ErrUnknownEngineType = errors.New("unknown engine type")

// ParseEngineType matches raw against the known tags, ignoring case and surrounding space.
func ParseEngineType(raw string) (EngineType, error) {
	t := EngineType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownEngineTypes[t]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownEngineType, raw)
	}
	return t, nil
}

// Valid reports whether t is one of the known tags.
func (t EngineType) Valid() bool {
	_, ok := knownEngineTypes[t]
	return ok
}

func (t EngineType) String() string { return string(t) }

// EngineRange is the remaining range of a single energy source.
type EngineRange struct {
	EngineType                EngineType `json:"engine_type" yaml:"engine_type"`
	RemainingRangeInKm        int        `json:"remaining_range_in_km" yaml:"remaining_range_in_km"`
	CurrentSoCInPercent       *int       `json:"current_soc_in_percent,omitempty" yaml:"current_soc_in_percent,omitempty"`
	CurrentFuelLevelInPercent *int       `json:"current_fuel_level_in_percent,omitempty" yaml:"current_fuel_level_in_percent,omitempty"`
}

// DrivingRangeStatus is the driving range snapshot of one vehicle.
// SecondaryEngineRange is set only when CarType is EngineTypeHybrid.
type DrivingRangeStatus struct {
	CarType              EngineType   `json:"car_type" yaml:"car_type"`
	PrimaryEngineRange   EngineRange  `json:"primary_engine_range" yaml:"primary_engine_range"`
	SecondaryEngineRange *EngineRange `json:"secondary_engine_range,omitempty" yaml:"secondary_engine_range,omitempty"`
	TotalRangeInKm       *int         `json:"total_range_in_km,omitempty" yaml:"total_range_in_km,omitempty"`
	AdBlueRangeInKm      *int         `json:"ad_blue_range_in_km,omitempty" yaml:"ad_blue_range_in_km,omitempty"`
	CarCapturedTimestamp *time.Time   `json:"car_captured_timestamp,omitempty" yaml:"car_captured_timestamp,omitempty"`
}

// Validate checks engine tags, range bounds and the hybrid invariant.
func (s DrivingRangeStatus) Validate() error {
	if !s.CarType.Valid() {
		return fmt.Errorf("car type: %w %q", ErrUnknownEngineType, s.CarType)
	}
	if err := s.PrimaryEngineRange.validate(); err != nil {
		return fmt.Errorf("primary engine range: %w", err)
	}

	hybrid := s.CarType == EngineTypeHybrid
	switch {
	case hybrid && s.SecondaryEngineRange == nil:
		return errors.New("hybrid car type requires a secondary engine range")
	case !hybrid && s.SecondaryEngineRange != nil:
		return fmt.Errorf("secondary engine range present for %s car type", s.CarType)
	}
	if s.SecondaryEngineRange != nil {
		if err := s.SecondaryEngineRange.validate(); err != nil {
			return fmt.Errorf("secondary engine range: %w", err)
		}
	}
	return nil
}

func (r EngineRange) validate() error {
	if !r.EngineType.Valid() {
		return fmt.Errorf("engine type: %w %q", ErrUnknownEngineType, r.EngineType)
	}
	if r.RemainingRangeInKm < 0 {
		return fmt.Errorf("remaining range must not be negative, got %d", r.RemainingRangeInKm)
	}
	return nil
}

// Ranges returns the primary range followed by the secondary range when present.
func (s DrivingRangeStatus) Ranges() []EngineRange {
	out := []EngineRange{s.PrimaryEngineRange}
	if s.SecondaryEngineRange != nil {
		out = append(out, *s.SecondaryEngineRange)
	}
	return out
}
