package vehicles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vehicle is one watched car declared in the vehicles file.
type Vehicle struct {
	VIN     string `json:"vin" yaml:"vin"`
	Name    string `json:"name" yaml:"name"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (v Vehicle) EnabledValue() bool {
	if v.Enabled == nil {
		return true
	}
	return *v.Enabled
}

// DisplayName falls back to the VIN when no name is configured.
func (v Vehicle) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	return v.VIN
}

type fileFormat struct {
	Vehicles []Vehicle `json:"vehicles" yaml:"vehicles"`
}

// Registry holds the vehicles loaded from a file. It is immutable after LoadRegistry.
type Registry struct {
	vehicles []Vehicle
	idx      map[string]Vehicle
}

// LoadRegistry reads a YAML or JSON vehicles file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("vehicles file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vehicles file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read vehicles file: %w", err)
	}

	parsed, err := parseVehicles(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Vehicles)
}

// NewRegistry validates vehicles and indexes them by VIN.
func NewRegistry(vehicles []Vehicle) (*Registry, error) {
	if len(vehicles) == 0 {
		return nil, errors.New("vehicles list is empty")
	}

	reg := &Registry{
		vehicles: make([]Vehicle, 0, len(vehicles)),
		idx:      make(map[string]Vehicle, len(vehicles)),
	}
	for i := range vehicles {
		v := sanitizeVehicle(vehicles[i])
		if v.VIN == "" {
			return nil, fmt.Errorf("vehicles[%d]: vin is required", i)
		}
		if _, exists := reg.idx[v.VIN]; exists {
			return nil, fmt.Errorf("duplicate vehicle vin %q", v.VIN)
		}
		reg.vehicles = append(reg.vehicles, v)
		reg.idx[v.VIN] = v
	}
	return reg, nil
}

// parseVehicles decodes JSON for .json files and YAML otherwise. YAML is a
// superset of JSON, so unknown extensions still accept either form.
func parseVehicles(data []byte, ext string) (fileFormat, error) {
	var out fileFormat
	var err error
	if strings.EqualFold(strings.TrimSpace(ext), ".json") {
		err = json.Unmarshal(data, &out)
	} else {
		err = yaml.Unmarshal(data, &out)
	}
	if err != nil {
		return fileFormat{}, fmt.Errorf("decode vehicles file: %w", err)
	}
	return out, nil
}

func sanitizeVehicle(v Vehicle) Vehicle {
	v.VIN = strings.TrimSpace(v.VIN)
	v.Name = strings.TrimSpace(v.Name)
	if v.Enabled == nil {
		def := true
		v.Enabled = &def
	}
	return v
}

// All returns a copy of every configured vehicle.
func (r *Registry) All() []Vehicle {
	if r == nil {
		return nil
	}
	out := make([]Vehicle, len(r.vehicles))
	copy(out, r.vehicles)
	return out
}

// Enabled returns the vehicles that should be polled.
func (r *Registry) Enabled() []Vehicle {
	if r == nil {
		return nil
	}
	out := make([]Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		if v.EnabledValue() {
			out = append(out, v)
		}
	}
	return out
}

// ByVIN looks a vehicle up by VIN.
func (r *Registry) ByVIN(vin string) (Vehicle, bool) {
	if r == nil {
		return Vehicle{}, false
	}
	v, ok := r.idx[strings.TrimSpace(vin)]
	return v, ok
}
