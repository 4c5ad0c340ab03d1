// Package seed ships the sample records applied to empty collections.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"

	"motoriz/internal/core"
)

//go:embed seed.jsonc
var defaultSeed []byte

// Default returns the embedded sample data.
func Default() (core.SeedData, error) {
	return Parse(defaultSeed)
}

// Parse decodes JSONC seed data.
func Parse(data []byte) (core.SeedData, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return core.SeedData{}, fmt.Errorf("invalid JSONC: %w", err)
	}
	var out core.SeedData
	if err := json.Unmarshal(standardized, &out); err != nil {
		return core.SeedData{}, fmt.Errorf("invalid seed JSON: %w", err)
	}
	return out, nil
}
