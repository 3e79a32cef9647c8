package main

import (
	"encoding/json"
	"os"

	"github.com/tailscale/hujson"
)

// Config is ecsctl's world-seeding input, written as human-editable JSON
// with comments (HuJSON) so a save can be hand-tweaked before `ecsctl
// create` reads it back.
type Config struct {
	MaxEntities int `json:"maxEntities"`
	Entities    []struct {
		Name string  `json:"name"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	} `json:"entities"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(std, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
