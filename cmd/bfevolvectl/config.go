package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	api "bfevolve/pkg/bfevolve"
)

var configKeys = map[string]bool{
	"target":             true,
	"genes":              true,
	"filler":             true,
	"population":         true,
	"elite_ratio":        true,
	"gene_mutation_rate": true,
	"delete_weight":      true,
	"insert_weight":      true,
	"replace_weight":     true,
	"selection":          true,
	"breed_fraction":     true,
	"tournament_size":    true,
	"breeding":           true,
	"initial_length":     true,
	"instruction_limit":  true,
	"tape_size":          true,
	"overflow":           true,
	"max_generations":    true,
	"seed":               true,
	"workers":            true,
}

// loadRunRequestFromConfig reads a run config file. Files ending in .yaml or
// .yml are decoded as YAML, anything else as JSON.
func loadRunRequestFromConfig(path string) (api.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.RunRequest{}, err
	}
	raw, err := decodeConfig(path, data)
	if err != nil {
		return api.RunRequest{}, err
	}

	unknown := make([]string, 0)
	for key := range raw {
		if !configKeys[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return api.RunRequest{}, fmt.Errorf("unknown config keys: %s", strings.Join(unknown, ", "))
	}

	var req api.RunRequest
	if v, ok := asString(raw["target"]); ok {
		req.Target = v
	}
	if v, ok := asString(raw["genes"]); ok {
		req.Genes = v
	}
	if v, ok := asString(raw["filler"]); ok {
		req.Filler = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asFloat64(raw["elite_ratio"]); ok {
		req.EliteRatio = api.Float64(v)
	}
	if v, ok := asUint64(raw["gene_mutation_rate"]); ok {
		req.GeneMutationRate = api.Uint64(v)
	}
	if v, ok := asUint64(raw["delete_weight"]); ok {
		req.DeleteWeight = v
	}
	if v, ok := asUint64(raw["insert_weight"]); ok {
		req.InsertWeight = v
	}
	if v, ok := asUint64(raw["replace_weight"]); ok {
		req.ReplaceWeight = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asFloat64(raw["breed_fraction"]); ok {
		req.BreedFraction = v
	}
	if v, ok := asInt(raw["tournament_size"]); ok {
		req.TournamentSize = v
	}
	if v, ok := asString(raw["breeding"]); ok {
		req.Breeding = v
	}
	if v, ok := asInt(raw["initial_length"]); ok {
		req.InitialLength = api.Int(v)
	}
	if v, ok := asUint64(raw["instruction_limit"]); ok {
		req.InstructionLimit = v
	}
	if v, ok := asInt(raw["tape_size"]); ok {
		req.TapeSize = v
	}
	if v, ok := asString(raw["overflow"]); ok {
		req.Overflow = v
	}
	if v, ok := asInt(raw["max_generations"]); ok {
		req.MaxGenerations = v
	}
	if v, ok := asUint64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	return req, nil
}

func decodeConfig(path string, data []byte) (map[string]any, error) {
	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%s is empty", path)
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return raw, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// asUint64 keeps full 64-bit precision for seeds; negative values are
// rejected rather than wrapped.
func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 || x >= math.MaxUint64 {
			return 0, false
		}
		return uint64(x), true
	case json.Number:
		var n uint64
		if _, err := fmt.Sscan(x.String(), &n); err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func overrideFromFlags(req *api.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "target":
			req.Target = v.(string)
		case "genes":
			req.Genes = v.(string)
		case "filler":
			req.Filler = v.(string)
		case "pop":
			req.Population = v.(int)
		case "elite-ratio":
			req.EliteRatio = api.Float64(v.(float64))
		case "gene-rate":
			req.GeneMutationRate = api.Uint64(v.(uint64))
		case "w-delete":
			req.DeleteWeight = v.(uint64)
		case "w-insert":
			req.InsertWeight = v.(uint64)
		case "w-replace":
			req.ReplaceWeight = v.(uint64)
		case "selection":
			req.Selection = v.(string)
		case "breed-fraction":
			req.BreedFraction = v.(float64)
		case "tournament-size":
			req.TournamentSize = v.(int)
		case "breeding":
			req.Breeding = v.(string)
		case "init-len":
			req.InitialLength = api.Int(v.(int))
		case "instr-limit":
			req.InstructionLimit = v.(uint64)
		case "tape-size":
			req.TapeSize = v.(int)
		case "overflow":
			req.Overflow = v.(string)
		case "max-gens":
			req.MaxGenerations = v.(int)
		case "seed":
			req.Seed = v.(uint64)
		case "workers":
			req.Workers = v.(int)
		}
	}
}

func loadOrDefaultRunRequest(configPath string) (api.RunRequest, error) {
	if configPath == "" {
		return api.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return api.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
