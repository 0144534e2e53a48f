package market

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is a catalog entry: the static part of an instrument.
type Definition struct {
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Name      string  `yaml:"name" json:"name"`
	BasePrice float64 `yaml:"base_price" json:"basePrice"`
}

type catalogFile struct {
	Instruments []Definition `yaml:"instruments"`
}

// DefaultCatalog is the built-in BIST list.
func DefaultCatalog() []Definition {
	return []Definition{
		{Symbol: "THYAO", Name: "Türk Hava Yolları", BasePrice: 285.50},
		{Symbol: "ASELS", Name: "Aselsan", BasePrice: 62.20},
		{Symbol: "EREGL", Name: "Erdemir", BasePrice: 48.15},
		{Symbol: "KCHOL", Name: "Koç Holding", BasePrice: 175.80},
		{Symbol: "SASA", Name: "Sasa Polyester", BasePrice: 38.40},
		{Symbol: "TUPRS", Name: "Tüpraş", BasePrice: 162.90},
		{Symbol: "SISE", Name: "Şişecam", BasePrice: 46.30},
		{Symbol: "GARAN", Name: "Garanti BBVA", BasePrice: 72.40},
		{Symbol: "AKBNK", Name: "Akbank", BasePrice: 44.10},
		{Symbol: "BIMAS", Name: "BİM Mağazalar", BasePrice: 388.00},
	}
}

// LoadCatalog reads a YAML catalog. An empty path returns DefaultCatalog.
func LoadCatalog(path string) ([]Definition, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates catalog YAML; unknown keys are rejected.
func ParseCatalog(raw []byte) ([]Definition, error) {
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validateCatalog(file.Instruments); err != nil {
		return nil, err
	}
	for i := range file.Instruments {
		file.Instruments[i].Symbol = NormalizeSymbol(file.Instruments[i].Symbol)
	}
	return file.Instruments, nil
}

func validateCatalog(defs []Definition) error {
	if len(defs) == 0 {
		return errors.New("catalog has no instruments")
	}
	seen := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		sym := NormalizeSymbol(def.Symbol)
		if sym == "" {
			return fmt.Errorf("catalog entry %d: symbol is required", i)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("catalog entry %d: duplicate symbol %s", i, sym)
		}
		seen[sym] = struct{}{}
		if def.BasePrice <= 0 {
			return fmt.Errorf("catalog entry %s: base_price must be > 0", sym)
		}
	}
	return nil
}
