package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v2"

	"github.com/bbernstein/lacylights-strip/internal/services/spark"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// themeFile is the layout of a themes file in YAML or TOML:
//
//	themes:
//	  - name: sunset
//	    colors: ["#ff4400", "#ff0088"]
type themeFile struct {
	Themes []themeEntry `yaml:"themes" toml:"themes"`
}

type themeEntry struct {
	Name   string   `yaml:"name" toml:"name"`
	Colors []string `yaml:"colors" toml:"colors"`
}

// LoadThemes reads custom spark themes. The format follows the extension:
// .yaml/.yml or .toml.
func LoadThemes(path string) ([]spark.Theme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open themes file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return nil, fmt.Errorf("unsupported themes file %s: use .yaml, .yml or .toml", path)
	}
	return ParseThemes(f, format)
}

// ParseThemes decodes themes in the given format ("yaml" or "toml").
func ParseThemes(r io.Reader, format string) ([]spark.Theme, error) {
	var file themeFile
	switch format {
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse themes: %w", err)
		}
	case "toml":
		if err := toml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("failed to parse themes: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown themes format %q", format)
	}

	themes := make([]spark.Theme, 0, len(file.Themes))
	seen := make(map[string]bool)
	for i, entry := range file.Themes {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("theme %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate theme %q", name)
		}
		seen[name] = true

		theme := spark.Theme{Name: name, Colors: make([]rgb.Color, 0, len(entry.Colors))}
		for _, s := range entry.Colors {
			c, err := rgb.ParseHex(s)
			if err != nil {
				return nil, fmt.Errorf("theme %q: %w", name, err)
			}
			theme.Colors = append(theme.Colors, c)
		}
		themes = append(themes, theme)
	}
	return themes, nil
}
