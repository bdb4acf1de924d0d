package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/forager/internal/models"
)

// LoadSchema reads a field-schema file (.yaml/.yml/.toml/.json) describing
// the field set for one target domain. An empty path returns the built-in
// restaurant schema.
func LoadSchema(path string) (models.FieldSchema, error) {
	if path == "" {
		return models.DefaultRestaurantSchema(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.FieldSchema{}, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}

	var schema models.FieldSchema
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return models.FieldSchema{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &schema); err != nil {
			return models.FieldSchema{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &schema); err != nil {
			return models.FieldSchema{}, fmt.Errorf("failed to parse schema file %s: %w", path, err)
		}
	default:
		return models.FieldSchema{}, fmt.Errorf("unsupported schema file extension: %s", path)
	}

	validate := validator.New()
	if err := validate.Struct(schema); err != nil {
		return models.FieldSchema{}, fmt.Errorf("invalid schema %s: %w", path, err)
	}
	if err := schema.Validate(); err != nil {
		return models.FieldSchema{}, fmt.Errorf("invalid schema %s: %w", path, err)
	}

	return schema, nil
}
