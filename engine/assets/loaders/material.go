package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/math"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mCfg, err := ParseKMT(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     mCfg.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeMaterial,
		Data:     mCfg,
	}, nil
}

func (ml *MaterialLoader) Unload(*metadata.Resource) error {
	return nil
}

// ParseKMT reads a key=value material file:
//
//	name = eucalyptus_canopy
//	color = #6b8f4e
//	roughness = 1
//	metallic = 0
func ParseKMT(r io.Reader) (*metadata.MaterialConfig, error) {
	scanner := bufio.NewScanner(r)
	materialConfig := &metadata.MaterialConfig{
		Roughness: 1,
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		// Split key-value pairs by the first "=" sign
		key, value, found := strings.Cut(line, "=")
		if !found {
			core.LogWarn("Skipping invalid line: %s", line)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Parse each field based on the key
		switch key {
		case "name":
			materialConfig.Name = value
		case "color", "colour":
			c, err := metadata.ParseColor(value)
			if err != nil {
				return nil, fmt.Errorf("invalid color: %w", err)
			}
			materialConfig.Color = c
		case "roughness":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid roughness value: %s", value)
			}
			materialConfig.Roughness = f
		case "metallic":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid metallic value: %s", value)
			}
			materialConfig.Metallic = f
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid autorelease value: %s", value)
			}
			materialConfig.AutoRelease = autoRelease
		default:
			core.LogWarn("Unknown key '%s' found in material file. Skipping...", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	// Perform validation
	if err := validateMaterial(materialConfig); err != nil {
		return nil, err
	}
	return materialConfig, nil
}

func validateMaterial(material *metadata.MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}
	if material.Color.A == 0 {
		return fmt.Errorf("material '%s' has no color", material.Name)
	}
	if !inRange(material.Roughness) {
		return fmt.Errorf("roughness must be between 0.0 and 1.0")
	}
	if !inRange(material.Metallic) {
		return fmt.Errorf("metallic must be between 0.0 and 1.0")
	}
	return nil
}

// Check if a value is within [0.0, 1.0]
func inRange(value float64) bool {
	return math.Clamp(value, 0, 1) == value
}
