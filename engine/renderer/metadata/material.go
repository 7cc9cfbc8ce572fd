package metadata

import (
	"fmt"
	"image/color"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief Indicates if the material should be dropped from the library when its file goes away. */
	AutoRelease bool
	/** @brief The base colour of the material. */
	Color color.RGBA
	/** @brief Microfacet roughness in [0, 1]. 1 is fully matte. */
	Roughness float64
	/** @brief Metalness in [0, 1]. */
	Metallic float64
}

/**
 * @brief A material, which represents the surface properties
 * of a mesh component.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief The base colour. */
	Color color.RGBA
	Roughness float64
	Metallic  float64
}

// NewFlatMaterial returns a fully matte, non metallic material.
func NewFlatMaterial(name string, c color.RGBA) *Material {
	return &Material{Name: name, Color: c, Roughness: 1, Metallic: 0}
}

func NewMaterialFromConfig(cfg *MaterialConfig) *Material {
	return &Material{
		Name:      cfg.Name,
		Color:     cfg.Color,
		Roughness: cfg.Roughness,
		Metallic:  cfg.Metallic,
	}
}

func (m *Material) String() string {
	return fmt.Sprintf("%s(%s roughness=%.2f metallic=%.2f)", m.Name, FormatColor(m.Color), m.Roughness, m.Metallic)
}
