package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Default returns the compiled-in catalog matching the shipped
// config/actor_types.yaml, so the service can run without a config file.
func Default() *Catalog {
	return &Catalog{
		VUT: VUTDimensions{
			LengthM:     4.00,
			WidthM:      1.90,
			CogToFrontM: 2.00,
			CogToLeftM:  0.95,
		},
		VelocityLimits: VelocityLimits{MinKmh: 0.0, MaxKmh: 40.0},
		ActorTypes: []ActorType{
			{ID: 0, Name: "pedestrian", LengthM: 1.00, WidthM: 1.00},
			{ID: 1, Name: "PMD", LengthM: 2.67, WidthM: 0.57},
			{ID: 2, Name: "cyclist", LengthM: 2.67, WidthM: 0.57},
			{ID: 3, Name: "animal", LengthM: 1.00, WidthM: 1.00},
			{ID: 4, Name: "passenger_vehicle", LengthM: 3.90, WidthM: 1.65},
			{ID: 5, Name: "motorcycle", LengthM: 1.63, WidthM: 0.73},
			{ID: 6, Name: "fire_truck", LengthM: 6.00, WidthM: 2.50},
			{ID: 7, Name: "ambulance", LengthM: 6.00, WidthM: 2.50},
			{ID: 8, Name: "van", LengthM: 5.00, WidthM: 2.00},
			{ID: 9, Name: "trailer", LengthM: 8.00, WidthM: 2.50},
			{ID: 10, Name: "truck", LengthM: 8.00, WidthM: 2.50},
			{ID: 11, Name: "bus", LengthM: 12.0, WidthM: 2.50},
			{ID: 20, Name: "construction_cone", LengthM: 0.35, WidthM: 0.35},
			{ID: 99, Name: "others", LengthM: 1.00, WidthM: 1.00},
		},
	}
}

// Load reads and parses a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(c.ActorTypes) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no actor types", path)
	}
	return &c, nil
}

// TypeName returns the display name for an actor type code, or
// "type_<id>" when the code is not in the catalog.
func (c *Catalog) TypeName(id int) string {
	for _, t := range c.ActorTypes {
		if t.ID == id {
			return t.Name
		}
	}
	return fmt.Sprintf("type_%d", id)
}

// Dimensions returns the footprint for an actor type code, defaulting to
// a 1 m x 1 m marker for unknown codes.
func (c *Catalog) Dimensions(id int) (lengthM, widthM float64) {
	for _, t := range c.ActorTypes {
		if t.ID == id {
			return t.LengthM, t.WidthM
		}
	}
	return 1.0, 1.0
}

// Types returns the catalog entries ordered by id.
func (c *Catalog) Types() []ActorType {
	types := make([]ActorType, len(c.ActorTypes))
	copy(types, c.ActorTypes)
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}
