package catalog

// ActorType describes one entry of the actor type catalog: a display
// name and the rectangular footprint the frontend uses to draw OBB
// markers on the map.
type ActorType struct {
	ID      int     `yaml:"id" json:"id"`
	Name    string  `yaml:"name" json:"name"`
	LengthM float64 `yaml:"length_m" json:"length_m"`
	WidthM  float64 `yaml:"width_m" json:"width_m"`
}

// VUTDimensions describes the vehicle under test's footprint and the
// offsets from its centre of gravity to the front bumper and left edge.
// These are per-vehicle physical parameters, not validation inputs.
type VUTDimensions struct {
	LengthM     float64 `yaml:"length_m" json:"length_m"`
	WidthM      float64 `yaml:"width_m" json:"width_m"`
	CogToFrontM float64 `yaml:"cog_to_front_m" json:"cog_to_front_m"`
	CogToLeftM  float64 `yaml:"cog_to_left_m" json:"cog_to_left_m"`
}

// VelocityLimits holds the VUT absolute velocity envelope in km/h.
// Informational only; format validation does not consult it.
type VelocityLimits struct {
	MinKmh float64 `yaml:"min_kmh" json:"min_kmh"`
	MaxKmh float64 `yaml:"max_kmh" json:"max_kmh"`
}

// Catalog is the fixed actor-type mapping plus VUT physical constants.
// Loaded once at process start and read-only afterwards; changing it
// means redeploying the catalog file, not code.
type Catalog struct {
	VUT            VUTDimensions  `yaml:"vut" json:"vut"`
	VelocityLimits VelocityLimits `yaml:"velocity_limits" json:"velocity_limits"`
	ActorTypes     []ActorType    `yaml:"actor_types" json:"actor_types"`
}
