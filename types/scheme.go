package types

// SchemeConfig is the on-disk marking scheme
type SchemeConfig struct {
	Checks []CheckConfig `yaml:"checks"`
}

// CheckConfig assigns marking metadata to one check
type CheckConfig struct {
	ID     string        `yaml:"id"`
	Mark   *float64      `yaml:"mark"`
	Name   string        `yaml:"name,omitempty"`
	Manual *ManualConfig `yaml:"manual,omitempty"`
}

// ManualConfig marks a check as requiring manual marking
type ManualConfig struct {
	Instructions string `yaml:"instructions"`
}

// HasMark reports whether the entry declares a mark
func (c CheckConfig) HasMark() bool {
	return c.Mark != nil
}

// Metadata converts the config entry into MarkMetadata. An entry without a mark yields a zero mark.
func (c CheckConfig) Metadata() MarkMetadata {
	m := MarkMetadata{Name: c.Name}
	if c.Mark != nil {
		m.Mark = *c.Mark
	}
	if c.Manual != nil {
		m.ManualRequired = true
		m.ManualInstructions = c.Manual.Instructions
	}
	return m
}
