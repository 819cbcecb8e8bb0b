// Package complexity scores a job across a fixed, ordered set of weighted
// factors and classifies it as simple or complex.
package complexity

// Config holds the factor weights and trigger thresholds. Every value is
// tunable from the YAML tuning file, which is read over DefaultConfig, so a
// weight of 0 turns its factor off.
type Config struct {
	ComplexThreshold int `yaml:"complex_threshold"`

	StepCountThreshold   int `yaml:"step_count_threshold"`
	StepCountWeight      int `yaml:"step_count_weight"`
	IntegrationThreshold int `yaml:"integration_threshold"`
	IntegrationWeight    int `yaml:"integration_weight"`
	AIProcessingWeight   int `yaml:"ai_processing_weight"`
	RegulatedWeight      int `yaml:"regulated_industry_weight"`
	VolumeThreshold      int `yaml:"volume_threshold"`
	VolumeWeight         int `yaml:"volume_weight"`
	ConditionalWeight    int `yaml:"conditional_weight"`
	MultiPlatformWeight  int `yaml:"multi_platform_weight"`
}

// DefaultConfig returns the baseline weights.
func DefaultConfig() Config {
	return Config{
		ComplexThreshold:     4,
		StepCountThreshold:   5,
		StepCountWeight:      3,
		IntegrationThreshold: 3,
		IntegrationWeight:    2,
		AIProcessingWeight:   2,
		RegulatedWeight:      1,
		VolumeThreshold:      1000,
		VolumeWeight:         1,
		ConditionalWeight:    1,
		MultiPlatformWeight:  2,
	}
}
