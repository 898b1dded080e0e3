package servicefile

// ServicesFile is the top-level structure of the gateway's services.yaml.
// Services are a list so definition order is preserved end to end.
type ServicesFile struct {
	Services []ServiceEntry `yaml:"services"`
}

// ServiceEntry describes one managed worker service.
type ServiceEntry struct {
	Name        string            `yaml:"name"`
	Image       string            `yaml:"image"`
	Port        int               `yaml:"port"`
	Env         map[string]string `yaml:"env,omitempty"`
	Resources   ResourceProps     `yaml:"resources,omitempty"`
	SleepPolicy *SleepPolicyProps `yaml:"sleep_policy,omitempty"`
}

// ResourceProps caps the container's footprint.
type ResourceProps struct {
	CPUs     float64 `yaml:"cpus,omitempty"`
	MemoryMB int64   `yaml:"memory_mb,omitempty"`
}

// SleepPolicyProps configures auto-sleep. Durations use Go syntax
// ("10m", "90s").
type SleepPolicyProps struct {
	Enabled             bool   `yaml:"enabled"`
	IdleTimeout         string `yaml:"idle_timeout,omitempty"`
	MinSleepTime        string `yaml:"min_sleep_time,omitempty"`
	MemoryReservationMB int64  `yaml:"memory_reservation_mb,omitempty"`
	Priority            string `yaml:"priority,omitempty"`
}
