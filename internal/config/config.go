package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig is the process configuration.
type EngineConfig struct {
	Bus         BusConfig         `yaml:"bus"`
	GraphDB     GraphDBConfig     `yaml:"graph_db"`
	HTTP        HTTPConfig        `yaml:"http"`
	Planner     PlannerConfig     `yaml:"planner"`
	Dispatcher  DispatcherConfig  `yaml:"dispatcher"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BusConfig controls the inbound alert message-bus subscriber.
type BusConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Topic        string        `yaml:"topic"`
	TLS          bool          `yaml:"tls"`
	BlockTimeout time.Duration `yaml:"block_timeout"`
}

// GraphDBConfig controls the graph-database escape collaborator.
type GraphDBConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HTTPConfig controls the inbound HTTP API server.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// PlannerConfig controls the mitigation planner.
type PlannerConfig struct {
	MitigationSlots      int           `yaml:"mitigation_slots"`
	TimeLimit            time.Duration `yaml:"time_limit"`
	ProbabilityMode      bool          `yaml:"probability_mode"`
	ProbabilityThreshold float64       `yaml:"probability_threshold"`
	RiskyFireThreshold   int           `yaml:"risky_fire_threshold"`
}

// DispatcherConfig controls outbound webhook dispatch.
type DispatcherConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// PersistenceConfig controls the on-disk catalog documents.
type PersistenceConfig struct {
	ConditionsPath string `yaml:"conditions_path"`
	NodesPath      string `yaml:"nodes_path"`
	WorkflowsPath  string `yaml:"workflows_path"`
	BootstrapYAML  string `yaml:"bootstrap_yaml"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// defaults matching §4.6's documented defaults and sane ambient values.
const (
	DefaultMitigationSlots      = 10
	DefaultPlannerTimeLimit     = 1 * time.Second
	DefaultDispatchTimeout      = 30 * time.Second
	DefaultProbabilityThreshold = 0.6
	DefaultRiskyFireThreshold   = 3
)

// LoadConfig reads and parses a YAML config file, applying defaults for
// zero-valued fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	p := &cfg.Engine.Planner
	if p.MitigationSlots <= 0 {
		p.MitigationSlots = DefaultMitigationSlots
	}
	if p.TimeLimit <= 0 {
		p.TimeLimit = DefaultPlannerTimeLimit
	}
	if p.ProbabilityThreshold <= 0 {
		p.ProbabilityThreshold = DefaultProbabilityThreshold
	}
	if p.RiskyFireThreshold <= 0 {
		p.RiskyFireThreshold = DefaultRiskyFireThreshold
	}
	if cfg.Engine.Dispatcher.Timeout <= 0 {
		cfg.Engine.Dispatcher.Timeout = DefaultDispatchTimeout
	}
	if cfg.Engine.HTTP.ListenAddr == "" {
		cfg.Engine.HTTP.ListenAddr = ":8080"
	}
}
