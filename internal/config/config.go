package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dyluth/quill/pkg/content"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "quill.yml"

// Defaults applied by Validate when a field is omitted.
const (
	DefaultProvider           = "vertex"
	DefaultVertexModel        = "gemini-2.5-flash"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultTemperature        = 0.7
	DefaultMaxOutputTokens    = 64000
	DefaultMaxRetries         = 3
	DefaultRetryDelay         = 2 * time.Second
	DefaultTimeout            = 120 * time.Second
	DefaultRegion             = "us-central1"
	DefaultMaxIterations      = 2
	DefaultQualityThreshold   = 8.0
	DefaultSourceDir          = "source"
	DefaultOutputDir          = "output"
	DefaultExamplesDir        = "examples"
	DefaultInputPerMillion    = 0.075
	DefaultOutputPerMillion   = 0.30
	DefaultLogFile            = "logs/workflow.log"
	DefaultRedisInstance      = "default"
	MaxAllowedRetries         = 10
	ProviderOpenAI            = "openai"
	ProviderVertex            = "vertex"
	ProviderMock              = "mock"
	supportedConfigVersion    = "1.0"
)

// QuillConfig represents the top-level quill.yml configuration
type QuillConfig struct {
	Version  string          `yaml:"version"`
	API      *APIConfig      `yaml:"api,omitempty"`
	Workflow *WorkflowConfig `yaml:"workflow,omitempty"`
	Channels *ChannelsConfig `yaml:"channels,omitempty"`
	Pricing  *PricingConfig  `yaml:"pricing,omitempty"`
	Output   *OutputConfig   `yaml:"output,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
}

// APIConfig selects and tunes the LLM backend
type APIConfig struct {
	Provider        string        `yaml:"provider,omitempty"` // openai, vertex or mock
	Model           string        `yaml:"model,omitempty"`
	Temperature     *float64      `yaml:"temperature,omitempty"`
	MaxOutputTokens int           `yaml:"max_output_tokens,omitempty"`
	MaxRetries      *int          `yaml:"max_retries,omitempty"` // Retries after the first call, so at most MaxRetries+1 calls (0 = single call)
	RetryDelay      time.Duration `yaml:"retry_delay,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`  // Per-attempt timeout
	BaseURL         string        `yaml:"base_url,omitempty"` // OpenAI-compatible endpoint override
	Project         string        `yaml:"project,omitempty"`  // Vertex project (falls back to GOOGLE_CLOUD_PROJECT)
	Region          string        `yaml:"region,omitempty"`
}

// WorkflowConfig controls the refinement loop and the on-disk layout
type WorkflowConfig struct {
	MaxRefinementIterations *int    `yaml:"max_refinement_iterations,omitempty"` // Refinements per channel (0 = judge once, default = 2)
	QualityThreshold        float64 `yaml:"quality_threshold,omitempty"`
	SourceDir               string  `yaml:"source_dir,omitempty"`
	OutputDir               string  `yaml:"output_dir,omitempty"`
	ExamplesDir             string  `yaml:"examples_dir,omitempty"`
	ProcessAllTopics        bool    `yaml:"process_all_topics,omitempty"`
	GenerateAllChannels     bool    `yaml:"generate_all_channels,omitempty"`
}

// ChannelsConfig lists the channels a run may target
type ChannelsConfig struct {
	Enabled []content.Channel `yaml:"enabled,omitempty"`
	Default content.Channel   `yaml:"default,omitempty"`
}

// PricingConfig holds USD rates per million tokens
type PricingConfig struct {
	InputPerMillion  float64 `yaml:"input_per_million,omitempty"`
	OutputPerMillion float64 `yaml:"output_per_million,omitempty"`
}

// OutputConfig selects the persistence sinks beyond the local files
type OutputConfig struct {
	HTML  bool         `yaml:"html,omitempty"`
	Redis *RedisOutput `yaml:"redis,omitempty"`
	GCS   *GCSOutput   `yaml:"gcs,omitempty"`
}

// RedisOutput enables the blackboard sink when URL is set
type RedisOutput struct {
	URL      string `yaml:"url,omitempty"`
	Instance string `yaml:"instance,omitempty"`
}

// GCSOutput enables the Cloud Storage sink when Bucket is set
type GCSOutput struct {
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// LoggingConfig controls where log lines go
type LoggingConfig struct {
	File    string `yaml:"file,omitempty"`
	Console *bool  `yaml:"console,omitempty"`
	Verbose bool   `yaml:"verbose,omitempty"`
}

// Default returns a validated configuration with every default applied.
func Default() *QuillConfig {
	cfg := &QuillConfig{Version: supportedConfigVersion}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate performs strict validation on the configuration and applies defaults
func (c *QuillConfig) Validate() error {
	// Required: version
	if c.Version != supportedConfigVersion {
		return fmt.Errorf("unsupported version: %s (expected: %s)", c.Version, supportedConfigVersion)
	}

	if c.API == nil {
		c.API = &APIConfig{}
	}
	if err := c.API.Validate(); err != nil {
		return err
	}

	if c.Workflow == nil {
		c.Workflow = &WorkflowConfig{}
	}
	if err := c.Workflow.Validate(); err != nil {
		return err
	}

	if c.Channels == nil {
		c.Channels = &ChannelsConfig{}
	}
	if err := c.Channels.Validate(); err != nil {
		return err
	}

	if c.Pricing == nil {
		c.Pricing = &PricingConfig{}
	}
	if c.Pricing.InputPerMillion == 0 {
		c.Pricing.InputPerMillion = DefaultInputPerMillion
	}
	if c.Pricing.OutputPerMillion == 0 {
		c.Pricing.OutputPerMillion = DefaultOutputPerMillion
	}
	if c.Pricing.InputPerMillion < 0 || c.Pricing.OutputPerMillion < 0 {
		return fmt.Errorf("pricing rates must be >= 0")
	}

	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	if c.Output.Redis != nil && c.Output.Redis.URL != "" && c.Output.Redis.Instance == "" {
		c.Output.Redis.Instance = DefaultRedisInstance
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.File == "" {
		c.Logging.File = DefaultLogFile
	}
	if c.Logging.Console == nil {
		console := true
		c.Logging.Console = &console
	}

	return nil
}

// Validate checks the API section and applies provider-specific defaults
func (a *APIConfig) Validate() error {
	if a.Provider == "" {
		a.Provider = DefaultProvider
	}
	switch a.Provider {
	case ProviderOpenAI:
		if a.Model == "" {
			a.Model = DefaultOpenAIModel
		}
	case ProviderVertex:
		if a.Model == "" {
			a.Model = DefaultVertexModel
		}
		if a.Region == "" {
			a.Region = DefaultRegion
		}
	case ProviderMock:
		if a.Model == "" {
			a.Model = ProviderMock
		}
	default:
		return fmt.Errorf("api: invalid provider: %s (must be 'openai', 'vertex', or 'mock')", a.Provider)
	}

	if a.Temperature == nil {
		temperature := DefaultTemperature
		a.Temperature = &temperature
	}
	if *a.Temperature < 0 || *a.Temperature > 2 {
		return fmt.Errorf("api.temperature must be between 0 and 2, got %v", *a.Temperature)
	}

	if a.MaxOutputTokens == 0 {
		a.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if a.MaxOutputTokens < 0 {
		return fmt.Errorf("api.max_output_tokens must be > 0, got %d", a.MaxOutputTokens)
	}

	if a.MaxRetries == nil {
		retries := DefaultMaxRetries
		a.MaxRetries = &retries
	}
	if *a.MaxRetries < 0 || *a.MaxRetries > MaxAllowedRetries {
		return fmt.Errorf("api.max_retries must be between 0 and %d, got %d", MaxAllowedRetries, *a.MaxRetries)
	}

	if a.RetryDelay == 0 {
		a.RetryDelay = DefaultRetryDelay
	}
	if a.Timeout == 0 {
		a.Timeout = DefaultTimeout
	}
	if a.RetryDelay < 0 || a.Timeout < 0 {
		return fmt.Errorf("api.retry_delay and api.timeout must be positive")
	}

	return nil
}

// Validate checks the workflow section and applies defaults
func (w *WorkflowConfig) Validate() error {
	if w.MaxRefinementIterations == nil {
		iterations := DefaultMaxIterations
		w.MaxRefinementIterations = &iterations
	}
	if *w.MaxRefinementIterations < 0 {
		return fmt.Errorf("workflow.max_refinement_iterations must be >= 0, got %d", *w.MaxRefinementIterations)
	}

	if w.QualityThreshold == 0 {
		w.QualityThreshold = DefaultQualityThreshold
	}
	if w.QualityThreshold < 0 || w.QualityThreshold > 10 {
		return fmt.Errorf("workflow.quality_threshold must be between 0 and 10, got %v", w.QualityThreshold)
	}

	if w.SourceDir == "" {
		w.SourceDir = DefaultSourceDir
	}
	if w.OutputDir == "" {
		w.OutputDir = DefaultOutputDir
	}
	if w.ExamplesDir == "" {
		w.ExamplesDir = DefaultExamplesDir
	}

	return nil
}

// Validate checks the channel list and the default channel
func (ch *ChannelsConfig) Validate() error {
	if len(ch.Enabled) == 0 {
		ch.Enabled = content.AllChannels()
	}

	seen := make(map[content.Channel]bool)
	for _, c := range ch.Enabled {
		if !c.Valid() {
			return fmt.Errorf("channels.enabled: unknown channel '%s' (valid: linkedin, newsletter, blog)", c)
		}
		if seen[c] {
			return fmt.Errorf("channels.enabled: duplicate channel '%s'", c)
		}
		seen[c] = true
	}

	if ch.Default == "" {
		ch.Default = ch.Enabled[0]
	}
	if !seen[ch.Default] {
		return fmt.Errorf("channels.default '%s' is not in channels.enabled", ch.Default)
	}

	return nil
}

// IsEnabled reports whether c is in the enabled list.
func (ch *ChannelsConfig) IsEnabled(c content.Channel) bool {
	for _, e := range ch.Enabled {
		if e == c {
			return true
		}
	}
	return false
}

// Load reads and validates quill.yml from the specified path
func Load(path string) (*QuillConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config QuillConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*QuillConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
