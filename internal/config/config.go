package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddr         = ":8080"
	DefaultTopic        = "council-events"
	DefaultHistoryLines = 5
	DefaultTimeout      = 60 * time.Second

	configFileName = "config.json"
	configDirName  = ".agora"
)

// Config is the agora configuration file
type Config struct {
	Generation   GenerationConfig `json:"generation"`
	Speech       SpeechConfig     `json:"speech"`
	Pacing       PacingConfig     `json:"pacing"`
	Server       ServerConfig     `json:"server"`
	Events       EventsConfig     `json:"events"`
	RosterFile   string           `json:"rosterFile,omitempty"`
	HistoryLines int              `json:"historyLines,omitempty"`
}

// GenerationConfig selects the text generation backend
type GenerationConfig struct {
	Backend string   `json:"backend,omitempty"` // gemini, openrouter
	APIKey  string   `json:"apiKey,omitempty"`
	Model   string   `json:"model,omitempty"`
	BaseURL string   `json:"baseURL,omitempty"`
	Timeout Duration `json:"timeout,omitempty"`
}

// SpeechConfig selects the speech backend
type SpeechConfig struct {
	Provider        string            `json:"provider,omitempty"` // gemini, openai, polly, gcp, none
	APIKey          string            `json:"apiKey,omitempty"`
	Model           string            `json:"model,omitempty"`
	Region          string            `json:"region,omitempty"`
	ProjectID       string            `json:"projectID,omitempty"`
	CredentialsFile string            `json:"credentialsFile,omitempty"`
	BaseURL         string            `json:"baseURL,omitempty"`
	Voices          map[string]string `json:"voices,omitempty"`
}

// PacingConfig controls the presentation delays of a round
type PacingConfig struct {
	RevealJitter Duration `json:"revealJitter,omitempty"`
	DebateStep   Duration `json:"debateStep,omitempty"`
	Highlight    Duration `json:"highlight,omitempty"`
	Disabled     bool     `json:"disabled,omitempty"`
}

// ServerConfig is the browser surface configuration
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
}

// EventsConfig selects event sinks
type EventsConfig struct {
	Log     bool     `json:"log,omitempty"`
	Brokers []string `json:"brokers,omitempty"`
	Topic   string   `json:"topic,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("1.5s")
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of milliseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(time.Duration(ms * float64(time.Millisecond)))
	return nil
}

// Loader finds and reads configuration files
type Loader struct {
	projectPath string
	globalPath  string
}

// NewLoader creates a loader for .agora/config.json in the working
// directory and in the home directory
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		projectPath: filepath.Join(configDirName, configFileName),
		globalPath:  filepath.Join(homeDir, configDirName, configFileName),
	}
}

// Load loads configuration with priority:
// 1. Explicit path (must exist)
// 2. Project-local config (.agora/config.json)
// 3. Global config (~/.agora/config.json)
// 4. Built-in defaults
// Environment fallbacks and defaults are applied to the result.
func (l *Loader) Load(explicit, workDir string) (*Config, error) {
	LoadDotEnv(workDir)

	cfg, err := l.find(explicit, workDir)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (l *Loader) find(explicit, workDir string) (*Config, error) {
	if explicit != "" {
		cfg, err := l.loadFromFile(explicit)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", explicit, err)
		}
		log.Debug().Str("path", explicit).Msg("Loaded config")
		return cfg, nil
	}

	projectConfigPath := filepath.Join(workDir, l.projectPath)
	if cfg, err := l.loadFromFile(projectConfigPath); err == nil {
		log.Debug().Str("path", projectConfigPath).Msg("Loaded project config")
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if l.globalPath != "" {
		if cfg, err := l.loadFromFile(l.globalPath); err == nil {
			log.Debug().Str("path", l.globalPath).Msg("Loaded global config")
			return cfg, nil
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	log.Debug().Msg("No config file found, using defaults")
	return &Config{}, nil
}

func (l *Loader) loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	checkFilePermissions(path)

	return &cfg, nil
}

// LoadDotEnv reads .env from dir into the environment without overriding
// variables that are already set
func LoadDotEnv(dir string) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to load .env file")
		return
	}
	log.Debug().Str("path", path).Msg("Loaded .env file")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Don't log variable names for security reasons
		log.Debug().Msg("Referenced environment variable not set in config")
		return ""
	})
}

func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		log.Warn().
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Config file may contain secrets but has permissive permissions. Consider: chmod 600")
	}
}

func (c *Config) applyEnv() {
	if c.Generation.APIKey == "" {
		switch c.Generation.Backend {
		case "openrouter":
			c.Generation.APIKey = os.Getenv("OPENROUTER_API_KEY")
		default:
			c.Generation.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
		}
	}

	if c.Speech.APIKey == "" {
		switch c.Speech.Provider {
		case "", "gemini":
			c.Speech.APIKey = c.Generation.geminiKey()
		case "openai":
			c.Speech.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if len(c.Events.Brokers) == 0 {
		if brokers := os.Getenv("AGORA_KAFKA_BROKERS"); brokers != "" {
			for _, b := range strings.Split(brokers, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.Events.Brokers = append(c.Events.Brokers, b)
				}
			}
		}
	}
}

func (g GenerationConfig) geminiKey() string {
	if g.Backend == "" || g.Backend == "gemini" {
		if g.APIKey != "" {
			return g.APIKey
		}
	}
	return firstEnv("GEMINI_API_KEY", "API_KEY")
}

func (c *Config) applyDefaults() {
	if c.Generation.Backend == "" {
		c.Generation.Backend = "gemini"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = Duration(DefaultTimeout)
	}
	if c.Speech.Provider == "" {
		c.Speech.Provider = "gemini"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Events.Topic == "" {
		c.Events.Topic = DefaultTopic
	}
	if c.HistoryLines <= 0 {
		c.HistoryLines = DefaultHistoryLines
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Validate returns a list of configuration problems
func (c *Config) Validate() []string {
	var errors []string

	if c == nil {
		return errors
	}

	switch c.Generation.Backend {
	case "gemini":
		if c.Generation.APIKey == "" {
			errors = append(errors, "generation: apiKey is required (use ${GEMINI_API_KEY} for env var)")
		}
	case "openrouter":
		if c.Generation.APIKey == "" {
			errors = append(errors, "generation: apiKey is required (use ${OPENROUTER_API_KEY} for env var)")
		}
	default:
		errors = append(errors, fmt.Sprintf("generation: unknown backend '%s'", c.Generation.Backend))
	}
	if c.Generation.Timeout < 0 {
		errors = append(errors, "generation: timeout must not be negative")
	}

	switch c.Speech.Provider {
	case "gemini", "openai":
		if c.Speech.APIKey == "" {
			errors = append(errors, fmt.Sprintf("speech: apiKey is required for %s", c.Speech.Provider))
		}
	case "polly", "none":
	case "gcp":
		if c.Speech.CredentialsFile != "" {
			if _, err := os.Stat(c.Speech.CredentialsFile); err != nil {
				errors = append(errors, fmt.Sprintf("speech: credentials file '%s' not readable", c.Speech.CredentialsFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("speech: unknown provider '%s'", c.Speech.Provider))
	}

	if c.Pacing.RevealJitter < 0 || c.Pacing.DebateStep < 0 {
		errors = append(errors, "pacing: delays must not be negative")
	}

	if c.HistoryLines < 0 {
		errors = append(errors, "historyLines must not be negative")
	}

	return errors
}

// MaskSecrets returns a copy with API keys replaced by a presence marker
func (c *Config) MaskSecrets() *Config {
	if c == nil {
		return nil
	}

	masked := *c
	masked.Generation.APIKey = maskKey(c.Generation.APIKey)
	masked.Speech.APIKey = maskKey(c.Speech.APIKey)
	return &masked
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	// Only indicate that a key is set, don't reveal any characters
	return fmt.Sprintf("[set, %d chars]", len(key))
}

// Example generates an example configuration file
func Example() string {
	example := Config{
		Generation: GenerationConfig{
			Backend: "gemini",
			APIKey:  "${GEMINI_API_KEY}",
			Model:   "gemini-flash-lite-latest",
			Timeout: Duration(DefaultTimeout),
		},
		Speech: SpeechConfig{
			Provider: "gemini",
			APIKey:   "${GEMINI_API_KEY}",
			Model:    "gemini-2.5-flash-preview-tts",
		},
		Pacing: PacingConfig{
			RevealJitter: Duration(time.Second),
			DebateStep:   Duration(1500 * time.Millisecond),
			Highlight:    Duration(2 * time.Second),
		},
		Server: ServerConfig{Addr: DefaultAddr},
		Events: EventsConfig{
			Log:   true,
			Topic: DefaultTopic,
		},
		HistoryLines: DefaultHistoryLines,
	}

	data, _ := json.MarshalIndent(example, "", "  ")
	return string(data)
}
