package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"voxsearch/internal/logger"
	"voxsearch/pkg/voxtypes"
)

// Configuration keys understood by the config file, env vars and `config set`.
const (
	ConfigKeyProvider       = "provider"
	ConfigKeyModel          = "model"
	ConfigKeyAPIKey         = "api_key"
	ConfigKeyAzureEndpoint  = "azure_endpoint"
	ConfigKeyRequestTimeout = "request_timeout"
	ConfigKeyEngines        = "engines"
	ConfigKeyMaxKeywords    = "max_keywords"
	ConfigKeyLogLevel       = "log_level"
	ConfigKeyMarkdownStyle  = "markdown_style"

	// apiKeysPrefix stores per-provider keys as api_keys.<provider>.
	apiKeysPrefix = "api_keys."

	envPrefix             = "VOXSEARCH"
	defaultRequestTimeout = 30 * time.Second
	configFileName        = "config.yaml"
)

// DefaultEngines are selected when the user has not chosen any.
var DefaultEngines = []string{"google", "duckduckgo"}

// settableKeys lists keys accepted by Set, in display order.
var settableKeys = []string{
	ConfigKeyProvider,
	ConfigKeyModel,
	ConfigKeyAPIKey,
	ConfigKeyAzureEndpoint,
	ConfigKeyRequestTimeout,
	ConfigKeyEngines,
	ConfigKeyMaxKeywords,
	ConfigKeyLogLevel,
	ConfigKeyMarkdownStyle,
}

// flagKeys maps command line flags onto the configuration keys they override.
var flagKeys = map[string]string{
	"log-level": ConfigKeyLogLevel,
	"style":     ConfigKeyMarkdownStyle,
}

// ConfigurationOptions controls where configuration is read from.
// Zero values select the user's config directory and the working directory.
type ConfigurationOptions struct {
	ConfigFile string // explicit config file (--config)
	ConfigDir  string // defaults to $XDG_CONFIG_HOME/voxsearch or ~/.config/voxsearch
	WorkDir    string // directory searched for a local .env
	// Flags, when set, override matching keys (see flagKeys) once changed.
	Flags *pflag.FlagSet
}

// ConfigurationService provides configuration management for voxsearch.
// Priority (highest to lowest): environment variables > local .env > config .env > config file > defaults.
type ConfigurationService struct {
	mu          sync.RWMutex
	initialized bool
	opts        ConfigurationOptions
	v           *viper.Viper
	dotenv      map[string]string
	configPath  string
	// unflagged holds settings as loaded, before flag bindings, for Save.
	unflagged map[string]any
	explicit  map[string]bool
}

// NewConfigurationService creates a new ConfigurationService instance.
func NewConfigurationService(opts ConfigurationOptions) *ConfigurationService {
	return &ConfigurationService{
		initialized: false,
		opts:        opts,
	}
}

// Name returns the service name "configuration" for registration.
func (c *ConfigurationService) Name() string {
	return "configuration"
}

// Initialize loads .env files and the config file.
func (c *ConfigurationService) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	logger.ServiceOperation("configuration", "initialize", "starting")

	configDir := c.opts.ConfigDir
	if configDir == "" {
		dir, err := UserConfigDir()
		if err != nil {
			return err
		}
		configDir = dir
	}
	c.opts.ConfigDir = configDir

	c.configPath = c.opts.ConfigFile
	if c.configPath == "" {
		c.configPath = filepath.Join(configDir, configFileName)
	}

	c.dotenv = make(map[string]string)
	if err := c.loadDotEnv(filepath.Join(configDir, ".env")); err != nil {
		return err
	}
	workDir := c.opts.WorkDir
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}
	if workDir != "" {
		if err := c.loadDotEnv(filepath.Join(workDir, ".env")); err != nil {
			return err
		}
	}

	v := viper.New()
	v.SetConfigFile(c.configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(ConfigKeyProvider, string(voxtypes.ProviderLocal))
	v.SetDefault(ConfigKeyModel, "")
	v.SetDefault(ConfigKeyRequestTimeout, defaultRequestTimeout.String())
	v.SetDefault(ConfigKeyEngines, DefaultEngines)
	v.SetDefault(ConfigKeyMaxKeywords, voxtypes.DefaultMaxKeywords)
	v.SetDefault(ConfigKeyLogLevel, "info")
	v.SetDefault(ConfigKeyMarkdownStyle, "")

	if _, err := os.Stat(c.configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", c.configPath, err)
		}
		logger.Debug("Configuration file loaded", "path", c.configPath)
	} else if c.opts.ConfigFile != "" {
		return fmt.Errorf("config file %s: %w", c.configPath, err)
	}

	c.unflagged = v.AllSettings()
	c.explicit = make(map[string]bool)
	if c.opts.Flags != nil {
		for name, key := range flagKeys {
			flag := c.opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	c.v = v
	c.initialized = true
	logger.ServiceOperation("configuration", "initialize", "completed")
	return nil
}

// loadDotEnv merges a .env file into the dotenv map. Missing files are not an error.
func (c *ConfigurationService) loadDotEnv(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read .env file %s: %w", path, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse .env file %s: %w", path, err)
	}
	for key, value := range envMap {
		c.dotenv[key] = value
	}
	logger.Debug(".env file loaded", "path", path, "keys", len(envMap))
	return nil
}

// lookupEnv returns the value of name from the OS environment, then the loaded .env files.
func (c *ConfigurationService) lookupEnv(name string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return c.dotenv[name]
}

// GetAPIKey resolves the API key for a provider.
// Sources in order: VOXSEARCH_<PROVIDER>_API_KEY, <PROVIDER>_API_KEY, then the config file.
func (c *ConfigurationService) GetAPIKey(provider voxtypes.ProviderID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}

	upper := strings.ToUpper(provider.String())
	providerKey := fmt.Sprintf("%s_%s_API_KEY", envPrefix, upper)
	legacyKey := fmt.Sprintf("%s_API_KEY", upper)

	for _, name := range []string{providerKey, legacyKey} {
		if value := c.lookupEnv(name); value != "" {
			return value, nil
		}
	}

	if value := c.v.GetString(apiKeysPrefix + provider.String()); value != "" {
		return value, nil
	}
	if c.v.GetString(ConfigKeyProvider) == provider.String() {
		if value := c.v.GetString(ConfigKeyAPIKey); value != "" {
			return value, nil
		}
	}

	return "", fmt.Errorf("API key not configured for provider %s (expected %s or %s)", provider, providerKey, legacyKey)
}

// ResolveProviderConfig builds the ProviderConfig for the configured provider.
// A missing API key is not an error: the resulting config runs locally.
// For Azure, a key without an endpoint is packed with azure_endpoint.
func (c *ConfigurationService) ResolveProviderConfig() (voxtypes.ProviderConfig, error) {
	provider, err := c.Provider()
	if err != nil {
		return voxtypes.ProviderConfig{}, err
	}
	return c.ProviderConfigFor(provider)
}

// ProviderConfigFor builds the ProviderConfig for an explicit provider.
func (c *ConfigurationService) ProviderConfigFor(provider voxtypes.ProviderID) (voxtypes.ProviderConfig, error) {
	if !c.isInitialized() {
		return voxtypes.ProviderConfig{}, fmt.Errorf("configuration service not initialized")
	}

	cfg := voxtypes.ProviderConfig{Provider: provider}
	if provider == voxtypes.ProviderLocal {
		return cfg, nil
	}

	c.mu.RLock()
	if c.v.GetString(ConfigKeyProvider) == provider.String() {
		cfg.Model = c.v.GetString(ConfigKeyModel)
	}
	c.mu.RUnlock()

	apiKey, err := c.GetAPIKey(provider)
	if err != nil {
		logger.Debug("No API key, provider will run locally", "provider", provider)
		return cfg, nil
	}

	if provider == voxtypes.ProviderAzure {
		if _, endpoint := voxtypes.SplitAzureKey(apiKey); endpoint == "" {
			if endpoint = c.azureEndpoint(); endpoint != "" {
				apiKey = voxtypes.PackAzureKey(apiKey, endpoint)
			}
		}
	}
	cfg.APIKey = apiKey
	return cfg, nil
}

func (c *ConfigurationService) azureEndpoint() string {
	if value := c.lookupEnv(envPrefix + "_AZURE_ENDPOINT"); value != "" {
		return value
	}
	if value := c.lookupEnv("AZURE_OPENAI_ENDPOINT"); value != "" {
		return value
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(ConfigKeyAzureEndpoint)
}

// Provider returns the configured provider id.
func (c *ConfigurationService) Provider() (voxtypes.ProviderID, error) {
	if !c.isInitialized() {
		return "", fmt.Errorf("configuration service not initialized")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return voxtypes.ParseProviderID(c.v.GetString(ConfigKeyProvider))
}

// RequestTimeout returns the per-request timeout, defaulting to 30s.
func (c *ConfigurationService) RequestTimeout() time.Duration {
	if !c.isInitialized() {
		return defaultRequestTimeout
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	timeout := c.v.GetDuration(ConfigKeyRequestTimeout)
	if timeout <= 0 {
		return defaultRequestTimeout
	}
	return timeout
}

// Engines returns the selected search engine ids.
func (c *ConfigurationService) Engines() []string {
	if !c.isInitialized() {
		return append([]string(nil), DefaultEngines...)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	engines := c.v.GetStringSlice(ConfigKeyEngines)
	if len(engines) == 0 {
		return append([]string(nil), DefaultEngines...)
	}
	return engines
}

// ExtractionOptions returns the local extraction options.
func (c *ConfigurationService) ExtractionOptions() voxtypes.ExtractionOptions {
	opts := voxtypes.DefaultExtractionOptions()
	if !c.isInitialized() {
		return opts
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n := c.v.GetInt(ConfigKeyMaxKeywords); n > 0 {
		opts.MaxKeywords = n
	}
	return opts
}

// GetConfigValue returns a configuration value as a string.
func (c *ConfigurationService) GetConfigValue(key string) (string, error) {
	if !c.isInitialized() {
		return "", fmt.Errorf("configuration service not initialized")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if key == ConfigKeyEngines {
		return strings.Join(c.v.GetStringSlice(key), ","), nil
	}
	return c.v.GetString(key), nil
}

// Set validates and stores a preference in memory. Call Save to persist it.
// api_key is stored under the currently configured provider.
func (c *ConfigurationService) Set(key, value string) error {
	if !c.isInitialized() {
		return fmt.Errorf("configuration service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch key {
	case ConfigKeyProvider:
		id, err := voxtypes.ParseProviderID(value)
		if err != nil {
			return err
		}
		c.v.Set(key, string(id))
	case ConfigKeyAPIKey:
		c.v.Set(apiKeysPrefix+c.v.GetString(ConfigKeyProvider), value)
	case ConfigKeyRequestTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s %q: expected a positive duration like 30s", key, value)
		}
		c.v.Set(key, d.String())
	case ConfigKeyMaxKeywords:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s %q: expected a positive integer", key, value)
		}
		c.v.Set(key, n)
	case ConfigKeyEngines:
		var engines []string
		for _, engine := range strings.Split(value, ",") {
			if engine = strings.TrimSpace(engine); engine != "" {
				engines = append(engines, engine)
			}
		}
		if len(engines) == 0 {
			return fmt.Errorf("invalid %s: at least one engine is required", key)
		}
		c.v.Set(key, engines)
	case ConfigKeyMarkdownStyle:
		if !IsMarkdownStyle(value) {
			return fmt.Errorf("invalid %s %q (valid styles: %s)", key, value, strings.Join(markdownStyles, ", "))
		}
		c.v.Set(key, value)
	case ConfigKeyModel, ConfigKeyAzureEndpoint, ConfigKeyLogLevel:
		c.v.Set(key, value)
	default:
		return fmt.Errorf("unknown configuration key %q (valid keys: %s)", key, strings.Join(settableKeys, ", "))
	}

	c.explicit[key] = true
	logger.Debug("Configuration value set", "key", key)
	return nil
}

// Save writes the current preferences to the config file, creating its directory.
func (c *ConfigurationService) Save() error {
	if !c.isInitialized() {
		return fmt.Errorf("configuration service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := c.persistable().WriteConfigAs(c.configPath); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", c.configPath, err)
	}
	if err := os.Chmod(c.configPath, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}

	logger.Info("Configuration saved", "path", c.configPath)
	return nil
}

// persistable copies the settings into a fresh viper, putting back the loaded
// value of any key that only a command line flag changed.
func (c *ConfigurationService) persistable() *viper.Viper {
	settings := c.v.AllSettings()
	if c.opts.Flags != nil {
		for name, key := range flagKeys {
			flag := c.opts.Flags.Lookup(name)
			if flag == nil || !flag.Changed || c.explicit[key] {
				continue
			}
			if loaded, ok := c.unflagged[key]; ok {
				settings[key] = loaded
			} else {
				delete(settings, key)
			}
		}
	}

	out := viper.New()
	out.SetConfigType("yaml")
	for key, value := range settings {
		out.Set(key, value)
	}
	return out
}

// ConfigFilePath returns the path preferences are read from and saved to.
func (c *ConfigurationService) ConfigFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configPath
}

// Settings returns the effective settings with API keys masked, sorted by key.
func (c *ConfigurationService) Settings() ([][2]string, error) {
	if !c.isInitialized() {
		return nil, fmt.Errorf("configuration service not initialized")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var rows [][2]string
	for _, key := range c.v.AllKeys() {
		value := c.v.Get(key)
		display := fmt.Sprint(value)
		switch slice := value.(type) {
		case []string:
			display = strings.Join(slice, ",")
		case []any:
			parts := make([]string, len(slice))
			for i, item := range slice {
				parts[i] = fmt.Sprint(item)
			}
			display = strings.Join(parts, ",")
		}
		if key == ConfigKeyAPIKey || strings.HasPrefix(key, apiKeysPrefix) {
			display = MaskSecret(display)
		}
		rows = append(rows, [2]string{key, display})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows, nil
}

func (c *ConfigurationService) isInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// MaskSecret keeps the first and last four characters of long secrets.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// UserConfigDir returns $XDG_CONFIG_HOME/voxsearch, falling back to ~/.config/voxsearch.
func UserConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "voxsearch"), nil
}
