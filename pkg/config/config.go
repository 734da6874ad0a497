package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Channels  ChannelsConfig  `json:"channels"`
	Storage   StorageConfig   `json:"storage"`
	Gateway   GatewayConfig   `json:"gateway"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	mu        sync.RWMutex
}

type AgentConfig struct {
	Name      string `json:"name" env:"AGENTHOST_AGENT_NAME"`
	Workspace string `json:"workspace" env:"AGENTHOST_AGENT_WORKSPACE"`
	Locale    string `json:"locale" env:"AGENTHOST_AGENT_LOCALE"`
	// DefaultScope is where unqualified state paths bind (see pkg/dialogs).
	DefaultScope string `json:"default_scope" env:"AGENTHOST_AGENT_DEFAULT_SCOPE"`
	// MaxResolverPasses caps alias rewriting in the dialog state manager.
	MaxResolverPasses int `json:"max_resolver_passes" env:"AGENTHOST_AGENT_MAX_RESOLVER_PASSES"`
}

type ChannelsConfig struct {
	Console ConsoleConfig `json:"console"`
	Discord DiscordConfig `json:"discord"`
}

type ConsoleConfig struct {
	Enabled bool   `json:"enabled" env:"AGENTHOST_CHANNELS_CONSOLE_ENABLED"`
	UserID  string `json:"user_id" env:"AGENTHOST_CHANNELS_CONSOLE_USER_ID"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled" env:"AGENTHOST_CHANNELS_DISCORD_ENABLED"`
	Token     string              `json:"token" env:"AGENTHOST_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"AGENTHOST_CHANNELS_DISCORD_ALLOW_FROM"`
}

type StorageConfig struct {
	// Driver selects the state store backend: "memory" or "sqlite".
	Driver string `json:"driver" env:"AGENTHOST_STORAGE_DRIVER"`
	Path   string `json:"path" env:"AGENTHOST_STORAGE_PATH"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"AGENTHOST_GATEWAY_HOST"`
	Port int    `json:"port" env:"AGENTHOST_GATEWAY_PORT"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled" env:"AGENTHOST_SCHEDULER_ENABLED"`
	// TickSeconds is how often due jobs are evaluated, min 1.
	TickSeconds int `json:"tick_seconds" env:"AGENTHOST_SCHEDULER_TICK_SECONDS"`
}

type LoggingConfig struct {
	Level string `json:"level" env:"AGENTHOST_LOGGING_LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:              "agenthost",
			Workspace:         "~/.agenthost/workspace",
			Locale:            "en-US",
			DefaultScope:      "dialog",
			MaxResolverPasses: 10,
		},
		Channels: ChannelsConfig{
			Console: ConsoleConfig{
				Enabled: true,
				UserID:  "console-user",
			},
			Discord: DiscordConfig{
				Enabled:   false,
				Token:     "",
				AllowFrom: FlexibleStringSlice{},
			},
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "~/.agenthost/workspace/state/agent-state.db",
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18890,
		},
		Scheduler: SchedulerConfig{
			Enabled:     true,
			TickSeconds: 15,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Agent.Workspace)
}

func (c *Config) StoragePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Storage.Path)
}

// Settings returns the configuration as a plain value graph. This is what
// the "settings" memory scope exposes to dialog path expressions, so keys
// follow the JSON field names.
func (c *Config) Settings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	view := struct {
		Agent     AgentConfig     `json:"agent"`
		Channels  ChannelsConfig  `json:"channels"`
		Storage   StorageConfig   `json:"storage"`
		Gateway   GatewayConfig   `json:"gateway"`
		Scheduler SchedulerConfig `json:"scheduler"`
		Logging   LoggingConfig   `json:"logging"`
	}{c.Agent, c.Channels, c.Storage, c.Gateway, c.Scheduler, c.Logging}

	data, err := json.Marshal(view)
	if err != nil {
		return map[string]any{}
	}

	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
