package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig_Agent verifies agent defaults
func TestDefaultConfig_Agent(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Agent.Name == "" {
		t.Error("Agent name should not be empty")
	}
	if cfg.Agent.Workspace == "" {
		t.Error("Workspace should not be empty")
	}
	if cfg.Agent.DefaultScope != "dialog" {
		t.Errorf("DefaultScope = %q, want %q", cfg.Agent.DefaultScope, "dialog")
	}
	if cfg.Agent.MaxResolverPasses != 10 {
		t.Errorf("MaxResolverPasses = %d, want 10", cfg.Agent.MaxResolverPasses)
	}
}

// TestDefaultConfig_Channels verifies channel defaults
func TestDefaultConfig_Channels(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Channels.Console.Enabled {
		t.Error("Console channel should be enabled by default")
	}
	if cfg.Channels.Discord.Enabled {
		t.Error("Discord channel should be disabled by default")
	}
	if cfg.Channels.Discord.Token != "" {
		t.Error("Discord token should be empty by default")
	}
}

// TestDefaultConfig_Storage verifies storage defaults
func TestDefaultConfig_Storage(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage driver = %q, want %q", cfg.Storage.Driver, "sqlite")
	}
	if cfg.Storage.Path == "" {
		t.Error("Storage path should not be empty")
	}
}

// TestDefaultConfig_Gateway verifies gateway defaults
func TestDefaultConfig_Gateway(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.Host != "0.0.0.0" {
		t.Error("Gateway host should have default value")
	}
	if cfg.Gateway.Port == 0 {
		t.Error("Gateway port should have default value")
	}
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}
	if cfg.Agent.Name != "agenthost" {
		t.Errorf("Agent name = %q, want default", cfg.Agent.Name)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"agent": {"name": "greeter", "default_scope": "user"}, "channels": {"discord": {"allow_from": ["alice", 42]}}}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Agent.Name != "greeter" {
		t.Errorf("Agent name = %q, want %q", cfg.Agent.Name, "greeter")
	}
	if cfg.Agent.DefaultScope != "user" {
		t.Errorf("DefaultScope = %q, want %q", cfg.Agent.DefaultScope, "user")
	}
	// Numeric allow_from entries are coerced to strings.
	got := []string(cfg.Channels.Discord.AllowFrom)
	if len(got) != 2 || got[0] != "alice" || got[1] != "42" {
		t.Errorf("AllowFrom = %v, want [alice 42]", got)
	}
}

func TestLoadConfig_EnvOverlay(t *testing.T) {
	t.Setenv("AGENTHOST_AGENT_DEFAULT_SCOPE", "conversation")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Agent.DefaultScope != "conversation" {
		t.Errorf("DefaultScope = %q, want env override", cfg.Agent.DefaultScope)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Agent.Name = "roundtrip"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Agent.Name != "roundtrip" {
		t.Errorf("Agent name = %q after round trip", loaded.Agent.Name)
	}
}

func TestSettings_ExposesJSONKeys(t *testing.T) {
	cfg := DefaultConfig()
	settings := cfg.Settings()

	agent, ok := settings["agent"].(map[string]any)
	if !ok {
		t.Fatalf("settings[agent] missing or wrong type: %T", settings["agent"])
	}
	if agent["default_scope"] != "dialog" {
		t.Errorf("settings.agent.default_scope = %v, want dialog", agent["default_scope"])
	}
	gateway, ok := settings["gateway"].(map[string]any)
	if !ok {
		t.Fatal("settings[gateway] missing")
	}
	// JSON numbers come back as float64 in a plain value graph.
	if gateway["port"].(float64) != 18890 {
		t.Errorf("settings.gateway.port = %v, want 18890", gateway["port"])
	}
}
