package imp

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Typecheck bool           `toml:"typecheck"`
	FreshEnv  bool           `toml:"fresh_env"`
	Legacy    bool           `toml:"legacy"`
	Log       LogConfig      `toml:"log"`
	Snapshot  SnapshotConfig `toml:"snapshot"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// SnapshotConfig selects where final environments are stored. An empty
// Driver disables snapshots.
type SnapshotConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

func DefaultConfig() Config {
	return Config{
		Typecheck: true,
		FreshEnv:  true,
		Log: LogConfig{
			Level: "none",
		},
	}
}

// LoadConfig reads a TOML file over the defaults. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return cfg, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Snapshot.Driver {
	case "":
	case DriverSQLite, DriverMySQL:
		if c.Snapshot.DSN == "" {
			return fmt.Errorf("snapshot: driver %s needs a dsn", c.Snapshot.Driver)
		}
	default:
		return fmt.Errorf("snapshot: unsupported driver %q", c.Snapshot.Driver)
	}

	return nil
}
