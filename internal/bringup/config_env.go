package bringup

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/havenrun/sandboxkit/internal/mountspec"
)

// configEnvVar carries the parsed Config across the self-reexec boundary.
// The target program's own argv travels as the reexec'd command's
// argument list instead, so only the configuration needs encoding here.
const configEnvVar = "SANDBOXKIT_CONFIG"

func marshalConfigEnv(cfg *mountspec.Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return configEnvVar + "=" + string(data), nil
}

func unmarshalConfigEnv() (*mountspec.Config, error) {
	raw := os.Getenv(configEnvVar)
	if raw == "" {
		return nil, fmt.Errorf("%s not set in container-init environment", configEnvVar)
	}
	var cfg mountspec.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
