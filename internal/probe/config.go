// Package probe implements the reduced bring-up used to answer one
// question before a real sandbox ever runs: can this kernel mount an
// overlayfs inside a user namespace, with the options requested, well
// enough to survive a cross-directory rename? Many container workloads
// (package managers especially) fail in subtle ways on kernels where
// overlayfs redirect_dir handling disagrees with the requested mount
// options; this catches that before the real sandbox commits to it.
package probe

import (
	"encoding/json"
	"fmt"
	"os"
)

const configEnvVar = "SANDBOXKIT_PROBE_CONFIG"

// Config is what the probe's cloned child needs to know, carried across
// the reexec boundary as JSON in an environment variable.
type Config struct {
	RootfsDir string `json:"rootfs_dir"`
	ParentDir string `json:"parent_dir"`
	Tmpfs     bool   `json:"tmpfs"`
	UserXattr bool   `json:"userxattr"`
	DstUID    int    `json:"dst_uid"`
	DstGID    int    `json:"dst_gid"`
	Verbose   bool   `json:"verbose"`
}

func marshalConfigEnv(cfg *Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal probe config: %w", err)
	}
	return configEnvVar + "=" + string(data), nil
}

func unmarshalConfigEnv() (*Config, error) {
	raw := os.Getenv(configEnvVar)
	if raw == "" {
		return nil, fmt.Errorf("%s not set in probe child environment", configEnvVar)
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal probe config: %w", err)
	}
	return &cfg, nil
}
