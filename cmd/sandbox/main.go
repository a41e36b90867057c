// Command sandbox launches an unprivileged Linux container: a rootfs
// directory, a set of additional mounts, and a command to run inside it.
package main

import (
	"fmt"
	"os"

	"github.com/moby/sys/reexec"
	"github.com/spf13/cobra"

	"github.com/havenrun/sandboxkit/internal/bringup"
	"github.com/havenrun/sandboxkit/internal/logger"
	"github.com/havenrun/sandboxkit/internal/mountspec"
)

func main() {
	// reexec.Init() must run before anything else: if this process was
	// launched by Supervisor.Run as the container-init reexec target,
	// Init() recognizes argv[0] and jumps straight into containerInitMain
	// without ever reaching cobra.
	if reexec.Init() {
		return
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		rootfs     string
		cwd        string
		mountFlags []string
		persist    string
		entrypoint string
		uid        int
		gid        int
		tmpfsSize  string
		userxattr  bool
		hostname   string
		verbose    bool
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "sandbox --rootfs <dir> [flags] -- <cmd> [args...]",
		Short: "Run a command inside an unprivileged Linux namespace sandbox",
		Example: "  mkdir -p /tmp/workspace\n" +
			"  sandbox --verbose --rootfs $rootfs_path --mount /tmp/workspace:/workspace --cd /workspace -- /bin/bash",
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			targetArgv := args
			if entrypoint != "" {
				targetArgv = append([]string{entrypoint}, targetArgv...)
			}
			if len(targetArgv) == 0 {
				return fmt.Errorf("no <cmd> given")
			}

			// Leave tmpfs size unset unless --tmpfs-size was given, so a
			// --config file can supply it; the flag's default applies last.
			size := tmpfsSize
			if !cmd.Flags().Changed("tmpfs-size") {
				size = ""
			}
			cfg, err := buildConfig(rootfs, cwd, persist, size, hostname, configFile, uid, gid, userxattr, verbose, mountFlags)
			if err != nil {
				return err
			}
			if cfg.TmpfsSize == "" {
				cfg.TmpfsSize = tmpfsSize
			}

			if err := logger.Init(cfg.Verbose, ""); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if cfg.Verbose {
				logger.Info("sandbox starting", "mode", cfg.Mode.String(), "rootfs", cfg.Rootfs)
			}

			sup := &bringup.Supervisor{Config: cfg}
			code, err := sup.Run(targetArgv)
			if err != nil {
				logger.Error("sandbox failed", "err", err)
			}
			os.Exit(code)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&rootfs, "rootfs", "", "path to the container root filesystem (required)")
	flags.StringVar(&cwd, "cd", "", "working directory inside the container to start in")
	flags.StringArrayVar(&mountFlags, "mount", nil, "from:to[:rw|ro|ov], repeatable")
	flags.StringVar(&persist, "persist", "", "host directory to persist overlay changes in (default: ephemeral tmpfs)")
	flags.StringVar(&entrypoint, "entrypoint", "", "prepend this executable to <cmd>")
	flags.IntVar(&uid, "uid", 0, "uid to map the caller to inside the container")
	flags.IntVar(&gid, "gid", 0, "gid to map the caller to inside the container")
	flags.StringVar(&tmpfsSize, "tmpfs-size", "1G", "size of the ephemeral workspace tmpfs when --persist is not given")
	flags.BoolVar(&userxattr, "userxattr", false, "mount overlays with the userxattr option")
	flags.StringVar(&hostname, "hostname", "", "hostname to set inside the container")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose diagnostic output")
	flags.StringVar(&configFile, "config", "", "optional YAML file of defaults to merge under CLI flags")

	return cmd
}

func buildConfig(rootfs, cwd, persist, tmpfsSize, hostname, configFile string, uid, gid int, userxattr, verbose bool, mountFlags []string) (*mountspec.Config, error) {
	mounts := make([]mountspec.MountSpec, 0, len(mountFlags))
	for _, raw := range mountFlags {
		m, err := mountspec.ParseMountFlag(raw)
		if err != nil {
			// A single bad --mount shouldn't sink an otherwise-valid
			// invocation; skip it and keep going, same as the original.
			fmt.Fprintf(os.Stderr, "WARNING: %v, ignoring\n", err)
			continue
		}
		mounts = append(mounts, m)
	}

	euid := os.Geteuid()
	mode, err := mountspec.DetectMode(euid)
	if err != nil {
		return nil, err
	}

	srcUID, srcGID := mountspec.ResolveOutsideIdentity(os.Getuid, os.Getgid)

	cfg := &mountspec.Config{
		Rootfs:    mountspec.NormalizeRootfs(rootfs),
		Cwd:       cwd,
		Persist:   persist,
		TmpfsSize: tmpfsSize,
		DstUID:    uid,
		DstGID:    gid,
		SrcUID:    srcUID,
		SrcGID:    srcGID,
		Hostname:  hostname,
		UserXattr: userxattr,
		Verbose:   verbose,
		Mode:      mode,
		Mounts:    mounts,
	}

	if configFile != "" {
		fd, err := mountspec.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		if err := fd.ApplyDefaults(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
