// Command probe answers one question: can this kernel mount an overlayfs
// inside a user namespace, with the requested options, well enough to
// survive a cross-directory rename. It's meant to run once ahead of the
// real sandbox, to fail fast with a clear diagnostic instead of deep
// inside a package manager's install step.
package main

import (
	"fmt"
	"os"

	"github.com/moby/sys/reexec"
	"github.com/spf13/cobra"

	"github.com/havenrun/sandboxkit/internal/logger"
	"github.com/havenrun/sandboxkit/internal/mountspec"
	"github.com/havenrun/sandboxkit/internal/probe"
)

func main() {
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
		userxattr bool
		tmpfs     bool
		uid       int
		gid       int
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "probe [flags] <rootfs_dir> <work_parent_dir>",
		Short: "Probe whether this kernel supports the overlay mount options a sandbox needs",
		Example: "  probe --verbose --userxattr --tmpfs ${HOME}/rootfs /tmp\n",
		Args:    cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(verbose, ""); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			cfg := &probe.Config{
				RootfsDir: args[0],
				ParentDir: args[1],
				Tmpfs:     tmpfs,
				UserXattr: userxattr,
				DstUID:    uid,
				DstGID:    gid,
				Verbose:   verbose,
			}

			srcUID, srcGID := mountspec.ResolveOutsideIdentity(os.Getuid, os.Getgid)
			ok, err := probe.Run(cfg, srcUID, srcGID)
			if err != nil {
				return err
			}
			if !ok {
				os.Exit(1)
			}
			if verbose {
				fmt.Fprintf(os.Stderr, "---> probe of %s successful!\n", args[1])
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&userxattr, "userxattr", false, "mount the overlay with the userxattr option")
	flags.BoolVar(&tmpfs, "tmpfs", false, "mount a tmpfs for the probe's work directory")
	flags.IntVar(&uid, "uid", 0, "uid the probe child should map to inside its namespace")
	flags.IntVar(&gid, "gid", 0, "gid the probe child should map to inside its namespace")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose diagnostic output")

	return cmd
}
