// Package userns configures a child process's user namespace id mappings
// through the three-file /proc/<pid>/{uid_map,setgroups,gid_map} protocol,
// and detects whether the current process is already confined to one.
package userns

import (
	"fmt"
	"os"

	mobyuserns "github.com/moby/sys/userns"
)

// Configure maps src_uid:src_gid (the identity outside the namespace) to
// dst_uid:dst_gid (the identity the process will see inside it) for the
// namespace owned by pid. The target process must already have called
// unshare(CLONE_NEWUSER) — or been cloned with it — and be blocked waiting
// for this call to finish before it proceeds, since uid_map/gid_map can
// only be written once and only from outside the namespace.
//
// setgroups must be written "deny" before gid_map, or the kernel refuses
// the gid_map write for any unprivileged caller; this ordering is not
// optional.
func Configure(pid, srcUID, srcGID, dstUID, dstGID int) error {
	if err := writeIDMap(pid, "uid_map", dstUID, srcUID); err != nil {
		return fmt.Errorf("write uid_map: %w", err)
	}
	if err := writeProcFile(pid, "setgroups", []byte("deny\x00")); err != nil {
		return fmt.Errorf("write setgroups: %w", err)
	}
	if err := writeIDMap(pid, "gid_map", dstGID, srcGID); err != nil {
		return fmt.Errorf("write gid_map: %w", err)
	}
	return nil
}

func writeIDMap(pid int, file string, inside, outside int) error {
	return writeProcFile(pid, file, []byte(formatIDMap(inside, outside)))
}

// formatIDMap renders one tab-separated id_map line:
// "<inside>\t<outside>\t<count>\n",
// mapping a single id with count 1, matching the uid_map/gid_map format
// documented in user_namespaces(7).
func formatIDMap(inside, outside int) string {
	return fmt.Sprintf("%d\t%d\t1\n", inside, outside)
}

func writeProcFile(pid int, file string, data []byte) error {
	path := fmt.Sprintf("/proc/%d/%s", pid, file)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := f.Write(data)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if n != len(data) {
		return fmt.Errorf("short write to %s: wrote %d of %d bytes", path, n, len(data))
	}
	return nil
}

// DetectNested reports whether the current process is already running
// inside a user namespace other than the initial one. A sandbox launched
// from within another sandbox has to fall back to chroot instead of
// pivot_root, since a nested mount namespace frequently can't pivot_root
// into a filesystem the outer sandbox itself only bind-mounted in.
func DetectNested() bool {
	return mobyuserns.RunningInUserNS()
}
