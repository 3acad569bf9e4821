package sandbox

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/sys/mountinfo"

	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/system"
)

// removeTree deletes the directory at path. Filesystems mounted below it
// are unmounted first, and rm never crosses into another filesystem, so a
// stray bind mount of host data is left untouched.
func (r *Reaper) removeTree(ctx context.Context, path string) error {
	info, err := r.fs().Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fraerrors.IOFailure("failed to stat "+path, err)
	}
	if !info.IsDir() {
		return nil
	}

	mounts, err := nestedMounts(path)
	if err != nil {
		return fraerrors.IOFailure("failed to list mounts under "+path, err)
	}
	if len(mounts) > 0 {
		logging.Debug("unmounting nested filesystems", "path", path, "mounts", mounts)
		args := append([]string{"-fR"}, mounts...)
		if err := system.Check(ctx, r.Runner, system.NewCommand(r.Tools.Umount, args...)); err != nil {
			return err
		}
	}

	return system.Check(ctx, r.Runner, system.NewCommand(r.Tools.Rm, "--one-file-system", "-rf", path))
}

// nestedMounts returns the outermost mountpoints strictly below path.
// Recursive unmounting takes care of anything stacked beneath them.
func nestedMounts(path string) ([]string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, err
	}
	resolved = filepath.Clean(resolved)

	infos, err := mountinfo.GetMounts(mountinfo.PrefixFilter(resolved))
	if err != nil {
		return nil, err
	}

	points := make([]string, 0, len(infos))
	for _, m := range infos {
		if m.Mountpoint != resolved {
			points = append(points, m.Mountpoint)
		}
	}
	return outermost(points), nil
}

// outermost drops every mountpoint that lies below another one in the list.
func outermost(points []string) []string {
	sorted := append([]string(nil), points...)
	sort.Strings(sorted)

	var out []string
	for _, p := range sorted {
		if !covered(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func covered(parents []string, p string) bool {
	for _, parent := range parents {
		if p == parent || strings.HasPrefix(p, parent+"/") {
			return true
		}
	}
	return false
}
