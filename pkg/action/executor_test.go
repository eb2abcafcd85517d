package action

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/dupelink/pkg/fsprobe"
	"github.com/sdejongh/dupelink/pkg/hasher"
	"github.com/sdejongh/dupelink/pkg/models"
)

// faultyOps injects failures into selected filesystem calls
type faultyOps struct {
	osOps
	renameErr  func(oldpath, newpath string) error
	linkErr    error
	symlinkErr error
	removeErr  func(name string) error
}

func (f *faultyOps) Rename(oldpath, newpath string) error {
	if f.renameErr != nil {
		if err := f.renameErr(oldpath, newpath); err != nil {
			return err
		}
	}
	return f.osOps.Rename(oldpath, newpath)
}

func (f *faultyOps) Link(oldname, newname string) error {
	if f.linkErr != nil {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: f.linkErr}
	}
	return f.osOps.Link(oldname, newname)
}

func (f *faultyOps) Symlink(oldname, newname string) error {
	if f.symlinkErr != nil {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: f.symlinkErr}
	}
	return f.osOps.Symlink(oldname, newname)
}

func (f *faultyOps) Remove(name string) error {
	if f.removeErr != nil {
		if err := f.removeErr(name); err != nil {
			return err
		}
	}
	return f.osOps.Remove(name)
}

type testTrees struct {
	rootA, rootB string
	master       string
	dup          models.DuplicateFile
}

func setupTrees(t *testing.T) testTrees {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	tt := testTrees{
		rootA: filepath.Join(base, "a"),
		rootB: filepath.Join(base, "b"),
	}
	tt.master = filepath.Join(tt.rootA, "photos", "img.jpg")
	dupPath := filepath.Join(tt.rootB, "backup", "img-copy.jpg")

	for _, p := range []string{tt.master, dupPath} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("identical content"), 0644))
	}
	tt.dup = models.DuplicateFile{Path: dupPath, Root: tt.rootB, Size: 17}
	return tt
}

func assertOriginal(t *testing.T, tt testTrees) {
	t.Helper()
	info, err := os.Lstat(tt.dup.Path)
	require.NoError(t, err, "duplicate must still exist")
	assert.True(t, info.Mode().IsRegular(), "duplicate must be a regular file")
	assert.False(t, fsprobe.IsHardlinkTo(tt.dup.Path, tt.master), "duplicate must not be linked")
	data, err := os.ReadFile(tt.dup.Path)
	require.NoError(t, err)
	assert.Equal(t, "identical content", string(data))
	_, err = os.Lstat(tt.dup.Path + DefaultTempSuffix)
	assert.True(t, os.IsNotExist(err), "temp file must not remain")
}

func TestExecuteInPlace(t *testing.T) {
	ctx := context.Background()

	t.Run("Hardlink", func(t *testing.T) {
		tt := setupTrees(t)
		out := NewExecutor(Options{}, nil).Execute(ctx, tt.dup, tt.master, models.ActionHardlink)

		assert.Equal(t, models.Success{Action: models.ActionHardlink, LinkPath: tt.dup.Path}, out)
		assert.True(t, fsprobe.IsHardlinkTo(tt.dup.Path, tt.master))
		_, err := os.Lstat(tt.dup.Path + DefaultTempSuffix)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Symlink", func(t *testing.T) {
		tt := setupTrees(t)
		out := NewExecutor(Options{}, nil).Execute(ctx, tt.dup, tt.master, models.ActionSymlink)

		assert.Equal(t, models.Success{Action: models.ActionSymlink, LinkPath: tt.dup.Path}, out)
		target, err := os.Readlink(tt.dup.Path)
		require.NoError(t, err)
		assert.Equal(t, tt.master, target, "symlink must point to the absolute master path")
	})

	t.Run("Delete", func(t *testing.T) {
		tt := setupTrees(t)
		out := NewExecutor(Options{}, nil).Execute(ctx, tt.dup, tt.master, models.ActionDelete)

		assert.IsType(t, models.Success{}, out)
		_, err := os.Lstat(tt.dup.Path)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(tt.master)
		assert.NoError(t, err, "master must survive")
	})

	t.Run("CompareDoesNothing", func(t *testing.T) {
		tt := setupTrees(t)
		out := NewExecutor(Options{}, nil).Execute(ctx, tt.dup, tt.master, models.ActionCompare)
		assert.Equal(t, models.Skipped{Reason: models.SkipCompareOnly}, out)
		assertOriginal(t, tt)
	})
}

func TestExecuteIdempotent(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		action models.ActionKind
		reason string
	}{
		{models.ActionHardlink, models.SkipAlreadyHardlinked},
		{models.ActionSymlink, models.SkipAlreadySymlinked},
	}

	for _, tc := range tests {
		t.Run(string(tc.action), func(t *testing.T) {
			tt := setupTrees(t)
			e := NewExecutor(Options{}, nil)

			require.IsType(t, models.Success{}, e.Execute(ctx, tt.dup, tt.master, tc.action))
			for i := 0; i < 2; i++ {
				assert.Equal(t, models.Skipped{Reason: tc.reason}, e.Execute(ctx, tt.dup, tt.master, tc.action))
			}
			// any action on an already-linked duplicate is skipped
			assert.Equal(t, models.Skipped{Reason: tc.reason}, e.Execute(ctx, tt.dup, tt.master, models.ActionDelete))
		})
	}
}

func TestExecuteFailuresLeaveOriginal(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	t.Run("TempPathTaken", func(t *testing.T) {
		tt := setupTrees(t)
		temp := tt.dup.Path + DefaultTempSuffix
		require.NoError(t, os.WriteFile(temp, []byte("someone else's"), 0644))

		out := NewExecutor(Options{}, nil).Execute(ctx, tt.dup, tt.master, models.ActionHardlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, ErrAlreadyExists)

		data, err := os.ReadFile(temp)
		require.NoError(t, err)
		assert.Equal(t, "someone else's", string(data), "existing temp file must not be touched")
		data, err = os.ReadFile(tt.dup.Path)
		require.NoError(t, err)
		assert.Equal(t, "identical content", string(data))
	})

	t.Run("RenameFails", func(t *testing.T) {
		tt := setupTrees(t)
		e := NewExecutor(Options{}, nil)
		e.ops = &faultyOps{renameErr: func(string, string) error { return errBoom }}

		out := e.Execute(ctx, tt.dup, tt.master, models.ActionHardlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, errBoom)
		assert.Nil(t, failed.RollbackErr)
		assertOriginal(t, tt)
	})

	t.Run("LinkFailsRollsBack", func(t *testing.T) {
		tt := setupTrees(t)
		e := NewExecutor(Options{FallbackToSymlink: true}, nil)
		e.ops = &faultyOps{linkErr: os.ErrPermission}

		out := e.Execute(ctx, tt.dup, tt.master, models.ActionHardlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, os.ErrPermission)
		assert.Nil(t, failed.RollbackErr)
		assertOriginal(t, tt)
	})

	t.Run("SymlinkFailsRollsBack", func(t *testing.T) {
		tt := setupTrees(t)
		e := NewExecutor(Options{}, nil)
		e.ops = &faultyOps{symlinkErr: errBoom}

		out := e.Execute(ctx, tt.dup, tt.master, models.ActionSymlink)
		require.IsType(t, models.Failed{}, out)
		assertOriginal(t, tt)
	})

	t.Run("TempRemovalFailsRollsBack", func(t *testing.T) {
		tt := setupTrees(t)
		temp := tt.dup.Path + DefaultTempSuffix
		e := NewExecutor(Options{}, nil)
		e.ops = &faultyOps{removeErr: func(name string) error {
			if name == temp {
				return errBoom
			}
			return nil
		}}

		out := e.Execute(ctx, tt.dup, tt.master, models.ActionHardlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, errBoom)
		assertOriginal(t, tt)
	})

	t.Run("MasterMissing", func(t *testing.T) {
		tt := setupTrees(t)
		require.NoError(t, os.Remove(tt.master))

		out := NewExecutor(Options{}, nil).Execute(ctx, tt.dup, tt.master, models.ActionSymlink)
		require.IsType(t, models.Failed{}, out)
		data, err := os.ReadFile(tt.dup.Path)
		require.NoError(t, err)
		assert.Equal(t, "identical content", string(data))
	})
}

func TestExecuteRollbackFailure(t *testing.T) {
	tt := setupTrees(t)
	temp := tt.dup.Path + DefaultTempSuffix

	e := NewExecutor(Options{}, nil)
	e.ops = &faultyOps{
		linkErr: os.ErrPermission,
		renameErr: func(oldpath, newpath string) error {
			if oldpath == temp {
				return errors.New("restore refused")
			}
			return nil
		},
	}

	out := e.Execute(context.Background(), tt.dup, tt.master, models.ActionHardlink)
	failed, ok := out.(models.Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed, os.ErrPermission)
	require.Error(t, failed.RollbackErr)
	assert.Equal(t, temp, failed.OrphanedTemp)
	assert.Contains(t, failed.Error(), "temp file left at "+temp)

	data, err := os.ReadFile(temp)
	require.NoError(t, err, "original content must survive in the temp file")
	assert.Equal(t, "identical content", string(data))
}

func TestExecuteVerify(t *testing.T) {
	ctx := context.Background()
	h, err := hasher.New(hasher.DefaultConfig())
	require.NoError(t, err)

	t.Run("Mismatch", func(t *testing.T) {
		tt := setupTrees(t)
		require.NoError(t, os.WriteFile(tt.dup.Path, []byte("identical contenT"), 0644))

		e := NewExecutor(Options{Verify: true}, nil)
		e.SetVerifier(h)
		out := e.Execute(ctx, tt.dup, tt.master, models.ActionDelete)

		failed, ok := out.(models.Failed)
		require.True(t, ok)
		var mismatch *hasher.Mismatch
		assert.ErrorAs(t, failed, &mismatch)
		_, err := os.Stat(tt.dup.Path)
		assert.NoError(t, err, "mismatching duplicate must not be deleted")
	})

	t.Run("Match", func(t *testing.T) {
		tt := setupTrees(t)
		e := NewExecutor(Options{Verify: true}, nil)
		e.SetVerifier(h)
		assert.IsType(t, models.Success{}, e.Execute(ctx, tt.dup, tt.master, models.ActionHardlink))
	})

	t.Run("NoVerifier", func(t *testing.T) {
		tt := setupTrees(t)
		out := NewExecutor(Options{Verify: true}, nil).Execute(ctx, tt.dup, tt.master, models.ActionHardlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, ErrUnsupported)
		assertOriginal(t, tt)
	})
}

func TestExecuteInTarget(t *testing.T) {
	ctx := context.Background()

	newTarget := func(t *testing.T, tt testTrees) string {
		return filepath.Join(filepath.Dir(tt.rootA), "target")
	}

	t.Run("Hardlink", func(t *testing.T) {
		tt := setupTrees(t)
		target := newTarget(t, tt)
		out := NewExecutor(Options{TargetDir: target}, nil).Execute(ctx, tt.dup, tt.master, models.ActionHardlink)

		dest := filepath.Join(target, "backup", "img-copy.jpg")
		assert.Equal(t, models.Success{Action: models.ActionHardlink, LinkPath: dest}, out)
		assert.True(t, fsprobe.IsHardlinkTo(dest, tt.master))
		_, err := os.Lstat(tt.dup.Path)
		assert.True(t, os.IsNotExist(err), "duplicate must be removed")
	})

	t.Run("DeleteUnsupported", func(t *testing.T) {
		tt := setupTrees(t)
		out := NewExecutor(Options{TargetDir: newTarget(t, tt)}, nil).Execute(ctx, tt.dup, tt.master, models.ActionDelete)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, ErrUnsupported)
		assertOriginal(t, tt)
	})

	t.Run("DestinationExists", func(t *testing.T) {
		tt := setupTrees(t)
		target := newTarget(t, tt)
		dest := filepath.Join(target, "backup", "img-copy.jpg")
		require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
		require.NoError(t, os.WriteFile(dest, []byte("occupied"), 0644))

		out := NewExecutor(Options{TargetDir: target}, nil).Execute(ctx, tt.dup, tt.master, models.ActionSymlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, ErrAlreadyExists)
		assertOriginal(t, tt)
	})

	t.Run("RemovalFailsCleansTarget", func(t *testing.T) {
		tt := setupTrees(t)
		target := newTarget(t, tt)
		e := NewExecutor(Options{TargetDir: target}, nil)
		e.ops = &faultyOps{removeErr: func(name string) error {
			if name == tt.dup.Path {
				return os.ErrPermission
			}
			return nil
		}}

		out := e.Execute(ctx, tt.dup, tt.master, models.ActionSymlink)
		require.IsType(t, models.Failed{}, out)
		_, err := os.Lstat(filepath.Join(target, "backup", "img-copy.jpg"))
		assert.True(t, os.IsNotExist(err), "partial target link must be removed")
		assertOriginal(t, tt)
	})

	t.Run("OutsideTree", func(t *testing.T) {
		tt := setupTrees(t)
		dup := tt.dup
		dup.Root = filepath.Join(tt.rootB, "backup", "elsewhere")
		out := NewExecutor(Options{TargetDir: newTarget(t, tt)}, nil).Execute(ctx, dup, tt.master, models.ActionHardlink)
		failed, ok := out.(models.Failed)
		require.True(t, ok)
		assert.ErrorIs(t, failed, ErrUnsupported)
	})
}
