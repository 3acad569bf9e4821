package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/firefly-engineering/fragile/internal/system"
)

func TestOutermost(t *testing.T) {
	tests := []struct {
		name   string
		points []string
		want   []string
	}{
		{"empty", nil, nil},
		{"single", []string{"/r/a"}, []string{"/r/a"}},
		{"nested", []string{"/r/a/b", "/r/a", "/r/a/b/c"}, []string{"/r/a"}},
		{"siblings", []string{"/r/b", "/r/a"}, []string{"/r/a", "/r/b"}},
		{"shared prefix", []string{"/r/a", "/r/a-b", "/r/a/b", "/r/a-b/c"}, []string{"/r/a", "/r/a-b"}},
		{"duplicate", []string{"/r/a", "/r/a"}, []string{"/r/a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outermost(tt.points); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("outermost(%v) = %v, want %v", tt.points, got, tt.want)
			}
		})
	}
}

func TestRemoveTree(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, path string)
		wantLines func(path string) []string
	}{
		{
			name:      "missing",
			setup:     func(t *testing.T, path string) {},
			wantLines: func(string) []string { return nil },
		},
		{
			name: "regular file is left alone",
			setup: func(t *testing.T, path string) {
				if err := os.WriteFile(path, nil, 0644); err != nil {
					t.Fatal(err)
				}
			},
			wantLines: func(string) []string { return nil },
		},
		{
			name: "directory without mounts",
			setup: func(t *testing.T, path string) {
				if err := os.MkdirAll(filepath.Join(path, "a", "b"), 0755); err != nil {
					t.Fatal(err)
				}
			},
			wantLines: func(path string) []string {
				return []string{"rm --one-file-system -rf " + path}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := system.NewMockRunner()
			f := newFixture(t, runner)
			path := filepath.Join(f.dir, "tree")
			tt.setup(t, path)

			if err := f.reaper.removeTree(context.Background(), path); err != nil {
				t.Fatalf("removeTree failed: %v", err)
			}
			want := tt.wantLines(path)
			got := runner.CommandLines()
			if len(got) != len(want) || (len(want) > 0 && !reflect.DeepEqual(got, want)) {
				t.Errorf("commands = %q, want %q", got, want)
			}
		})
	}
}

func TestRemoveTree_Real(t *testing.T) {
	f := newFixture(t, nil)
	path := filepath.Join(f.dir, "tree")
	if err := os.MkdirAll(filepath.Join(path, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "a", "b", "file"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := f.reaper.removeTree(context.Background(), path); err != nil {
		t.Fatalf("removeTree failed: %v", err)
	}
	assertAbsent(t, path)
}

func TestNestedMounts_NoMounts(t *testing.T) {
	mounts, err := nestedMounts(t.TempDir())
	if err != nil {
		t.Fatalf("nestedMounts failed: %v", err)
	}
	if len(mounts) != 0 {
		t.Errorf("mounts = %v, want none", mounts)
	}
}
