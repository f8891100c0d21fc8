package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/comicpress/pkg/recovery"
)

func volumeInput(t *testing.T, chapters int) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Series")
	for i := 1; i <= chapters; i++ {
		writePage(t, filepath.Join(root, fmt.Sprintf("%03d", i)), "1.png", 60, 80)
	}
	return root
}

func outputs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestExecuteVolumes(t *testing.T) {
	outDir := t.TempDir()
	opts := testOpts(volumeInput(t, 5))
	opts.Output = filepath.Join(outDir, "Series.cbz")

	results, err := NewRunner(nil, nil, nil).ExecuteVolumes(context.Background(), opts, 2)
	if err != nil {
		t.Fatalf("ExecuteVolumes: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	want := []string{"Series - Volume 1.cbz", "Series - Volume 2.cbz", "Series - Volume 3.cbz"}
	if got := outputs(t, outDir); !reflect.DeepEqual(got, want) {
		t.Errorf("outputs = %v, want %v", got, want)
	}

	got := names(zipEntries(t, results[1].Output))
	if want := []string{"003/0001.jpg", "004/0001.jpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("volume 2 entries = %v, want %v", got, want)
	}
}

func TestExecuteVolumesResumes(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()
	store := recovery.NewFileStore(outDir)
	if err := store.Save(ctx, &recovery.State{Done: []string{"001", "002"}, ChaptersPerVolume: 2}); err != nil {
		t.Fatal(err)
	}

	opts := testOpts(volumeInput(t, 5))
	opts.Output = filepath.Join(outDir, "Series.cbz")
	results, err := NewRunner(nil, nil, nil).ExecuteVolumes(ctx, opts, 2)
	if err != nil {
		t.Fatalf("ExecuteVolumes: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	want := []string{"Series - Volume 2.cbz", "Series - Volume 3.cbz"}
	if got := outputs(t, outDir); !reflect.DeepEqual(got, want) {
		t.Errorf("outputs = %v, want %v", got, want)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Errorf("recovery file should be removed after success: %v", err)
	}
}

func TestExecuteVolumesKeepsProgressOnFailure(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()
	input := volumeInput(t, 3)
	good := filepath.Join(input, "001", "1.png")
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(input, "003"), "2.png", string(data[:40]))

	opts := testOpts(input)
	opts.Output = filepath.Join(outDir, "Series.cbz")
	results, err := NewRunner(nil, nil, nil).ExecuteVolumes(ctx, opts, 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}

	st, err := recovery.NewFileStore(outDir).Load(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"001", "002"}; !reflect.DeepEqual(st.Done, want) {
		t.Errorf("Done = %v, want %v", st.Done, want)
	}
}
