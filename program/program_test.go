package program

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/chazu/intcode/vm"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		src  string
		want []int64
	}{
		{"1,0,0,0,99", []int64{1, 0, 0, 0, 99}},
		{"1002,4,3,4,33\n", []int64{1002, 4, 3, 4, 33}},
		{" 1, -2 ,3,\n", []int64{1, -2, 3}},
		{"", []int64{}},
		{"9223372036854775807,-9223372036854775808", []int64{math.MaxInt64, math.MinInt64}},
	}

	for _, tt := range tests {
		got, err := ParseText(tt.src)
		if err != nil {
			t.Fatalf("ParseText(%q) failed: %v", tt.src, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("ParseText(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestParseTextErrors(t *testing.T) {
	for _, src := range []string{"1,,2", "1,x,2", "99999999999999999999", ",1"} {
		if _, err := ParseText(src); err == nil {
			t.Errorf("ParseText(%q) should fail", src)
		}
	}
}

func TestMarshalText(t *testing.T) {
	if got := MarshalText([]int64{30, 1, -1, 4}); got != "30,1,-1,4" {
		t.Errorf("MarshalText = %q", got)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"day5.ic", FormatText},
		{"day5.txt", FormatText},
		{"snap.icb", FormatCBOR},
		{"SNAP.CBOR", FormatCBOR},
		{"snap.icw", FormatWire},
	}
	for _, tt := range tests {
		if got := FormatFor(tt.path); got != tt.want {
			t.Errorf("FormatFor(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{FormatText, FormatCBOR, FormatWire} {
		got, err := ParseFormat(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %s, %v", f.String(), got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) should fail")
	}
}

func TestBinaryImagesPreserveState(t *testing.T) {
	img := &Image{
		Memory: []int64{1002, 4, 3, 4, 99, math.MinInt64, math.MaxInt64, -1},
		PC:     -1,
		State:  "halted",
	}

	for _, f := range []Format{FormatCBOR, FormatWire} {
		data, err := Encode(f, img)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", f, err)
		}
		got, err := Decode(f, data)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", f, err)
		}
		if !slices.Equal(got.Memory, img.Memory) || got.PC != img.PC || got.State != img.State {
			t.Errorf("%s image = %+v, want %+v", f, got, img)
		}
	}
}

func TestCBORIsCanonical(t *testing.T) {
	a, err := MarshalCBOR(&Image{Memory: []int64{1, 2}, PC: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalCBOR(&Image{Memory: []int64{1, 2}, PC: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a, b) {
		t.Error("equal images encoded differently")
	}
}

func TestUnmarshalWireRejectsTruncatedData(t *testing.T) {
	data := MarshalWire(&Image{Memory: []int64{1, 2, 3}})
	if _, err := UnmarshalWire(data[:len(data)-1]); err == nil {
		t.Error("expected error for truncated wire image")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	img := &Image{Memory: []int64{3, 0, 4, 0, 99}, PC: 2}

	for _, name := range []string{"p.ic", "p.icb", "p.icw"} {
		path := filepath.Join(dir, name)
		if err := Save(path, img); err != nil {
			t.Fatalf("Save(%s) failed: %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", name, err)
		}
		if !slices.Equal(got.Memory, img.Memory) {
			t.Errorf("%s memory = %v", name, got.Memory)
		}
		wantPC := img.PC
		if FormatFor(path) == FormatText {
			wantPC = 0
		}
		if got.PC != wantPC {
			t.Errorf("%s pc = %d, want %d", name, got.PC, wantPC)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ic")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ic")
	if err := os.WriteFile(path, []byte("1,two,3"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestResumeFromImage(t *testing.T) {
	// Stops after the first OUTPUT by running off a truncated copy, then
	// resumes on the full program from the saved pc.
	full := []int64{104, 1, 104, 2, 99}
	res, err := vm.Run(context.Background(), full[:2])
	if err != nil {
		t.Fatal(err)
	}
	img := FromResult(res)
	if img.State != "ran-off" || img.PC != 2 {
		t.Fatalf("image = %+v", img)
	}

	out := &vm.Collector{}
	if _, err := vm.Run(context.Background(), full, vm.WithStartPC(img.PC), vm.WithOutput(out)); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(out.Values(), []int64{2}) {
		t.Errorf("resumed output = %v, want [2]", out.Values())
	}
}
