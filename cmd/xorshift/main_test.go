package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/GwennKoi/XorShiftLPC/internal/replay"
	"github.com/GwennKoi/XorShiftLPC/internal/tiles"
	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out.String()
}

func TestDemoOutput(t *testing.T) {
	got := runCmd(t, "demo")
	want := "1\nvuwkixmspdfclqjyngaerhoztb\n1562130985\nz\n2440533925\n"
	if got != want {
		t.Fatalf("demo output mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestShufflePickRange(t *testing.T) {
	got := runCmd(t, "shuffle", "-seed", "7", "a", "b", "c", "d")
	if lines := strings.Split(strings.TrimSpace(got), "\n"); len(lines) != 2 {
		t.Fatalf("unexpected shuffle output %q", got)
	}

	pickArgs := append([]string{"pick", "-seed", "1562130985"}, strings.Split(alphabet, "")...)
	got = runCmd(t, pickArgs...)
	if got != "z\n2440533925\n" {
		t.Fatalf("pick output mismatch: %q", got)
	}

	got = runCmd(t, "range", "-size", "6", "-seed", "1")
	if got != "1\n270369\n" {
		t.Fatalf("range output mismatch: %q", got)
	}
}

func TestCommandErrors(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"range", "-size", "0", "-seed", "1"}, &out); !errors.Is(err, xorshift.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := run(context.Background(), []string{"pick", "-seed", "1"}, &out); !errors.Is(err, xorshift.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := run(context.Background(), []string{"bogus"}, &out); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestTraceRecordAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")

	got := runCmd(t, "trace", "record", "-o", path, "-seed", "1", "shuffle", "pick", "range:10")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 || lines[1] != "3 steps" {
		t.Fatalf("unexpected record output %q", got)
	}

	tr, err := replay.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tr.Steps[1].Value != "z" {
		t.Fatalf("recorded pick mismatch: %q", tr.Steps[1].Value)
	}

	got = runCmd(t, "trace", "verify", path)
	if !strings.HasPrefix(got, "ok 3 steps\n") {
		t.Fatalf("unexpected verify output %q", got)
	}
}

func TestScrambleDescrambleFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	mid := filepath.Join(dir, "mid.png")
	back := filepath.Join(dir, "back.png")

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), A: 255})
		}
	}
	if err := tiles.Save(in, img); err != nil {
		t.Fatalf("save: %v", err)
	}

	runCmd(t, "scramble", "-seed", "99", in, mid)
	runCmd(t, "descramble", "-seed", "99", mid, back)

	restored, err := tiles.Load(back)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			r1, g1, b1, a1 := img.At(x, y).RGBA()
			r2, g2, b2, a2 := restored.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d) not restored", x, y)
			}
		}
	}
}

func gradient(w, h int, tint uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: tint, A: 255})
		}
	}
	return img
}

func TestScrambleBatchIntoDir(t *testing.T) {
	dir := t.TempDir()
	srcs := map[string]*image.RGBA{
		"a": gradient(64, 64, 10),
		"b": gradient(80, 48, 200),
		"c": gradient(72, 72, 90),
	}
	var inputs []string
	for _, name := range []string{"a", "b", "c"} {
		path := filepath.Join(dir, "in", name+".png")
		if err := tiles.Save(path, srcs[name]); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		inputs = append(inputs, path)
	}

	mid := filepath.Join(dir, "mid")
	back := filepath.Join(dir, "back")
	got := runCmd(t, append([]string{"scramble", "-seed", "42", "-o", mid}, inputs...)...)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	want := []string{filepath.Join(mid, "a.png"), filepath.Join(mid, "b.png"), filepath.Join(mid, "c.png")}
	if !slices.Equal(lines, want) {
		t.Fatalf("scramble outputs mismatch:\ngot  %v\nwant %v", lines, want)
	}

	runCmd(t, append([]string{"descramble", "-seed", "42", "-o", back}, lines...)...)

	for name, src := range srcs {
		scrambled, err := tiles.Load(filepath.Join(mid, name+".png"))
		if err != nil {
			t.Fatalf("load scrambled %s: %v", name, err)
		}
		// each image went through its own scramble with the shared seed
		direct, err := tiles.Scramble(src, 4, 42)
		if err != nil {
			t.Fatalf("scramble %s: %v", name, err)
		}
		if !sameImage(direct, scrambled) {
			t.Fatalf("%s: batch scramble differs from a direct scramble", name)
		}

		restored, err := tiles.Load(filepath.Join(back, name+".png"))
		if err != nil {
			t.Fatalf("load restored %s: %v", name, err)
		}
		if !sameImage(src, restored) {
			t.Fatalf("%s: not restored", name)
		}
	}
}

func TestScrambleBatchErrors(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	if err := run(context.Background(), []string{"scramble", "-seed", "1", "-o", dir}, &out); err == nil {
		t.Fatal("expected error without inputs")
	}
	clash := []string{"scramble", "-seed", "1", "-o", dir, filepath.Join(dir, "x", "a.png"), filepath.Join(dir, "y", "a.jpg")}
	if err := run(context.Background(), clash, &out); err == nil || !strings.Contains(err.Error(), "both write") {
		t.Fatalf("expected output clash error, got %v", err)
	}
	missing := []string{"scramble", "-seed", "1", "-o", dir, filepath.Join(dir, "missing.png")}
	if err := run(context.Background(), missing, &out); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func sameImage(a, b image.Image) bool {
	if a.Bounds() != b.Bounds() {
		return false
	}
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x, y).RGBA()
			r2, g2, b2, a2 := b.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}
