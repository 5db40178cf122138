// Package tiles scrambles images by permuting a grid of tiles with a seeded shuffle.
// The same seed and grid always produce the same layout, so a scrambled image can be
// restored by anyone holding the seed.
package tiles

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"

	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

// tile edges are aligned to 8px blocks
const blockSize = 8

// Permutation returns a seeded ordering of 0..n-1 and the next seed.
func Permutation(seed xorshift.Seed, n int) (xorshift.Result[[]int], error) {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return xorshift.Shuffle(indices, seed)
}

// Scramble moves tile perm[i] into slot i.
func Scramble(src image.Image, grid int, seed xorshift.Seed) (*image.RGBA, error) {
	return rearrange(src, grid, seed, false)
}

// Descramble undoes Scramble for the same grid and seed.
func Descramble(src image.Image, grid int, seed xorshift.Seed) (*image.RGBA, error) {
	return rearrange(src, grid, seed, true)
}

func rearrange(src image.Image, grid int, seed xorshift.Seed, inverse bool) (*image.RGBA, error) {
	if grid < 1 {
		return nil, fmt.Errorf("grid %d: %w", grid, xorshift.ErrInvalidArgument)
	}

	bounds := src.Bounds()
	tileW := (bounds.Dx() / blockSize / grid) * blockSize
	tileH := (bounds.Dy() / blockSize / grid) * blockSize
	if tileW == 0 || tileH == 0 {
		return nil, fmt.Errorf("image or tile size is invalid (w:%d, h:%d)", tileW, tileH)
	}

	perm, err := Permutation(seed, grid*grid)
	if err != nil {
		return nil, err
	}

	// copy everything first so the margins outside the grid survive
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	tileRect := func(idx int) image.Rectangle {
		x := bounds.Min.X + (idx%grid)*tileW
		y := bounds.Min.Y + (idx/grid)*tileH
		return image.Rect(x, y, x+tileW, y+tileH)
	}

	for slot, from := range perm.Value {
		dstIdx, srcIdx := slot, from
		if inverse {
			dstIdx, srcIdx = from, slot
		}
		draw.Draw(dst, tileRect(dstIdx), src, tileRect(srcIdx).Min, draw.Src)
	}

	return dst, nil
}

// Load decodes a PNG, JPEG or WebP file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image (%s): %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image (%s): %w", path, err)
	}
	return img, nil
}

// Save writes img as PNG, creating parent directories as needed.
func Save(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure image dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image (%s): %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode image (%s): %w", path, err)
	}
	return f.Close()
}
