package render

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hoshinonyaruko/snake-frame/memimg"
	"github.com/hoshinonyaruko/snake-frame/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func rgbAt(img image.Image, x, y int) rgb {
	r, g, b, _ := img.At(x, y).RGBA()
	return rgb{int(r >> 8), int(g >> 8), int(b >> 8)}
}

func cellCenter(img image.Image, p structs.Position) rgb {
	half := structs.CellSize / 2
	return rgbAt(img, p.X*structs.CellSize+half, p.Y*structs.CellSize+half)
}

func anyPixel(img image.Image, rect image.Rectangle, match func(rgb) bool) bool {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if match(rgbAt(img, x, y)) {
				return true
			}
		}
	}
	return false
}

func isRed(c rgb) bool   { return c.r > 200 && c.g < 50 && c.b < 50 }
func isWhite(c rgb) bool { return c.r > 200 && c.g > 200 && c.b > 200 }

var centerBox = image.Rect(140, 200, 340, 280)

func sampleState() *structs.GameState {
	return &structs.GameState{
		Snake:     []structs.Position{{X: 3, Y: 2}, {X: 2, Y: 2}, {X: 1, Y: 2}},
		Food:      structs.Position{X: 0, Y: 14},
		Direction: structs.Right,
		Score:     2,
	}
}

func TestRenderCells(t *testing.T) {
	r := &Renderer{}
	state := sampleState()

	img := r.Render(state)

	require.Equal(t, image.Rect(0, 0, structs.ImageSize, structs.ImageSize), img.Bounds())
	assert.Equal(t, colorHead, cellCenter(img, structs.Position{X: 3, Y: 2}))
	assert.Equal(t, colorBody, cellCenter(img, structs.Position{X: 2, Y: 2}))
	assert.Equal(t, colorBody, cellCenter(img, structs.Position{X: 1, Y: 2}))
	assert.Equal(t, colorFood, cellCenter(img, structs.Position{X: 0, Y: 14}))
	assert.Equal(t, colorCell, cellCenter(img, structs.Position{X: 14, Y: 14}))
	assert.True(t, anyPixel(img, image.Rect(10, 10, 140, 40), isWhite), "score text missing")
	assert.False(t, anyPixel(img, centerBox, isRed), "game over label drawn for live game")
}

func TestRenderGameOver(t *testing.T) {
	state := sampleState()
	state.GameOver = true

	img := (&Renderer{}).Render(state)

	assert.True(t, anyPixel(img, centerBox, isRed), "game over label missing")
}

func TestRenderIsDeterministicAndPure(t *testing.T) {
	r := &Renderer{}
	state := sampleState()
	before := state.Clone()

	var a, b bytes.Buffer
	require.NoError(t, r.EncodePNG(&a, state))
	require.NoError(t, r.EncodePNG(&b, state))

	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Equal(t, before, state)

	decoded, err := png.Decode(&a)
	require.NoError(t, err)
	assert.Equal(t, structs.ImageSize, decoded.Bounds().Dx())
}

func TestRenderResize(t *testing.T) {
	img := (&Renderer{Size: 240}).Render(sampleState())

	assert.Equal(t, image.Rect(0, 0, 240, 240), img.Bounds())
}

func TestRenderWithCachedFont(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "board.ttf"), goregular.TTF, 0644))
	fonts := memimg.NewFonts()
	require.NoError(t, fonts.LoadDir(dir))

	r := &Renderer{Fonts: fonts, FontName: "board.ttf"}
	state := sampleState()
	state.GameOver = true
	img := r.Render(state)

	assert.True(t, anyPixel(img, image.Rect(10, 10, 140, 40), isWhite))
	assert.True(t, anyPixel(img, centerBox, isRed))
}

func TestRenderMissingFontFallsBack(t *testing.T) {
	r := &Renderer{Fonts: memimg.NewFonts(), FontName: "PressStart2P-Regular.ttf"}

	img := r.Render(sampleState())

	assert.True(t, anyPixel(img, image.Rect(10, 10, 140, 40), isWhite))
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "static", "frame.png")

	require.NoError(t, (&Renderer{}).SavePNG(path, sampleState()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, colorHead, cellCenter(img, structs.Position{X: 3, Y: 2}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}
