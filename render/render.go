// Package render 把一局游戏画成图片
package render

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/hoshinonyaruko/snake-frame/memimg"
	"github.com/hoshinonyaruko/snake-frame/structs"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
)

const fontSize = 16

type rgb struct{ r, g, b int }

var (
	colorBackground = rgb{25, 25, 25}
	colorCell       = rgb{40, 40, 40}
	colorCellLine   = rgb{50, 50, 50}
	colorFood       = rgb{255, 69, 0}
	colorHead       = rgb{0, 255, 0}
	colorBody       = rgb{144, 238, 144}
	colorScore      = rgb{255, 255, 255}
	colorGameOver   = rgb{255, 0, 0}
)

func setColor(dc *gg.Context, c rgb) {
	dc.SetRGB255(c.r, c.g, c.b)
}

var (
	goRegular     *truetype.Font
	goRegularOnce sync.Once
)

// 内置字体，只解析一次
func fallbackFace() font.Face {
	goRegularOnce.Do(func() {
		goRegular, _ = truetype.Parse(goregular.TTF)
	})
	if goRegular == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(goRegular, &truetype.Options{Size: fontSize})
}

// Renderer draws game states. It never mutates the state it is given.
type Renderer struct {
	Fonts    *memimg.Fonts // 可为 nil
	FontName string        // Fonts 中的文件名，例如 PressStart2P-Regular.ttf
	Size     int           // 输出边长，0 或 ImageSize 时不缩放
}

func (r *Renderer) face() font.Face {
	if r.Fonts != nil && r.FontName != "" {
		if face, ok := r.Fonts.Face(r.FontName, fontSize); ok {
			return face
		}
	}
	return fallbackFace()
}

func drawCell(dc *gg.Context, p structs.Position) {
	dc.DrawRectangle(float64(p.X*structs.CellSize), float64(p.Y*structs.CellSize), structs.CellSize, structs.CellSize)
}

// Render 绘制 ImageSize x ImageSize 的棋盘
func (r *Renderer) Render(state *structs.GameState) image.Image {
	dc := gg.NewContext(structs.ImageSize, structs.ImageSize)
	setColor(dc, colorBackground)
	dc.Clear()

	// 网格
	dc.SetLineWidth(1)
	for x := 0; x < structs.GridSize; x++ {
		for y := 0; y < structs.GridSize; y++ {
			drawCell(dc, structs.Position{X: x, Y: y})
			setColor(dc, colorCell)
			dc.FillPreserve()
			setColor(dc, colorCellLine)
			dc.Stroke()
		}
	}

	// 食物
	drawCell(dc, state.Food)
	setColor(dc, colorFood)
	dc.Fill()

	// 蛇，从头到尾
	for i, p := range state.Snake {
		drawCell(dc, p)
		if i == 0 {
			setColor(dc, colorHead)
		} else {
			setColor(dc, colorBody)
		}
		dc.Fill()
	}

	dc.SetFontFace(r.face())
	setColor(dc, colorScore)
	dc.DrawStringAnchored(fmt.Sprintf("Score: %d", state.Score), 10, 10, 0, 1)

	if state.GameOver {
		setColor(dc, colorGameOver)
		dc.DrawStringAnchored("Game Over", structs.ImageSize/2, structs.ImageSize/2, 0.5, 0.5)
	}

	img := dc.Image()
	if r.Size > 0 && r.Size != structs.ImageSize {
		return imaging.Resize(img, r.Size, r.Size, imaging.NearestNeighbor)
	}
	return img
}

// EncodePNG renders state and writes it to w as PNG.
func (r *Renderer) EncodePNG(w io.Writer, state *structs.GameState) error {
	return imaging.Encode(w, r.Render(state), imaging.PNG)
}

// SavePNG renders state into a PNG file. The file is written next to path and
// renamed into place so static file readers never see a partial image.
func (r *Renderer) SavePNG(path string, state *structs.GameState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".frame-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := r.EncodePNG(tmp, state); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
