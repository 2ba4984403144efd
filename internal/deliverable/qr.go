package deliverable

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	qrCanvasSize  = 512
	qrQuietModule = 2
)

var (
	qrDark  = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	qrLight = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// RenderQR draws content as a 512x512 PNG with a two-module quiet zone.
func RenderQR(content string) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	modules := code.Bounds().Dx()
	total := modules + 2*qrQuietModule
	if total > qrCanvasSize {
		return nil, fmt.Errorf("qr payload too large: %d modules", modules)
	}

	img := image.NewPaletted(image.Rect(0, 0, qrCanvasSize, qrCanvasSize), color.Palette{qrLight, qrDark})
	for py := 0; py < qrCanvasSize; py++ {
		my := py*total/qrCanvasSize - qrQuietModule
		for px := 0; px < qrCanvasSize; px++ {
			mx := px*total/qrCanvasSize - qrQuietModule
			if isDark(code, mx, my, modules) {
				img.SetColorIndex(px, py, 1)
			}
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func isDark(code barcode.Barcode, x, y, modules int) bool {
	if x < 0 || y < 0 || x >= modules || y >= modules {
		return false
	}
	r, _, _, _ := code.At(x, y).RGBA()
	return r < 0x8000
}
