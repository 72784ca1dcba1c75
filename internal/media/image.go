package media

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DecodeImage decodes an uploaded image and resamples it to the fixed
// width x height the target model requires. The result is an RGB pixel
// grid indexed [row][col][channel], values in 0..255 as float32.
// Catmull-Rom is deterministic and high quality, matching the cubic
// interpolation the models were trained against.
func DecodeImage(data []byte, width, height int) ([][][]float32, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnprocessable)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrUnprocessable, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	grid := make([][][]float32, height)
	for y := 0; y < height; y++ {
		row := make([][]float32, width)
		for x := 0; x < width; x++ {
			i := dst.PixOffset(x, y)
			row[x] = []float32{
				float32(dst.Pix[i]),
				float32(dst.Pix[i+1]),
				float32(dst.Pix[i+2]),
			}
		}
		grid[y] = row
	}
	return grid, nil
}
