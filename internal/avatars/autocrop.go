package avatars

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// cropTolerance is the largest per-channel difference still treated as
// background.
const cropTolerance = 8

// autocrop trims border rows and columns that match the top-left pixel.
// A uniform image is returned unchanged.
func autocrop(img image.Image) image.Image {
	b := img.Bounds()
	if b.Empty() {
		return img
	}
	bg := color.NRGBAModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.NRGBA)

	isBg := func(x, y int) bool {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		return near(c.R, bg.R) && near(c.G, bg.G) && near(c.B, bg.B) && near(c.A, bg.A)
	}
	rowBg := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isBg(x, y) {
				return false
			}
		}
		return true
	}
	colBg := func(x, minY, maxY int) bool {
		for y := minY; y < maxY; y++ {
			if !isBg(x, y) {
				return false
			}
		}
		return true
	}

	top := b.Min.Y
	for top < b.Max.Y && rowBg(top) {
		top++
	}
	if top == b.Max.Y {
		return img
	}
	bottom := b.Max.Y
	for bottom > top && rowBg(bottom-1) {
		bottom--
	}
	left := b.Min.X
	for left < b.Max.X && colBg(left, top, bottom) {
		left++
	}
	right := b.Max.X
	for right > left && colBg(right-1, top, bottom) {
		right--
	}

	rect := image.Rect(left, top, right, bottom)
	if rect == b {
		return img
	}
	return imaging.Crop(img, rect)
}

func near(a, b uint8) bool {
	if a > b {
		return a-b <= cropTolerance
	}
	return b-a <= cropTolerance
}
