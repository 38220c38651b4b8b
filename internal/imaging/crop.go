package imaging

import "image"

// cropFuzz is the per-channel tolerance, out of 255, under which a pixel
// still counts as border padding.
const cropFuzz = 10

// autoCrop trims uniform padding matching the top-left pixel from all four
// edges. An image that is entirely padding is returned unchanged.
func autoCrop(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	if b.Empty() {
		return img
	}

	ref := pixelAt(img, b.Min.X, b.Min.Y)

	rowIsBorder := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !similar(pixelAt(img, x, y), ref) {
				return false
			}
		}
		return true
	}
	colIsBorder := func(x, top, bottom int) bool {
		for y := top; y < bottom; y++ {
			if !similar(pixelAt(img, x, y), ref) {
				return false
			}
		}
		return true
	}

	top := b.Min.Y
	for top < b.Max.Y && rowIsBorder(top) {
		top++
	}
	if top == b.Max.Y {
		return img
	}

	bottom := b.Max.Y
	for bottom > top && rowIsBorder(bottom-1) {
		bottom--
	}

	left := b.Min.X
	for left < b.Max.X && colIsBorder(left, top, bottom) {
		left++
	}

	right := b.Max.X
	for right > left && colIsBorder(right-1, top, bottom) {
		right--
	}

	rect := image.Rect(left, top, right, bottom)
	if rect == b {
		return img
	}
	return img.SubImage(rect).(*image.NRGBA)
}

func pixelAt(img *image.NRGBA, x, y int) [4]uint8 {
	i := img.PixOffset(x, y)
	return [4]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

func similar(a, b [4]uint8) bool {
	if a[3] == 0 && b[3] == 0 {
		return true
	}
	for i := 0; i < 4; i++ {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > cropFuzz {
			return false
		}
	}
	return true
}
