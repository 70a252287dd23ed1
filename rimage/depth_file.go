package rimage

import (
	"compress/gzip"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// ParseDepthMap reads a 16-bit PNG depth image, optionally gzipped, and
// multiplies every raw value by scale to get meters. BOP depth images in
// millimeters with depth_scale s need scale = s / 1000.
func ParseDepthMap(fn string, scale float64) (*DepthMap, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	var r io.Reader = f
	if filepath.Ext(fn) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer goutils.UncheckedErrorFunc(gz.Close)
		r = gz
	}
	dm, err := ReadDepthMap(r, scale)
	if err != nil {
		return nil, errors.Wrapf(err, "reading depth image %q", fn)
	}
	return dm, nil
}

// ReadDepthMap decodes a PNG depth image. Raw values of 0 stay invalid.
func ReadDepthMap(r io.Reader, scale float64) (*DepthMap, error) {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return nil, errors.Errorf("depth scale must be positive, got %v", scale)
	}
	img, err := png.Decode(r)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			raw := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16).Y
			dm.Set(x, y, float64(raw)*scale)
		}
	}
	return dm, nil
}

// WriteDepthMap encodes dm as a 16-bit PNG holding round(value / scale).
// Values that do not fit in 16 bits are clamped.
func WriteDepthMap(w io.Writer, dm *DepthMap, scale float64) error {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return errors.Errorf("depth scale must be positive, got %v", scale)
	}
	img := image.NewGray16(image.Rect(0, 0, dm.width, dm.height))
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			v := dm.GetDepth(x, y)
			if v <= 0 {
				continue
			}
			raw := math.Min(math.Round(v/scale), math.MaxUint16)
			img.SetGray16(x, y, color.Gray16{Y: uint16(raw)})
		}
	}
	return png.Encode(w, img)
}
