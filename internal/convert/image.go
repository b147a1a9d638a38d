package convert

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	verrors "github.com/valet-cli/valet/internal/errors"
)

// icoSize is the edge length icons are normalized to. A single 256px image
// covers every consumer that reads modern ICO files.
const icoSize = 256

// opaqueTargets are formats without an alpha channel. Transparent pixels are
// flattened onto white before encoding so they do not come out black.
var opaqueTargets = map[string]bool{"jpg": true, "jpeg": true, "bmp": true}

// ConvertImage decodes inputPath and re-encodes it as target at outputPath.
// The target must be one of the imaging capability formats.
func ConvertImage(target, inputPath, outputPath string) error {
	img, err := imaging.Open(inputPath)
	if err != nil {
		return verrors.NewConversionFailed("cannot decode image: " + err.Error())
	}

	target = strings.ToLower(target)
	if opaqueTargets[target] {
		img = flattenOnWhite(img)
	}
	if target == "ico" {
		return encodeICO(img, outputPath)
	}
	if err := imaging.Save(img, outputPath); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

// ResizeImage scales inputPath to width x height and writes the result to
// outputPath, format chosen by the output extension. A zero height preserves
// the aspect ratio.
func ResizeImage(inputPath, outputPath string, width, height int) error {
	if width <= 0 {
		return verrors.NewInvalidRequest("resize width must be positive")
	}
	img, err := imaging.Open(inputPath)
	if err != nil {
		return verrors.NewConversionFailed("cannot decode image: " + err.Error())
	}
	var resized image.Image = imaging.Resize(img, width, height, imaging.Lanczos)

	ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(outputPathExt(outputPath))), ".")
	if opaqueTargets[ext] {
		resized = flattenOnWhite(resized)
	}
	if err := imaging.Save(resized, outputPath); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}

func outputPathExt(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return ""
	}
	return path[i:]
}

func flattenOnWhite(img image.Image) image.Image {
	bg := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// encodeICO writes a single-entry ICO container with a PNG payload, the
// layout Windows uses for 256px icons. The source is forced to exactly
// 256x256, upscaling smaller images.
func encodeICO(img image.Image, outputPath string) error {
	icon := imaging.Resize(img, icoSize, icoSize, imaging.Lanczos)

	var payload bytes.Buffer
	if err := png.Encode(&payload, icon); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}

	var buf bytes.Buffer
	// ICONDIR: reserved, type 1 (icon), one entry.
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))

	w, h := icon.Bounds().Dx(), icon.Bounds().Dy()
	// A zero byte encodes the 256px dimension.
	buf.WriteByte(byte(w % icoSize))
	buf.WriteByte(byte(h % icoSize))
	buf.WriteByte(0) // palette size
	buf.WriteByte(0) // reserved
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // color planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bits per pixel
	binary.Write(&buf, binary.LittleEndian, uint32(payload.Len()))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16)) // data offset
	buf.Write(payload.Bytes())

	if err := os.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}
