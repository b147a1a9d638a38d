// Package convert implements the conversion engine: a static capability
// registry, a runtime availability prober, a priority-ordered tool resolver,
// and the dispatcher that plans and executes a single file conversion.
package convert

import "strings"

// Tool identifies a converter. The set is closed: every tool referenced by a
// candidate list must appear here, in the capability registry, and in the
// adapter dispatch switch. An identifier outside this set is a configuration
// defect, not a runtime error.
type Tool string

const (
	// ToolData is the in-process structured-data converter
	// (JSON/CSV/YAML/TOML/XLSX/SQLite).
	ToolData Tool = "data"
	// ToolSips is the macOS image converter, OS-bundled.
	ToolSips Tool = "sips"
	// ToolAFConvert is the macOS audio converter, OS-bundled.
	ToolAFConvert Tool = "afconvert"
	// ToolTextutil is the macOS document converter, OS-bundled.
	ToolTextutil Tool = "textutil"
	// ToolFFmpeg is the external media transcoder.
	ToolFFmpeg Tool = "ffmpeg"
	// ToolPandoc is the external document converter.
	ToolPandoc Tool = "pandoc"
	// ToolMagick is the external ImageMagick binary ("magick" or legacy
	// "convert").
	ToolMagick Tool = "magick"
	// ToolImaging is the in-process image resize/reformat routine.
	ToolImaging Tool = "imaging"
	// ToolGoldmark is the in-process markdown renderer.
	ToolGoldmark Tool = "goldmark"
)

// Output format capabilities per tool. Static, read-only.
var (
	sipsFormats      = formatSet("jpeg", "jpg", "png", "tiff", "tif", "bmp", "gif", "pict", "pdf", "heic")
	afconvertFormats = formatSet("aac", "m4a", "wav", "aiff", "aif", "caf")
	textutilFormats  = formatSet("txt", "html", "rtf", "rtfd", "doc", "docx", "wordml", "odt", "webarchive") // no PDF output
	pandocFormats    = formatSet("html", "pdf", "docx", "md", "rst", "tex", "epub", "txt", "rtf")
	ffmpegFormats    = formatSet("mp3", "wav", "aac", "m4a", "flac", "ogg", "mp4", "avi", "mkv", "mov", "webm", "gif")
	magickFormats    = formatSet("jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff", "ico", "svg", "pdf")
	imagingFormats   = formatSet("jpg", "jpeg", "png", "gif", "tiff", "bmp", "ico")
	goldmarkFormats  = formatSet("html")
)

var capabilities = map[Tool]map[string]bool{
	ToolSips:      sipsFormats,
	ToolAFConvert: afconvertFormats,
	ToolTextutil:  textutilFormats,
	ToolPandoc:    pandocFormats,
	ToolFFmpeg:    ffmpegFormats,
	ToolMagick:    magickFormats,
	ToolImaging:   imagingFormats,
	ToolGoldmark:  goldmarkFormats,
}

// Supports reports whether tool can produce target as an output format.
// target is case-normalized internally. The data pseudo-tool always reports
// true; its conversion table is the real capability check and fails closed.
// Unknown tools report false. Total: never panics, never errors.
func Supports(tool Tool, target string) bool {
	target = strings.ToLower(target)
	if tool == ToolData {
		return true
	}
	formats, ok := capabilities[tool]
	if !ok {
		return false
	}
	return formats[target]
}

func formatSet(formats ...string) map[string]bool {
	m := make(map[string]bool, len(formats))
	for _, f := range formats {
		m[f] = true
	}
	return m
}
