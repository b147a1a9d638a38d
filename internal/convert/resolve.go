package convert

import "github.com/valet-cli/valet/internal/config"

// Prober checks whether a named command is usable on this host.
type Prober func(cfg config.Config, cmd string) bool

// Resolve returns the first candidate that is usable on this host,
// preserving the caller's priority order. In-process tools and OS-bundled
// converters resolve immediately; external binaries resolve only if the
// prober confirms presence. Returns false if the list is empty or nothing
// resolves; callers treat that as a signal, not an error.
func Resolve(cfg config.Config, candidates []Tool) (Tool, bool) {
	return resolveWith(cfg, candidates, Available)
}

func resolveWith(cfg config.Config, candidates []Tool, probe Prober) (Tool, bool) {
	for _, tool := range candidates {
		switch tool {
		case ToolData, ToolImaging, ToolGoldmark:
			// In-process, compiled in.
			return tool, true
		case ToolSips, ToolAFConvert, ToolTextutil:
			// OS-bundled.
			return tool, true
		case ToolFFmpeg, ToolPandoc:
			if probe(cfg, string(tool)) {
				return tool, true
			}
		case ToolMagick:
			// ImageMagick 7 ships "magick"; older installs only have
			// the legacy "convert" entry point.
			if probe(cfg, "magick") || probe(cfg, "convert") {
				return tool, true
			}
		}
	}
	return "", false
}
