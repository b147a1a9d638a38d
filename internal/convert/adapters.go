package convert

import (
	"context"
	"fmt"
	"strings"
	"time"

	verrors "github.com/valet-cli/valet/internal/errors"
	"github.com/valet-cli/valet/internal/run"
)

// sipsFormatAlias maps target tokens to the format names sips accepts.
var sipsFormatAlias = map[string]string{
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"png":  "png",
	"tiff": "tiff",
}

// afconvertFormatIDs maps target tokens to afconvert file format identifiers.
// Four-character codes; "aac " keeps its trailing space on the -f flag and is
// trimmed for -d.
var afconvertFormatIDs = map[string]string{
	"aac":  "aac ",
	"m4a":  "m4af",
	"wav":  "WAVE",
	"aiff": "AIFF",
}

// commandLine builds the shell command for an external tool. In-process tools
// never reach this function.
func (e *Engine) commandLine(tool Tool, target, inputPath, outputPath string) (string, error) {
	switch tool {
	case ToolSips:
		alias, ok := sipsFormatAlias[target]
		if !ok {
			return "", verrors.NewConversionFailed(fmt.Sprintf("sips cannot write .%s output", target))
		}
		return fmt.Sprintf("sips -s format %s %q --out %q", alias, inputPath, outputPath), nil
	case ToolAFConvert:
		// AAC output always goes through an m4a container.
		if target == "aac" || target == "m4a" {
			return fmt.Sprintf("afconvert -f m4af -d aac %q %q", inputPath, outputPath), nil
		}
		id, ok := afconvertFormatIDs[target]
		if !ok {
			return "", verrors.NewConversionFailed(fmt.Sprintf("afconvert cannot write .%s output", target))
		}
		return fmt.Sprintf("afconvert -f %s -d %s %q %q", id, strings.TrimSpace(id), inputPath, outputPath), nil
	case ToolTextutil:
		if !Supports(ToolTextutil, target) {
			return "", verrors.NewConversionFailed(fmt.Sprintf("textutil cannot write .%s output", target))
		}
		return fmt.Sprintf("textutil -convert %s -output %q %q", target, outputPath, inputPath), nil
	case ToolFFmpeg:
		return fmt.Sprintf("ffmpeg -y -i %q %q", inputPath, outputPath), nil
	case ToolPandoc:
		return fmt.Sprintf("pandoc %q -o %q", inputPath, outputPath), nil
	case ToolMagick:
		bin := "magick"
		if !e.probe(e.cfg, "magick") {
			bin = "convert"
		}
		return fmt.Sprintf("%s %q %q", bin, inputPath, outputPath), nil
	}
	return "", verrors.NewInternal(fmt.Errorf("no external adapter for tool %q", tool))
}

// runExternal executes the tool's command line through the guarded executor
// and maps the terminal state to a typed error.
func (e *Engine) runExternal(ctx context.Context, tool Tool, target, inputPath, outputPath string) error {
	command, err := e.commandLine(tool, target, inputPath, outputPath)
	if err != nil {
		return err
	}

	res := e.exec.Shell(ctx, command)
	switch res.State {
	case run.StateBlocked:
		return verrors.NewBlocked(res.Rule.Reason)
	case run.StateTimedOut:
		return verrors.NewTimeout(int(run.CommandTimeout / time.Second))
	case run.StateFailed:
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("%s exited with an error", tool)
		}
		return verrors.NewConversionFailed(msg)
	}
	return nil
}

// dispatchAdapter routes the resolved tool to its conversion routine.
func (e *Engine) dispatchAdapter(ctx context.Context, tool Tool, sourceExt, target, inputPath, outputPath string) error {
	switch tool {
	case ToolData:
		return ConvertData(sourceExt, target, inputPath, outputPath)
	case ToolImaging:
		return ConvertImage(target, inputPath, outputPath)
	case ToolGoldmark:
		return RenderMarkdown(inputPath, outputPath)
	default:
		return e.runExternal(ctx, tool, target, inputPath, outputPath)
	}
}
