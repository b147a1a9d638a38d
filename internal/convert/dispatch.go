package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/config"
	verrors "github.com/valet-cli/valet/internal/errors"
	"github.com/valet-cli/valet/internal/install"
	"github.com/valet-cli/valet/internal/run"
)

// conversionMap is the exact-key table: "<ext>-><.target>" to an ordered
// candidate list. An exact key always beats the category heuristic.
var conversionMap = map[string][]Tool{
	// Data
	".json->.csv":    {ToolData},
	".csv->.json":    {ToolData},
	".json->.yaml":   {ToolData},
	".yaml->.json":   {ToolData},
	".yml->.json":    {ToolData},
	".json->.toml":   {ToolData},
	".toml->.json":   {ToolData},
	".csv->.xlsx":    {ToolData},
	".xlsx->.csv":    {ToolData},
	".json->.xlsx":   {ToolData},
	".sqlite->.csv":  {ToolData},
	".sqlite->.json": {ToolData},
	".db->.csv":      {ToolData},
	".db->.json":     {ToolData},
	// Images
	".png->.jpg":  {ToolSips, ToolMagick, ToolImaging},
	".jpg->.png":  {ToolSips, ToolMagick, ToolImaging},
	".png->.webp": {ToolMagick},
	".webp->.png": {ToolMagick, ToolSips, ToolImaging},
	".png->.ico":  {ToolMagick, ToolImaging},
	// Audio
	".wav->.aac": {ToolAFConvert, ToolFFmpeg},
	".wav->.m4a": {ToolAFConvert, ToolFFmpeg},
	".mp3->.wav": {ToolFFmpeg, ToolAFConvert},
	".wav->.mp3": {ToolFFmpeg},
	// Video
	".mp4->.mp3": {ToolFFmpeg},
	".mp4->.wav": {ToolFFmpeg},
	// Documents
	".txt->.html": {ToolTextutil, ToolPandoc},
	".docx->.pdf": {ToolPandoc},
	".md->.html":  {ToolPandoc, ToolGoldmark},
	".md->.pdf":   {ToolPandoc},
}

// pdfRescue is the fallback candidate list when the capability filter empties
// the candidates but the target is pdf.
var pdfRescue = []Tool{ToolPandoc}

// targetPrefixes are the natural-language wrappings stripped during target
// normalization, longest first so "to " does not eat "convert to ".
var targetPrefixes = []string{"convert to ", "into ", "to ", "as "}

// NormalizeTarget reduces a free-text target token ("convert to JPG", ".png")
// to a bare lower-case format name. Unrecognized wrapping is left alone and
// fails later lookups naturally.
func NormalizeTarget(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	for _, p := range targetPrefixes {
		if strings.HasPrefix(t, p) {
			t = strings.TrimPrefix(t, p)
			break
		}
	}
	return strings.TrimSpace(strings.TrimLeft(t, "."))
}

// Plan is a resolved conversion: which tool to run and where the output goes.
type Plan struct {
	SourcePath string
	SourceExt  string
	Target     string
	Tool       Tool
	OutputPath string
}

// Result reports a finished conversion. EmptyOutput marks a zero-length
// output file, which is a warning rather than a failure.
type Result struct {
	Plan
	Size        int64
	EmptyOutput bool
}

// Engine plans and executes conversions.
type Engine struct {
	cfg   config.Config
	log   *zap.Logger
	exec  *run.Executor
	probe Prober
}

func NewEngine(cfg config.Config, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, log: log, exec: run.NewExecutor(cfg, log), probe: Available}
}

// PlanConversion resolves a source file and free-text target to a concrete
// plan, or a typed error describing why no tool can serve the pair.
func (e *Engine) PlanConversion(sourcePath, targetToken string) (Plan, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return Plan{}, verrors.NewFileNotFound(sourcePath)
	}

	ext := strings.ToLower(filepath.Ext(sourcePath))
	target := NormalizeTarget(targetToken)
	key := fmt.Sprintf("%s->.%s", ext, target)

	candidates, exact := conversionMap[key]
	if !exact {
		candidates = heuristicCandidates(ext, "."+target)
		if candidates == nil {
			return Plan{}, verrors.NewNoKnownConverter(ext, target)
		}
	}

	capable := make([]Tool, 0, len(candidates))
	for _, t := range candidates {
		if Supports(t, target) {
			capable = append(capable, t)
		}
	}
	if len(capable) == 0 {
		if target == "pdf" && CategorizeExt("."+target) == CategoryDocuments {
			capable = pdfRescue
		} else {
			return Plan{}, verrors.NewNoCapableTool(ext, target)
		}
	}

	tool, ok := resolveWith(e.cfg, capable, e.probe)
	if !ok {
		installable := ""
		for _, t := range capable {
			if install.Supported(string(t)) {
				installable = string(t)
				break
			}
		}
		return Plan{}, verrors.NewToolUnavailable(ext, target, installable)
	}

	outputPath := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + "." + target
	return Plan{
		SourcePath: sourcePath,
		SourceExt:  ext,
		Target:     target,
		Tool:       tool,
		OutputPath: outputPath,
	}, nil
}

// heuristicCandidates guesses a candidate list from the broad categories of
// the source and target extensions. Video needs the heavyweight transcoder;
// audio-to-audio prefers the lighter OS codec.
func heuristicCandidates(sourceExt, targetExt string) []Tool {
	src, tgt := CategorizeExt(sourceExt), CategorizeExt(targetExt)
	involves := func(c Category) bool { return src == c || tgt == c }

	switch {
	case involves(CategoryVideo):
		return []Tool{ToolFFmpeg}
	case involves(CategoryAudio):
		return []Tool{ToolAFConvert, ToolFFmpeg}
	case involves(CategoryImages):
		return []Tool{ToolSips, ToolMagick, ToolImaging}
	case involves(CategoryDocuments):
		return []Tool{ToolTextutil, ToolPandoc}
	case involves(CategoryData), involves(CategorySpreadsheets):
		return []Tool{ToolData}
	}
	return nil
}

// Convert plans and runs a conversion, then verifies the output file.
func (e *Engine) Convert(ctx context.Context, sourcePath, targetToken string) (*Result, error) {
	plan, err := e.PlanConversion(sourcePath, targetToken)
	if err != nil {
		return nil, err
	}
	e.log.Info("converting",
		zap.String("source", plan.SourcePath),
		zap.String("target", plan.Target),
		zap.String("tool", string(plan.Tool)))

	if err := e.dispatchAdapter(ctx, plan.Tool, plan.SourceExt, plan.Target, plan.SourcePath, plan.OutputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(plan.OutputPath)
	if err != nil {
		return nil, verrors.NewConversionFailed(fmt.Sprintf("%s produced no output file", plan.Tool))
	}
	res := &Result{Plan: plan, Size: info.Size(), EmptyOutput: info.Size() == 0}
	if res.EmptyOutput {
		e.log.Warn("output file is empty", zap.String("path", plan.OutputPath))
	}
	return res, nil
}
