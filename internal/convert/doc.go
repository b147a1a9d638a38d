package convert

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"

	verrors "github.com/valet-cli/valet/internal/errors"
)

const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// RenderMarkdown converts a markdown file to a standalone HTML page. The
// document title is the source file name without its extension.
func RenderMarkdown(inputPath, outputPath string) error {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}

	var body bytes.Buffer
	if err := goldmark.Convert(src, &body); err != nil {
		return verrors.NewConversionFailed("markdown render failed: " + err.Error())
	}

	base := filepath.Base(inputPath)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	page := fmt.Sprintf(htmlShell, html.EscapeString(title), body.String())
	if err := os.WriteFile(outputPath, []byte(page), 0o644); err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	return nil
}
