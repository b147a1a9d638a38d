package convert

import "testing"

func TestSupports(t *testing.T) {
	tests := []struct {
		tool   Tool
		target string
		want   bool
	}{
		{ToolSips, "jpeg", true},
		{ToolSips, "JPEG", true}, // case-insensitive
		{ToolSips, "webp", false},
		{ToolAFConvert, "m4a", true},
		{ToolAFConvert, "mp3", false},
		{ToolTextutil, "docx", true},
		{ToolTextutil, "pdf", false}, // textutil has no pdf output
		{ToolPandoc, "pdf", true},
		{ToolFFmpeg, "webm", true},
		{ToolFFmpeg, "docx", false},
		{ToolMagick, "ico", true},
		{ToolImaging, "ico", true},
		{ToolImaging, "webp", false},
		{ToolGoldmark, "html", true},
		{ToolGoldmark, "pdf", false},
		{ToolData, "anything", true}, // the pair table is the real gate
		{Tool("unknown"), "png", false},
	}
	for _, tt := range tests {
		if got := Supports(tt.tool, tt.target); got != tt.want {
			t.Errorf("Supports(%q, %q) = %v, want %v", tt.tool, tt.target, got, tt.want)
		}
	}
}

// Every tool named in a candidate list must exist in the capability registry
// and in the resolver's dispatch. An unknown identifier is a configuration
// defect caught here rather than at runtime.
func TestConversionMapToolsAreKnown(t *testing.T) {
	known := map[Tool]bool{
		ToolData: true, ToolSips: true, ToolAFConvert: true, ToolTextutil: true,
		ToolFFmpeg: true, ToolPandoc: true, ToolMagick: true, ToolImaging: true,
		ToolGoldmark: true,
	}
	for key, candidates := range conversionMap {
		if len(candidates) == 0 {
			t.Errorf("key %q has an empty candidate list", key)
		}
		for _, tool := range candidates {
			if !known[tool] {
				t.Errorf("key %q references unknown tool %q", key, tool)
			}
		}
	}
	for _, tool := range pdfRescue {
		if !known[tool] {
			t.Errorf("pdf rescue references unknown tool %q", tool)
		}
	}
}
