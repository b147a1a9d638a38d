package convert

import "testing"

func TestCategorizeExt(t *testing.T) {
	tests := []struct {
		ext  string
		want Category
	}{
		{".png", CategoryImages},
		{".PNG", CategoryImages},
		{".pdf", CategoryDocuments},
		{".csv", CategorySpreadsheets},
		{".mp3", CategoryAudio},
		{".mkv", CategoryVideo},
		{".zip", CategoryArchives},
		{".go", CategoryCode},
		{".json", CategoryData},
		{".pptx", CategoryPresentations},
		{".psd", CategoryDesign},
		{".xyz", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		if got := CategorizeExt(tt.ext); got != tt.want {
			t.Errorf("CategorizeExt(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestCategorizeFile(t *testing.T) {
	if got := CategorizeFile("holiday.JPEG"); got != CategoryImages {
		t.Errorf("CategorizeFile = %v, want Images", got)
	}
	if got := CategorizeFile("Makefile"); got != CategoryOther {
		t.Errorf("CategorizeFile = %v, want Other for extensionless files", got)
	}
}

// No extension may belong to two categories; the inverted lookup would
// silently pick one of them otherwise.
func TestCategoriesAreDisjoint(t *testing.T) {
	seen := map[string]Category{}
	for cat, exts := range extensionCategories {
		for _, ext := range exts {
			if prev, dup := seen[ext]; dup {
				t.Errorf("extension %q appears in both %v and %v", ext, prev, cat)
			}
			seen[ext] = cat
		}
	}
}
