package convert

import (
	"path/filepath"
	"strings"
)

// Category is a broad grouping of file extensions, used as a fallback
// heuristic when no exact conversion mapping exists and by the heuristic
// organize plan.
type Category string

const (
	CategoryImages        Category = "Images"
	CategoryDocuments     Category = "Documents"
	CategorySpreadsheets  Category = "Spreadsheets"
	CategoryAudio         Category = "Audio"
	CategoryVideo         Category = "Video"
	CategoryArchives      Category = "Archives"
	CategoryCode          Category = "Code"
	CategoryData          Category = "Data"
	CategoryPresentations Category = "Presentations"
	CategoryDesign        Category = "Design"
	CategoryOther         Category = "Other"
)

// extensionCategories maps each category to its extensions (with dot,
// lower case). No extension may appear in two categories.
var extensionCategories = map[Category][]string{
	CategoryImages:        {".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp", ".svg", ".ico", ".heic", ".heif"},
	CategoryDocuments:     {".pdf", ".doc", ".docx", ".txt", ".rtf", ".odt", ".pages", ".tex", ".md", ".rst", ".epub"},
	CategorySpreadsheets:  {".csv", ".xlsx", ".xls", ".tsv", ".ods", ".numbers"},
	CategoryAudio:         {".mp3", ".wav", ".flac", ".ogg", ".aac", ".m4a", ".wma", ".opus"},
	CategoryVideo:         {".mp4", ".avi", ".mkv", ".mov", ".webm", ".flv", ".wmv", ".m4v"},
	CategoryArchives:      {".zip", ".tar", ".gz", ".bz2", ".rar", ".7z", ".xz", ".dmg", ".iso"},
	CategoryCode:          {".py", ".js", ".ts", ".html", ".css", ".java", ".c", ".cpp", ".h", ".swift", ".go", ".rs", ".rb", ".sh"},
	CategoryData:          {".json", ".xml", ".yaml", ".yml", ".toml", ".sql", ".db", ".sqlite"},
	CategoryPresentations: {".ppt", ".pptx", ".key", ".odp"},
	CategoryDesign:        {".psd", ".ai", ".sketch", ".fig", ".xd"},
}

// categoryByExt is the inverted lookup, built once at init.
var categoryByExt = func() map[string]Category {
	m := make(map[string]Category)
	for cat, exts := range extensionCategories {
		for _, ext := range exts {
			m[ext] = cat
		}
	}
	return m
}()

// CategorizeExt returns the category for an extension (with dot, any case),
// or CategoryOther.
func CategorizeExt(ext string) Category {
	if cat, ok := categoryByExt[strings.ToLower(ext)]; ok {
		return cat
	}
	return CategoryOther
}

// CategorizeFile returns the category for a filename.
func CategorizeFile(filename string) Category {
	return CategorizeExt(filepath.Ext(filename))
}

// Categories returns the category table for exhaustive checks and the
// heuristic organize planner.
func Categories() map[Category][]string {
	return extensionCategories
}
