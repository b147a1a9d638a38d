package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// folderListingCap bounds how many entries of a folder end up in the prompt.
const folderListingCap = 100

// imageExts marks files worth attaching as vision input.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// buildContext renders the request the model sees: the user query followed by
// one block per path. Files get name, size, and extension; folders get a
// capped listing with hidden entries excluded; missing paths are noted rather
// than dropped so the model knows the user referenced them.
func buildContext(a Agent, query string, paths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AGENT: %s\nQUERY: %s\n", a, query)

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(&b, "\nPATH: %s (not found)\n", path)
			continue
		}
		if info.IsDir() {
			writeFolderBlock(&b, path)
			continue
		}
		fmt.Fprintf(&b, "\nFILE: %s\n  path: %s\n  size: %d bytes\n  extension: %s\n",
			info.Name(), path, info.Size(), filepath.Ext(path))
	}
	return b.String()
}

func writeFolderBlock(b *strings.Builder, path string) {
	fmt.Fprintf(b, "\nFOLDER: %s\n", path)
	names, err := visibleFiles(path)
	if err != nil {
		fmt.Fprintf(b, "  (unreadable: %v)\n", err)
		return
	}
	for i, name := range names {
		if i == folderListingCap {
			fmt.Fprintf(b, "  ... and %d more\n", len(names)-folderListingCap)
			break
		}
		fmt.Fprintf(b, "  %s\n", name)
	}
}

// visibleFiles lists the regular, non-hidden files directly inside dir,
// sorted by name.
func visibleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// imagePaths filters paths down to existing image files, expanding a folder
// into its visible image files. Used to decide what to attach as vision
// input; the LLM client applies its own attachment cap.
func imagePaths(paths []string) []string {
	var images []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			names, err := visibleFiles(path)
			if err != nil {
				continue
			}
			for _, name := range names {
				if imageExts[strings.ToLower(filepath.Ext(name))] {
					images = append(images, filepath.Join(path, name))
				}
			}
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(path))] {
			images = append(images, path)
		}
	}
	return images
}
