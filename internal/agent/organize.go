package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/convert"
	verrors "github.com/valet-cli/valet/internal/errors"
)

// visionImageCap bounds how many folder images are attached to an AI
// organize request.
const visionImageCap = 10

// HeuristicPlan groups a folder's visible files by broad category. Used when
// the user gives no instructions; no LLM call is made.
func HeuristicPlan(dir string) (map[string][]string, error) {
	names, err := visibleFiles(dir)
	if err != nil {
		return nil, verrors.NewFileNotFound(dir)
	}
	plan := make(map[string][]string)
	for _, name := range names {
		cat := string(convert.CategorizeFile(name))
		plan[cat] = append(plan[cat], name)
	}
	return plan, nil
}

// OrganizePlan asks the model for a folder -> filenames map honoring the
// user's instructions. Images in the folder are attached so decisions can be
// made on content rather than filenames. A reply that does not parse yields
// an empty plan, not an error.
func (r *Runner) OrganizePlan(ctx context.Context, dir, instructions string) (map[string][]string, error) {
	names, err := visibleFiles(dir)
	if err != nil {
		return nil, verrors.NewFileNotFound(dir)
	}
	if len(names) == 0 {
		return map[string][]string{}, nil
	}
	if len(names) > folderListingCap {
		names = names[:folderListingCap]
	}

	images := imagePaths([]string{dir})
	if len(images) > visionImageCap {
		images = images[:visionImageCap]
	}

	var b strings.Builder
	b.WriteString("SYSTEM: You are a file organizer. Output ONLY valid JSON.\n")
	fmt.Fprintf(&b, "FOLDER: %q\nFILES: %s\n", dir, strings.Join(names, ", "))
	if instructions != "" {
		fmt.Fprintf(&b, "USER INSTRUCTIONS: %s\n", instructions)
		b.WriteString(`
RULES:
1. Follow ONLY the user's instructions above.
2. Only move files that match the request; leave all other files out of the JSON.
3. Return only the files requested, nothing else.
`)
	} else {
		b.WriteString("TASK: Organize all files into logical category-based subfolders (Images, Documents, Videos, ...).\n")
	}
	if len(images) > 0 {
		b.WriteString("The images themselves are attached; use what you SEE in them to decide.\n")
	}
	b.WriteString(`OUTPUT FORMAT: JSON where keys are folder names and values are lists of filenames.` + "\n" +
		`Example: {"vacation_photos": ["IMG_1234.jpg", "IMG_5678.jpg"]}` + "\n")

	reply := r.llm.Complete(ctx, b.String(), images)
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(reply, "```json", ""), "```", ""))

	var plan map[string][]string
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		r.log.Warn("organize plan did not parse", zap.String("reply", head(reply, 200)))
		return map[string][]string{}, nil
	}
	return plan, nil
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
