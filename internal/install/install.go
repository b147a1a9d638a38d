// Package install downloads external converter binaries into the managed
// bin directory so conversions work without a system package manager.
package install

import (
	"archive/zip"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/config"
	verrors "github.com/valet-cli/valet/internal/errors"
)

// toolURLs maps each installable tool to its release archive. The set doubles
// as the advisory table the dispatcher consults when a resolver miss could be
// fixed by an install.
var toolURLs = map[string]string{
	"ffmpeg": "https://evermeet.cx/ffmpeg/ffmpeg-7.1.zip",
	"pandoc": "https://github.com/jgm/pandoc/releases/download/3.6.3/pandoc-3.6.3-x86_64-macOS.zip",
}

// Supported reports whether tool has a known download source.
func Supported(tool string) bool {
	_, ok := toolURLs[tool]
	return ok
}

// Tools returns the installable tool names, for help output.
func Tools() []string {
	names := make([]string, 0, len(toolURLs))
	for name := range toolURLs {
		names = append(names, name)
	}
	return names
}

// Installer fetches and unpacks tool archives.
type Installer struct {
	cfg      config.Config
	log      *zap.Logger
	client   *http.Client
	progress io.Writer
}

// NewInstaller returns an Installer that reports download progress to
// progress (pass io.Discard to silence it).
func NewInstaller(cfg config.Config, log *zap.Logger, progress io.Writer) *Installer {
	return &Installer{
		cfg:      cfg,
		log:      log,
		client:   &http.Client{Timeout: 10 * time.Minute},
		progress: progress,
	}
}

// Install downloads the tool archive, extracts the binary into the managed
// bin directory, and marks it executable. The archive is fetched to a temp
// file and removed afterwards.
func (i *Installer) Install(ctx context.Context, tool string) error {
	url, ok := toolURLs[tool]
	if !ok {
		return verrors.NewInvalidRequest(fmt.Sprintf("unknown tool %q; available: %s", tool, strings.Join(Tools(), ", ")))
	}

	zipPath := filepath.Join(os.TempDir(), fmt.Sprintf("valet-%s-%s.zip", tool, ulid.MustNew(ulid.Now(), rand.Reader)))
	defer os.Remove(zipPath)

	if err := i.download(ctx, url, zipPath); err != nil {
		return err
	}

	target := filepath.Join(i.cfg.BinDir(), tool)
	if err := extractBinary(zipPath, tool, target); err != nil {
		return err
	}
	i.log.Info("tool installed", zap.String("tool", tool), zap.String("path", target))
	return nil
}

func (i *Installer) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return verrors.NewInternal(err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return verrors.NewConversionFailed("download failed: " + err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return verrors.NewConversionFailed(fmt.Sprintf("download failed: HTTP %d", resp.StatusCode))
	}

	out, err := os.Create(dest)
	if err != nil {
		return verrors.NewInternal(err)
	}
	defer out.Close()

	total := resp.ContentLength
	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return verrors.NewInternal(werr)
			}
			written += int64(n)
			reportProgress(i.progress, written, total)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return verrors.NewConversionFailed("download interrupted: " + rerr.Error())
		}
	}
	fmt.Fprintln(i.progress)
	return nil
}

func reportProgress(w io.Writer, written, total int64) {
	if total > 0 {
		fmt.Fprintf(w, "\r%s / %s", humanSize(written), humanSize(total))
		return
	}
	fmt.Fprintf(w, "\r%s", humanSize(written))
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// extractBinary locates the tool inside the archive. The entry named exactly
// tool (or ending in "/tool") wins; a "bin/tool" entry is the fallback for
// archives with a nested layout.
func extractBinary(zipPath, tool, target string) error {
	z, err := zip.OpenReader(zipPath)
	if err != nil {
		return verrors.NewConversionFailed("invalid archive: " + err.Error())
	}
	defer z.Close()

	entry := findEntry(z, tool)
	if entry == nil {
		return verrors.NewConversionFailed(fmt.Sprintf("could not find %q binary in archive", tool))
	}

	src, err := entry.Open()
	if err != nil {
		return verrors.NewConversionFailed(err.Error())
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return verrors.NewInternal(err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return verrors.NewInternal(err)
	}
	return nil
}

func findEntry(z *zip.ReadCloser, tool string) *zip.File {
	for _, f := range z.File {
		if f.Name == tool || strings.HasSuffix(f.Name, "/"+tool) {
			return f
		}
	}
	for _, f := range z.File {
		if strings.Contains(f.Name, "bin/"+tool) {
			return f
		}
	}
	return nil
}
