package pdftext

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner lets tests stub the poppler and tesseract binaries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs a tool to completion. Failures are left to the caller, which folds stderr into
// the returned error.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	began := time.Now()
	err := cmd.Run()
	r.logger.Debug("tool run",
		"tool", filepath.Base(name),
		"file", inputFile(args),
		"exit_code", exitCode(err),
		"elapsed_ms", time.Since(began).Milliseconds(),
		"output_bytes", stdout.Len(),
	)
	return stdout.Bytes(), stderr.Bytes(), err
}

// inputFile picks the document or page image out of a tool's arguments.
func inputFile(args []string) string {
	for _, a := range args {
		switch strings.ToLower(filepath.Ext(a)) {
		case ".pdf", ".png":
			return filepath.Base(a)
		}
	}
	return ""
}

// exitCode is 0 on success and -1 when the tool never ran.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
