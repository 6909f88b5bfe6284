package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sync/semaphore"

	"vidstream/metaservice/internal/domain"
	"vidstream/metaservice/internal/providers/common"
)

// ErrExternalTool wraps every failure of the subprocess collaborator:
// binary missing, killed by context, or non-zero exit.
var ErrExternalTool = errors.New("external search tool failed")

// PageSize is fixed: the tool has no native pagination, so page N asks
// for N*PageSize flat results and slices off the earlier pages.
const PageSize = 20

const (
	defaultBinary        = "yt-dlp"
	defaultMaxConcurrent = 2

	// Flat-playlist JSON lines routinely exceed the default bufio
	// scanner limit.
	maxLineBytes = 1024 * 1024
)

// Runner executes the external tool and returns its stdout. It exists
// so tests can substitute a fake binary.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

type execRunner struct {
	binary string
}

func (r execRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", r.binary, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", r.binary, err)
	}
	return stdout.Bytes(), nil
}

type Config struct {
	// Binary is the path or name of the yt-dlp executable.
	Binary string
	// MaxConcurrent bounds simultaneous subprocess invocations so the
	// blocking tool cannot starve suggestion and trending traffic.
	MaxConcurrent int64
	// Runner overrides the real subprocess runner (tests).
	Runner Runner
}

type Provider struct {
	runner Runner
	sem    *semaphore.Weighted
}

func NewProvider(cfg Config) *Provider {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	runner := cfg.Runner
	if runner == nil {
		runner = execRunner{binary: binary}
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Provider{
		runner: runner,
		sem:    semaphore.NewWeighted(maxConcurrent),
	}
}

func (p *Provider) Name() string {
	return "yt-dlp"
}

// Search requests up to page*PageSize flat results for query and
// returns at most PageSize records starting at offset (page-1)*PageSize,
// preserving the tool's ordering. Running out of results is not an
// error: the returned slice is simply shorter than PageSize, possibly
// empty.
func (p *Provider) Search(ctx context.Context, query string, page int) ([]domain.VideoRecord, error) {
	if page < 1 {
		page = 1
	}
	totalResults := page * PageSize
	target := fmt.Sprintf("ytsearch%d:%s", totalResults, query)
	args := []string{
		"--flat-playlist",
		"--dump-json",
		"--skip-download",
		"--no-warnings",
		target,
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalTool, err)
	}
	defer p.sem.Release(1)

	output, err := p.runner.Run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalTool, err)
	}

	records := parseFlatOutput(output)
	skip := (page - 1) * PageSize
	if skip >= len(records) {
		return []domain.VideoRecord{}, nil
	}
	end := skip + PageSize
	if end > len(records) {
		end = len(records)
	}
	return records[skip:end], nil
}

// parseFlatOutput collects one record per parsable line; malformed
// lines are skipped, never fatal.
func parseFlatOutput(output []byte) []domain.VideoRecord {
	records := make([]domain.VideoRecord, 0, PageSize)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if record, ok := common.ParseFlatLine(scanner.Bytes()); ok {
			records = append(records, record)
		}
	}
	return records
}
