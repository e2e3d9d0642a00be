package semgrep

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitsight/go-vcsurl"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

const (
	cloneAttempts = 3
	cloneTimeout  = 60 * time.Second
	defaultBranch = "develop"
)

// repoExcludedDirs are top-level repository folders never searched for rules.
var repoExcludedDirs = map[string]struct{}{
	".git":        {},
	".github":     {},
	"tests":       {},
	"docs":        {},
	"__pycache__": {},
}

// Importer fetches rule sets from directories, URLs and git repositories and
// translates them for the rule repository.
type Importer struct {
	client *resty.Client
	logger hclog.Logger
}

// NewImporter builds an importer over a shared HTTP client.
func NewImporter(client *resty.Client, logger hclog.Logger) *Importer {
	return &Importer{client: client, logger: logger.Named("semgrep")}
}

// ImportDirectory converts every YAML rule file under a local directory.
func (i *Importer) ImportDirectory(dir string) (types.RuleSet, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a rule directory: %s", dir)
	}

	i.logger.Info("importing rules from directory", "dir", dir)
	return ConvertDir(dir, i.logger), nil
}

// ImportURL downloads a rule set from an HTTP(S) URL. A .zip URL is treated
// as an archive of rule files; anything else as a single YAML document. The
// download is staged through a scratch folder that is always removed.
func (i *Importer) ImportURL(url string) (types.RuleSet, error) {
	i.logger.Info("importing rules from URL", "url", url)

	resp, err := i.client.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download rules from %q: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rule download from %q returned HTTP %d", url, resp.StatusCode())
	}

	scratch, err := os.MkdirTemp("", "codescan-rules-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch folder: %w", err)
	}
	defer os.RemoveAll(scratch)

	if strings.HasSuffix(strings.ToLower(url), ".zip") {
		if err := extractZip(resp.Body(), scratch); err != nil {
			return nil, fmt.Errorf("failed to extract rule archive: %w", err)
		}
		return ConvertDir(scratch, i.logger), nil
	}

	rulePath := filepath.Join(scratch, "rule.yaml")
	if err := os.WriteFile(rulePath, resp.Body(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to stage downloaded rules: %w", err)
	}
	return ConvertFile(rulePath, i.logger), nil
}

// ImportGitRepo shallow-clones a rule repository and converts its rule files.
// When languages are given, only the matching top-level subdirectories are
// searched; otherwise every top-level directory outside the fixed exclude
// list is. The scratch clone is removed regardless of outcome.
func (i *Importer) ImportGitRepo(ctx context.Context, repoURL, branch string, languages []string) (types.RuleSet, int, error) {
	if _, err := vcsurl.Parse(repoURL); err != nil {
		return nil, 0, fmt.Errorf("invalid repository URL %q: %w", repoURL, err)
	}
	if branch == "" {
		branch = defaultBranch
	}

	scratch, err := os.MkdirTemp("", "codescan-git-rules-")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create scratch folder: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := i.cloneWithRetry(ctx, repoURL, branch, scratch); err != nil {
		return nil, 0, err
	}

	result := types.RuleSet{}
	if len(languages) > 0 {
		for _, lang := range languages {
			langDir := filepath.Join(scratch, strings.ToLower(lang))
			if info, err := os.Stat(langDir); err != nil || !info.IsDir() {
				i.logger.Warn("language directory not found in repository", "language", lang)
				continue
			}
			i.logger.Info("processing language rules", "language", lang)
			mergeRuleSets(result, ConvertDir(langDir, i.logger))
		}
	} else {
		entries, err := os.ReadDir(scratch)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list cloned repository: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, excluded := repoExcludedDirs[entry.Name()]; excluded {
				continue
			}
			i.logger.Debug("processing repository directory", "dir", entry.Name())
			mergeRuleSets(result, ConvertDir(filepath.Join(scratch, entry.Name()), i.logger))
		}
	}

	count := result.TotalRules()
	if count == 0 {
		i.logger.Warn("no usable rules found in repository", "url", repoURL)
	} else {
		i.logger.Info("imported rules from repository", "url", repoURL, "rules", count)
	}
	return result, count, nil
}

// cloneWithRetry shallow-clones one branch, retrying with increasing backoff.
// Each attempt carries its own timeout and starts from an empty target.
func (i *Importer) cloneWithRetry(ctx context.Context, repoURL, branch, target string) error {
	var lastErr error
	for attempt := 1; attempt <= cloneAttempts; attempt++ {
		i.logger.Info("cloning rule repository", "url", repoURL, "branch", branch, "attempt", attempt)

		cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
		_, err := git.PlainCloneContext(cloneCtx, target, false, &git.CloneOptions{
			URL:           repoURL,
			Depth:         1,
			SingleBranch:  true,
			ReferenceName: plumbing.NewBranchReferenceName(branch),
		})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		i.logger.Warn("clone attempt failed", "attempt", attempt, "error", err)

		// Drop any partial clone before retrying.
		if err := os.RemoveAll(target); err == nil {
			_ = os.MkdirAll(target, 0o755)
		}

		if attempt < cloneAttempts {
			backoff := time.Duration(attempt) * 2 * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed to clone %q after %d attempts: %w", repoURL, cloneAttempts, lastErr)
}

// extractZip unpacks an in-memory archive into dir, rejecting entries that
// would escape it.
func extractZip(data []byte, dir string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}

	for _, file := range reader.File {
		target := filepath.Join(dir, filepath.Clean(file.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction folder", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
