// Package vulndb manages the persistent rule repository backing the pattern
// match engine. Rules live in a single JSON document keyed by language bucket,
// stored under the application home folder together with a last-update stamp.
package vulndb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/files"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

const (
	dbFileName         = "vulndb.json"
	lastUpdateFileName = "last_update.json"
)

// Store is the on-disk rule repository. All mutating operations persist
// immediately so concurrent CLI invocations observe a consistent file.
type Store struct {
	dir            string
	dbFile         string
	lastUpdateFile string
	patterns       types.RuleSet
	cfg            config.VulnDB
	client         *resty.Client
	logger         hclog.Logger
}

type lastUpdateStamp struct {
	LastUpdate int64 `json:"last_update"`
}

// NewStore opens the rule repository under the application home folder,
// bootstrapping a default rule set on first use. When auto update is enabled
// and the repository is stale, a refresh is attempted; a failed refresh is
// logged and the existing rules stay in effect.
func NewStore(cfg *config.Config, client *resty.Client, logger hclog.Logger) (*Store, error) {
	dir := cfg.VulnDB.Home
	if dir == "" {
		dir = filepath.Join(config.GetCodescanHome(), "vulndb")
	}
	if err := files.CreateFolderIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create rule repository folder %q: %w", dir, err)
	}

	store := &Store{
		dir:            dir,
		dbFile:         filepath.Join(dir, dbFileName),
		lastUpdateFile: filepath.Join(dir, lastUpdateFileName),
		cfg:            cfg.VulnDB,
		client:         client,
		logger:         logger.Named("vulndb"),
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	if store.cfg.AutoUpdate && store.stale() {
		store.logger.Info("rule repository is stale, refreshing", "url", store.cfg.UpdateURL)
		if err := store.Update(); err != nil {
			store.logger.Warn("rule repository refresh failed, keeping current rules", "error", err)
		}
	}

	return store, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.dbFile)
	if os.IsNotExist(err) {
		s.logger.Info("rule repository not found, creating default rule set")
		s.patterns = defaultRuleSet()
		return s.save()
	}
	if err != nil {
		return fmt.Errorf("failed to read rule repository: %w", err)
	}

	var patterns types.RuleSet
	if err := json.Unmarshal(data, &patterns); err != nil {
		s.logger.Warn("rule repository is corrupt, recreating default rule set", "error", err)
		s.patterns = defaultRuleSet()
		return s.save()
	}

	s.patterns = patterns
	s.logger.Debug("loaded rule repository", "rules", s.patterns.TotalRules())
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.patterns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize rule repository: %w", err)
	}
	if err := os.WriteFile(s.dbFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rule repository: %w", err)
	}

	stamp, err := json.Marshal(lastUpdateStamp{LastUpdate: time.Now().Unix()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.lastUpdateFile, stamp, 0o644); err != nil {
		return fmt.Errorf("failed to write update stamp: %w", err)
	}
	return nil
}

// Patterns returns the full rule set keyed by language bucket.
func (s *Store) Patterns() types.RuleSet {
	return s.patterns
}

// PatternsFor returns the rules applying to one language: the shared "common"
// bucket followed by the language's own bucket.
func (s *Store) PatternsFor(lang string) []types.RulePattern {
	patterns := make([]types.RulePattern, 0, len(s.patterns["common"])+len(s.patterns[lang]))
	patterns = append(patterns, s.patterns["common"]...)
	patterns = append(patterns, s.patterns[lang]...)
	return patterns
}

// Merge folds a batch of incoming rules into the repository and returns the
// number of newly added rules. An existing rule is replaced only when the
// incoming rule carries a non-empty pattern that differs from the stored one;
// replacements are not counted but are persisted like additions. Rules
// arriving without an ID get a synthesized bucket-scoped one. Buckets left
// empty are removed.
func (s *Store) Merge(incoming types.RuleSet) (int, error) {
	totalAdded := 0
	replaced := false

	for lang, rules := range incoming {
		bucket := s.patterns[lang]

		existing := make(map[string]int, len(bucket))
		for i, rule := range bucket {
			existing[rule.ID] = i
		}

		for _, rule := range rules {
			if rule.ID == "" {
				rule.ID = fmt.Sprintf("%s-%04d", lang, len(bucket)+totalAdded+1)
			}

			if index, ok := existing[rule.ID]; ok {
				if rule.Pattern != "" && rule.Pattern != bucket[index].Pattern {
					bucket[index] = rule
					replaced = true
				}
				continue
			}

			bucket = append(bucket, rule)
			totalAdded++
		}

		if len(bucket) == 0 {
			delete(s.patterns, lang)
		} else {
			s.patterns[lang] = bucket
		}
	}

	if totalAdded > 0 || replaced {
		if err := s.save(); err != nil {
			return totalAdded, err
		}
	}
	return totalAdded, nil
}

// Delete removes one rule by bucket and ID, dropping the bucket when it
// becomes empty. It reports whether the rule existed.
func (s *Store) Delete(lang, id string) (bool, error) {
	bucket, ok := s.patterns[lang]
	if !ok {
		return false, nil
	}

	for i, rule := range bucket {
		if rule.ID != id {
			continue
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		if len(bucket) == 0 {
			delete(s.patterns, lang)
		} else {
			s.patterns[lang] = bucket
		}
		return true, s.save()
	}
	return false, nil
}

// stale reports whether the repository is older than the configured update
// interval. A missing or unreadable stamp counts as stale.
func (s *Store) stale() bool {
	data, err := os.ReadFile(s.lastUpdateFile)
	if err != nil {
		return true
	}

	var stamp lastUpdateStamp
	if err := json.Unmarshal(data, &stamp); err != nil {
		s.logger.Warn("failed to parse update stamp", "error", err)
		return true
	}

	interval := time.Duration(s.cfg.UpdateIntervalDays) * 24 * time.Hour
	return time.Since(time.Unix(stamp.LastUpdate, 0)) > interval
}

// Update fetches a full replacement rule set from the configured URL. On any
// failure the current rules are left untouched.
func (s *Store) Update() error {
	if s.cfg.UpdateURL == "" {
		return fmt.Errorf("rule repository update URL is not configured")
	}

	resp, err := s.client.R().Get(s.cfg.UpdateURL)
	if err != nil {
		return fmt.Errorf("failed to fetch rule repository update: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("rule repository update returned HTTP %d", resp.StatusCode())
	}

	var fresh types.RuleSet
	if err := json.Unmarshal(resp.Body(), &fresh); err != nil {
		return fmt.Errorf("failed to parse rule repository update: %w", err)
	}

	s.patterns = fresh
	if err := s.save(); err != nil {
		return err
	}

	s.logger.Info("rule repository updated", "rules", s.patterns.TotalRules())
	return nil
}
