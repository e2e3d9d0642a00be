package vulndb

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.VulnDB.Home = t.TempDir()
	store, err := NewStore(cfg, resty.New(), hclog.NewNullLogger())
	require.NoError(t, err)
	return store
}

func TestNewStoreBootstrapsDefaults(t *testing.T) {
	store := newTestStore(t)

	assert.FileExists(t, filepath.Join(store.dir, dbFileName))
	assert.FileExists(t, filepath.Join(store.dir, lastUpdateFileName))
	assert.Greater(t, store.Patterns().TotalRules(), 0)
	assert.NotEmpty(t, store.Patterns()["common"])
}

func TestPatternsForCombinesCommonAndLanguage(t *testing.T) {
	store := newTestStore(t)

	patterns := store.PatternsFor("python")
	assert.Len(t, patterns, len(store.Patterns()["common"])+len(store.Patterns()["python"]))

	unknown := store.PatternsFor("cobol")
	assert.Len(t, unknown, len(store.Patterns()["common"]))
}

func TestMergeIdempotent(t *testing.T) {
	store := newTestStore(t)

	batch := types.RuleSet{
		"golang": {
			{ID: "golang-1", Name: "exec", Pattern: "exec\\.Command", Severity: types.SeverityHigh},
		},
	}

	added, err := store.Merge(batch)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = store.Merge(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, store.Patterns()["golang"], 1)
}

func TestMergeReplacesOnPatternChangeWithoutCounting(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "exec", Pattern: "exec\\.Command", Severity: types.SeverityHigh}},
	})
	require.NoError(t, err)

	added, err := store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "exec v2", Pattern: "os/exec", Severity: types.SeverityCritical}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, "os/exec", store.Patterns()["golang"][0].Pattern)
	assert.Equal(t, types.SeverityCritical, store.Patterns()["golang"][0].Severity)
}

func TestMergeReplacementPersistsAcrossReopen(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VulnDB.Home = t.TempDir()

	store, err := NewStore(cfg, resty.New(), hclog.NewNullLogger())
	require.NoError(t, err)

	_, err = store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "exec", Pattern: "exec\\.Command", Severity: types.SeverityHigh}},
	})
	require.NoError(t, err)

	added, err := store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "exec v2", Pattern: "os/exec", Severity: types.SeverityHigh}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	reopened, err := NewStore(cfg, resty.New(), hclog.NewNullLogger())
	require.NoError(t, err)
	require.Len(t, reopened.Patterns()["golang"], 1)
	assert.Equal(t, "os/exec", reopened.Patterns()["golang"][0].Pattern)
}

func TestMergeKeepsStoredRuleWhenIncomingPatternEmptyOrSame(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "exec", Pattern: "exec\\.Command", Severity: types.SeverityHigh}},
	})
	require.NoError(t, err)

	added, err := store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "renamed", Pattern: "", Severity: types.SeverityLow}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, "exec", store.Patterns()["golang"][0].Name)

	added, err = store.Merge(types.RuleSet{
		"golang": {{ID: "golang-1", Name: "renamed", Pattern: "exec\\.Command", Severity: types.SeverityLow}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, "exec", store.Patterns()["golang"][0].Name)
}

func TestMergeSynthesizesMissingIDs(t *testing.T) {
	store := newTestStore(t)

	added, err := store.Merge(types.RuleSet{
		"ruby": {
			{Name: "no id one", Pattern: "send\\("},
			{Name: "no id two", Pattern: "constantize"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	bucket := store.Patterns()["ruby"]
	require.Len(t, bucket, 2)
	assert.Equal(t, "ruby-0001", bucket[0].ID)
	assert.NotEmpty(t, bucket[1].ID)
	assert.NotEqual(t, bucket[0].ID, bucket[1].ID)
}

func TestDeleteRemovesRuleAndEmptyBucket(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Merge(types.RuleSet{
		"ruby": {{ID: "ruby-1", Name: "send", Pattern: "send\\("}},
	})
	require.NoError(t, err)

	removed, err := store.Delete("ruby", "ruby-1")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok := store.Patterns()["ruby"]
	assert.False(t, ok)

	removed, err = store.Delete("ruby", "ruby-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUpdateReplacesWholesale(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"common":[{"id":"common-1","name":"fresh","pattern":"fresh","severity":"low"}]}`))
	}))
	defer server.Close()

	store := newTestStore(t)
	store.cfg.UpdateURL = server.URL

	require.NoError(t, store.Update())
	assert.Equal(t, 1, store.Patterns().TotalRules())
	assert.Equal(t, "fresh", store.Patterns()["common"][0].Name)
}

func TestUpdateFailureLeavesRulesUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	store := newTestStore(t)
	before := store.Patterns().TotalRules()
	store.cfg.UpdateURL = server.URL

	client := resty.New()
	client.SetRetryCount(0)
	store.client = client

	assert.Error(t, store.Update())
	assert.Equal(t, before, store.Patterns().TotalRules())
}

func TestStaleDetection(t *testing.T) {
	store := newTestStore(t)

	// Freshly written stamp is not stale.
	assert.False(t, store.stale())

	old := time.Now().Add(-30 * 24 * time.Hour).Unix()
	stamp := `{"last_update":` + strconv.FormatInt(old, 10) + `}`
	require.NoError(t, os.WriteFile(store.lastUpdateFile, []byte(stamp), 0o644))
	assert.True(t, store.stale())
}
