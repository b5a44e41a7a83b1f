//go:build test

package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/test"
	"golang.org/x/sync/errgroup"
)

func getInstance(t *testing.T) SignalProvider {
	t.Helper()
	provider, err := New(models.SignalConnection{Path: filepath.Join(t.TempDir(), "data", "signals.db")})
	test.IsNil(t, err)
	t.Cleanup(provider.Close)
	return provider
}

func TestNew(t *testing.T) {
	_, err := New(models.SignalConnection{})
	test.IsNotNil(t, err)
	provider := getInstance(t)
	test.IsEqualInt(t, provider.GetType(), 2)
	test.IsNil(t, provider.createTables())
}

func TestRequestCancel(t *testing.T) {
	provider := getInstance(t)
	cancelled, err := provider.IsCancelled("abcd1234")
	test.IsNil(t, err)
	test.IsEqualBool(t, cancelled, false)

	created, err := provider.RequestCancel("abcd1234")
	test.IsNil(t, err)
	test.IsEqualBool(t, created, true)
	created, err = provider.RequestCancel("abcd1234")
	test.IsNil(t, err)
	test.IsEqualBool(t, created, false)

	cancelled, err = provider.IsCancelled("abcd1234")
	test.IsNil(t, err)
	test.IsEqualBool(t, cancelled, true)
}

func TestRequestCancelConcurrent(t *testing.T) {
	provider := getInstance(t)
	results := make([]bool, 10)
	var group errgroup.Group
	for i := range results {
		index := i
		group.Go(func() error {
			created, err := provider.RequestCancel("concurrent")
			results[index] = created
			return err
		})
	}
	test.IsNil(t, group.Wait())
	createdCount := 0
	for _, created := range results {
		if created {
			createdCount++
		}
	}
	test.IsEqualInt(t, createdCount, 1)
}

func TestOutcome(t *testing.T) {
	provider := getInstance(t)
	_, ok, err := provider.GetOutcome("abcd1234")
	test.IsNil(t, err)
	test.IsEqualBool(t, ok, false)
	test.IsNil(t, provider.SaveOutcome("abcd1234", models.StatusFailed))
	test.IsNil(t, provider.SaveOutcome("abcd1234", models.StatusCompleted))
	status, ok, err := provider.GetOutcome("abcd1234")
	test.IsNil(t, err)
	test.IsEqualBool(t, ok, true)
	test.IsEqualString(t, string(status), "completed")
}

func TestPurge(t *testing.T) {
	provider := getInstance(t)
	_, _ = provider.RequestCancel("abcd1234")
	_ = provider.SaveOutcome("abcd1234", models.StatusCancelled)
	test.IsNil(t, provider.Purge("abcd1234"))
	cancelled, _ := provider.IsCancelled("abcd1234")
	test.IsEqualBool(t, cancelled, false)
	_, ok, _ := provider.GetOutcome("abcd1234")
	test.IsEqualBool(t, ok, false)
}

func TestPurgeOlderThan(t *testing.T) {
	provider := getInstance(t)
	old := time.Now().Add(-48 * time.Hour).Unix()
	err := provider.rawSqlite(fmt.Sprintf(`INSERT INTO Signals (SessionId, Kind, Value, CreationDate) VALUES ('old00000', 'cancel', '%d', %d)`, old, old))
	test.IsNil(t, err)
	_, _ = provider.RequestCancel("new00000")
	test.IsNil(t, provider.PurgeOlderThan(24*time.Hour))
	cancelled, _ := provider.IsCancelled("old00000")
	test.IsEqualBool(t, cancelled, false)
	cancelled, _ = provider.IsCancelled("new00000")
	test.IsEqualBool(t, cancelled, true)
}
