package info

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

func sum(n int32) *int32 { return &n }

func resolved(v string, sum *int32) migration.ResolvedMigration {
	return migration.ResolvedMigration{
		Version: version.MustParse(v), Type: migration.TypeSQL, Script: "V" + v + "__x.sql",
		Description: "x", Checksum: sum,
	}
}

func appliedRow(v string, success bool, current bool, sum *int32) migration.AppliedMigration {
	return migration.AppliedMigration{
		Version: version.MustParse(v), Type: migration.TypeSQL, Script: "V" + v + "__x.sql",
		Description: "x", Success: success, Current: current, Checksum: sum,
	}
}

func TestAllDerivesPendingWhenOnlyInCatalog(t *testing.T) {
	svc := New(migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1))}), nil, false)

	infos := svc.All()
	require.Len(t, infos, 1)
	assert.Equal(t, migration.StatePending, infos[0].State)
}

func TestAllDerivesSuccessAndFailed(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1)), resolved("2", sum(2))})
	applied := []migration.AppliedMigration{appliedRow("1", true, false, sum(1)), appliedRow("2", false, true, sum(2))}

	svc := New(catalog, applied, false)
	infos := svc.All()
	require.Len(t, infos, 2)
	assert.Equal(t, migration.StateSuccess, infos[0].State)
	assert.Equal(t, migration.StateFailed, infos[1].State)
}

func TestAllDerivesMissingForLedgerOnlyEntryAtOrBelowMax(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("2", sum(2))})
	applied := []migration.AppliedMigration{appliedRow("1", true, false, sum(1)), appliedRow("2", true, true, sum(2))}

	svc := New(catalog, applied, false)

	var gotMissing bool

	for _, info := range svc.All() {
		if info.State == migration.StateMissing {
			gotMissing = true
			assert.True(t, info.Version.Equal(version.MustParse("1")))
		}
	}

	assert.True(t, gotMissing)
}

func TestAllDerivesFutureForLedgerEntryBeyondMaxCatalog(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1))})
	applied := []migration.AppliedMigration{appliedRow("1", true, false, sum(1)), appliedRow("5", true, true, sum(5))}

	svc := New(catalog, applied, false)

	var gotFuture bool

	for _, info := range svc.All() {
		if info.State == migration.StateFuture {
			gotFuture = true
		}
	}

	assert.True(t, gotFuture)
}

func TestAllDerivesOutOfOrderBelowHeadWhenDisabled(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1)), resolved("2", sum(2))})
	applied := []migration.AppliedMigration{appliedRow("2", true, true, sum(2))}

	svc := New(catalog, applied, false)

	infos := svc.All()
	require.Len(t, infos, 2)
	assert.Equal(t, migration.StateOutOfOrder, infos[0].State)
}

func TestCurrentReturnsLedgerCurrentRow(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1))})
	applied := []migration.AppliedMigration{appliedRow("1", true, true, sum(1))}

	svc := New(catalog, applied, false)

	current, ok := svc.Current()
	require.True(t, ok)
	assert.True(t, current.Version.Equal(version.MustParse("1")))
}

func TestValidateDetectsChecksumMismatchBeforeOthers(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(99))})
	applied := []migration.AppliedMigration{appliedRow("1", true, true, sum(1))}

	svc := New(catalog, applied, false)

	msg := svc.Validate()
	assert.Contains(t, msg, "checksum mismatch")
}

func TestValidateDetectsMissingBelowHead(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1)), resolved("2", sum(2))})
	applied := []migration.AppliedMigration{appliedRow("2", true, true, sum(2))}

	svc := New(catalog, applied, false)

	msg := svc.Validate()
	assert.Contains(t, msg, "missing")
}

func TestValidatePassesWhenConsistent(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1))})
	applied := []migration.AppliedMigration{appliedRow("1", true, true, sum(1))}

	svc := New(catalog, applied, false)

	assert.Empty(t, svc.Validate())
}

func TestPendingHonorsOutOfOrder(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1", sum(1)), resolved("2", sum(2))})
	applied := []migration.AppliedMigration{appliedRow("2", true, true, sum(2))}

	svc := New(catalog, applied, true)

	pending := svc.Pending()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Version.Equal(version.MustParse("1")))
}
