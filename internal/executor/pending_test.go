package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmigrate/flowmigrate/internal/enginerr"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

func resolved(v string) migration.ResolvedMigration {
	return migration.ResolvedMigration{Version: version.MustParse(v), Type: migration.TypeSQL, Script: "V" + v + "__x.sql"}
}

func appliedOK(v string) migration.AppliedMigration {
	return migration.AppliedMigration{Version: version.MustParse(v), Success: true}
}

func appliedFailed(v string) migration.AppliedMigration {
	return migration.AppliedMigration{Version: version.MustParse(v), Success: false}
}

func TestComputePlanAllPendingWhenLedgerEmpty(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1"), resolved("2")})

	plan, err := computePlan(catalog, nil, version.Latest, false, false)
	require.NoError(t, err)
	assert.Len(t, plan.Pending, 2)
	assert.Empty(t, plan.Warnings)
}

func TestComputePlanSkipsAlreadyAppliedVersions(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1"), resolved("2")})

	plan, err := computePlan(catalog, []migration.AppliedMigration{appliedOK("1")}, version.Latest, false, false)
	require.NoError(t, err)
	require.Len(t, plan.Pending, 1)
	assert.True(t, plan.Pending[0].Version.Equal(version.MustParse("2")))
}

func TestComputePlanHonorsTarget(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1"), resolved("2"), resolved("3")})

	plan, err := computePlan(catalog, nil, version.MustParse("2"), false, false)
	require.NoError(t, err)
	require.Len(t, plan.Pending, 2)
	assert.True(t, plan.Pending[1].Version.Equal(version.MustParse("2")))
}

func TestComputePlanIgnoresOutOfOrderByDefault(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1"), resolved("2")})

	plan, err := computePlan(catalog, []migration.AppliedMigration{appliedOK("2")}, version.Latest, false, false)
	require.NoError(t, err)
	assert.Empty(t, plan.Pending)
	require.Len(t, plan.Warnings, 1)
}

func TestComputePlanAppliesOutOfOrderWhenEnabled(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1"), resolved("2")})

	plan, err := computePlan(catalog, []migration.AppliedMigration{appliedOK("2")}, version.Latest, true, false)
	require.NoError(t, err)
	require.Len(t, plan.Pending, 1)
	assert.True(t, plan.Pending[0].Version.Equal(version.MustParse("1")))
}

func TestComputePlanFailsOnFailedFutureMigration(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1")})

	_, err := computePlan(catalog, []migration.AppliedMigration{appliedFailed("5")}, version.Latest, false, false)
	require.Error(t, err)

	kind, ok := enginerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, enginerr.FailedFuture, kind)
}

func TestComputePlanIgnoresFailedFutureWhenConfigured(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1")})

	plan, err := computePlan(catalog, []migration.AppliedMigration{appliedFailed("5")}, version.Latest, false, true)
	require.NoError(t, err)
	assert.Empty(t, plan.Pending)
	require.Len(t, plan.Warnings, 1)
}

func TestComputePlanAllowsSuccessfulFutureMigration(t *testing.T) {
	catalog := migration.Sort([]migration.ResolvedMigration{resolved("1")})

	plan, err := computePlan(catalog, []migration.AppliedMigration{appliedOK("1"), appliedOK("5")}, version.Latest, false, false)
	require.NoError(t, err)
	assert.Empty(t, plan.Pending)
}
