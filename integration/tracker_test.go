//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmigrate/flowmigrate/internal/database"
	"github.com/flowmigrate/flowmigrate/internal/metadata"
	"github.com/flowmigrate/flowmigrate/internal/migration"
	"github.com/flowmigrate/flowmigrate/internal/version"
)

func setupTable(t *testing.T) *metadata.Table {
	t.Helper()

	pool := SetupPostgres(t)
	ctx := context.Background()

	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	t.Cleanup(conn.Release)

	adapter, err := database.NewAdapter(ctx, conn)
	require.NoError(t, err)

	table, err := metadata.New(conn, adapter, "schema_version")
	require.NoError(t, err)

	require.NoError(t, table.CreateIfNotExists(ctx))

	return table
}

func TestTable_fullLifecycle(t *testing.T) {
	t.Parallel()

	table := setupTable(t)
	ctx := context.Background()

	// CreateIfNotExists is idempotent.
	require.NoError(t, table.CreateIfNotExists(ctx))

	exists, err := table.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	applied, err := table.AllApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	checksum := int32(12345)
	err = table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("1"),
		Description: "create users",
		Type:        migration.TypeSQL,
		Script:      "V1__create_users.sql",
		Checksum:    &checksum,
		InstalledBy: "tester",
		Success:     true,
	})
	require.NoError(t, err)

	applied, err = table.AllApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "1", applied[0].Version.String())
	assert.Equal(t, "V1__create_users.sql", applied[0].Script)
	assert.Equal(t, &checksum, applied[0].Checksum)
	assert.True(t, applied[0].Success)
	assert.True(t, applied[0].Current)

	checksum2 := int32(99999)
	err = table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("2"),
		Description: "add column",
		Type:        migration.TypeSQL,
		Script:      "V2__add_column.sql",
		Checksum:    &checksum2,
		InstalledBy: "tester",
		Success:     true,
	})
	require.NoError(t, err)

	applied, err = table.AllApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.False(t, applied[0].Current, "adding a new row clears the prior current flag")
	assert.True(t, applied[1].Current)

	err = table.UpdateChecksum(ctx, version.MustParse("1"), &checksum2)
	require.NoError(t, err)

	applied, err = table.AllApplied(ctx)
	require.NoError(t, err)
	assert.Equal(t, &checksum2, applied[0].Checksum)

	err = table.UpdateChecksum(ctx, version.MustParse("999"), &checksum2)
	require.ErrorIs(t, err, metadata.ErrMigrationNotFound)
}

func TestTable_AddApplied_failedRow_doesNotMoveCurrent(t *testing.T) {
	t.Parallel()

	table := setupTable(t)
	ctx := context.Background()

	checksum := int32(111)
	require.NoError(t, table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("1"),
		Description: "create widgets",
		Type:        migration.TypeSQL,
		Script:      "V1__create_widgets.sql",
		Checksum:    &checksum,
		InstalledBy: "tester",
		Success:     true,
	}))

	checksum2 := int32(222)
	err := table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("2"),
		Description: "broken migration",
		Type:        migration.TypeSQL,
		Script:      "V2__broken.sql",
		Checksum:    &checksum2,
		InstalledBy: "tester",
		Success:     false,
	})
	require.NoError(t, err)

	applied, err := table.AllApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)

	assert.True(t, applied[0].Current, "current stays on the last successful row, not the failed one")
	assert.False(t, applied[1].Current, "a failed row never becomes current")
	assert.False(t, applied[1].Success)
}

func TestTable_Repair_deletesTrailingFailuresAndReestablishesCurrent(t *testing.T) {
	t.Parallel()

	table := setupTable(t)
	ctx := context.Background()

	checksum1 := int32(1)
	require.NoError(t, table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("1"),
		Description: "create accounts",
		Type:        migration.TypeSQL,
		Script:      "V1__create_accounts.sql",
		Checksum:    &checksum1,
		InstalledBy: "tester",
		Success:     true,
	}))

	checksum2 := int32(2)
	require.NoError(t, table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("2"),
		Description: "create orders",
		Type:        migration.TypeSQL,
		Script:      "V2__create_orders.sql",
		Checksum:    &checksum2,
		InstalledBy: "tester",
		Success:     true,
	}))

	checksum3 := int32(3)
	require.NoError(t, table.AddApplied(ctx, metadata.AddParams{
		Version:     version.MustParse("3"),
		Description: "broken migration",
		Type:        migration.TypeSQL,
		Script:      "V3__broken.sql",
		Checksum:    &checksum3,
		InstalledBy: "tester",
		Success:     false,
	}))

	require.NoError(t, table.Repair(ctx))

	applied, err := table.AllApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2, "the trailing failed row is deleted")
	assert.Equal(t, "1", applied[0].Version.String())
	assert.Equal(t, "2", applied[1].Version.String())
	assert.False(t, applied[0].Current)
	assert.True(t, applied[1].Current, "current is re-established on the highest remaining row")
}

func TestTable_Init_failsOnNonEmptyLedger(t *testing.T) {
	t.Parallel()

	table := setupTable(t)
	ctx := context.Background()

	require.NoError(t, table.Init(ctx, version.MustParse("1"), "baseline"))

	applied, err := table.AllApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, migration.TypeInit, applied[0].Type)

	err = table.Init(ctx, version.MustParse("2"), "second baseline")
	require.ErrorIs(t, err, metadata.ErrNonEmptyLedger)
}

func TestTable_SchemasCreated_recordsSyntheticRow(t *testing.T) {
	t.Parallel()

	table := setupTable(t)
	ctx := context.Background()

	require.NoError(t, table.SchemasCreated(ctx, []string{"app", "reporting"}))

	applied, err := table.AllApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, migration.TypeSchema, applied[0].Type)
	assert.Contains(t, applied[0].Description, "app")
	assert.Contains(t, applied[0].Description, "reporting")
}

func TestTable_Lock_serializesAcrossTables(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	conn1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	t.Cleanup(conn1.Release)

	adapter, err := database.NewAdapter(ctx, conn1)
	require.NoError(t, err)

	table1, err := metadata.New(conn1, adapter, "schema_version")
	require.NoError(t, err)
	require.NoError(t, table1.CreateIfNotExists(ctx))

	lock1, err := table1.Lock(ctx)
	require.NoError(t, err)

	released := make(chan struct{})

	go func() {
		conn2, err := pool.Acquire(ctx)
		if !assert.NoError(t, err) {
			return
		}
		defer conn2.Release()

		table2, err := metadata.New(conn2, adapter, "schema_version")
		if !assert.NoError(t, err) {
			return
		}

		lock2, err := table2.Lock(ctx) // blocks until lock1 releases
		if !assert.NoError(t, err) {
			return
		}

		close(released)

		assert.NoError(t, lock2.Release(ctx))
	}()

	time.Sleep(100 * time.Millisecond)

	select {
	case <-released:
		t.Fatal("second lock acquired before the first was released")
	default:
	}

	require.NoError(t, lock1.Release(ctx))
	<-released
}
