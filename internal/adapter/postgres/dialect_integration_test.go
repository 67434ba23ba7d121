package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tneupaney/dbanalyzer/internal/adapter/postgres"
	"github.com/tneupaney/dbanalyzer/internal/core/domain"
)

const integrationSchema = `
	CREATE TABLE customers (
		id    SERIAL PRIMARY KEY,
		email TEXT UNIQUE,
		name  TEXT NOT NULL
	);

	CREATE TABLE orders (
		id          SERIAL PRIMARY KEY,
		customer_id INTEGER NOT NULL REFERENCES customers(id),
		total       NUMERIC(10,2),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX idx_orders_created ON orders(created_at);

	CREATE FUNCTION touch_customer() RETURNS trigger AS $$
	BEGIN
		UPDATE customers SET name = name WHERE id = NEW.customer_id;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;

	CREATE TRIGGER orders_touch AFTER INSERT ON orders
	FOR EACH ROW EXECUTE FUNCTION touch_customer();

	CREATE TABLE shipments (
		region TEXT NOT NULL,
		code   INTEGER NOT NULL,
		PRIMARY KEY (region, code)
	);

	CREATE TABLE parcels (
		id              SERIAL PRIMARY KEY,
		shipment_code   INTEGER,
		shipment_region TEXT,
		FOREIGN KEY (shipment_code, shipment_region) REFERENCES shipments (code, region)
	);

	INSERT INTO customers (email, name) VALUES
		('alice@example.com', 'Alice'),
		('bob@example.com', 'Bob');
	INSERT INTO orders (customer_id, total) VALUES (1, 19.99), (2, 5.00);
	INSERT INTO shipments (region, code) VALUES ('eu', 7);
	INSERT INTO parcels (shipment_code, shipment_region) VALUES (7, 'eu');
`

func setupDialect(t *testing.T) *postgres.Dialect {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, integrationSchema)
	pool.Close()
	require.NoError(t, err)

	d, err := postgres.Open(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestDialect_Discovery(t *testing.T) {
	d := setupDialect(t)
	ctx := context.Background()

	names, err := d.DiscoverTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "parcels", "shipments"}, names)

	meta, err := d.DiscoverColumns(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, meta.PrimaryKey)
	require.Len(t, meta.Columns, 4)

	byName := map[string]int{}
	for i, c := range meta.Columns {
		byName[c.Name] = i
	}
	assert.Equal(t, domain.TypeInteger, meta.Columns[byName["customer_id"]].Semantic)
	assert.Equal(t, domain.TypeDecimal, meta.Columns[byName["total"]].Semantic)
	assert.Equal(t, domain.TypeDatetime, meta.Columns[byName["created_at"]].Semantic)

	fks, err := d.DiscoverForeignKeys(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"customer_id"}, fks[0].Columns)
	assert.Equal(t, "customers", fks[0].RefTable)
	assert.Equal(t, []string{"id"}, fks[0].RefColumns)
	assert.False(t, fks[0].SourceNullable)

	idxs, err := d.DiscoverIndexes(ctx, "orders")
	require.NoError(t, err)
	found := map[string]bool{}
	for _, idx := range idxs {
		found[idx.Name] = true
		if idx.Name == "orders_pkey" {
			assert.True(t, idx.Primary)
			assert.True(t, idx.Unique)
		}
	}
	assert.True(t, found["orders_pkey"])
	assert.True(t, found["idx_orders_created"])

	trs, err := d.DiscoverTriggers(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, "orders_touch", trs[0].Name)
	assert.Equal(t, domain.TriggerInsert, trs[0].Event)
	assert.Equal(t, domain.TriggerAfter, trs[0].Timing)
}

func TestDialect_CompositeForeignKey(t *testing.T) {
	d := setupDialect(t)
	ctx := context.Background()

	fks, err := d.DiscoverForeignKeys(ctx, "parcels")
	require.NoError(t, err)
	require.Len(t, fks, 1)

	// Source and referenced columns must line up pairwise, in constraint
	// order, with no duplicated entries from the catalog join.
	assert.Equal(t, "shipments", fks[0].RefTable)
	assert.Equal(t, []string{"shipment_code", "shipment_region"}, fks[0].Columns)
	assert.Equal(t, []string{"code", "region"}, fks[0].RefColumns)
	assert.True(t, fks[0].SourceNullable)
}

func TestDialect_QueryTimed(t *testing.T) {
	d := setupDialect(t)
	ctx := context.Background()

	rows, elapsed, err := d.QueryTimed(ctx,
		`SELECT * FROM "orders" WHERE "customer_id" = ?`, 1)
	require.NoError(t, err)
	assert.Greater(t, elapsed, time.Duration(0))
	require.Len(t, rows, 1)
}

func TestDialect_GuardBlocksWrites(t *testing.T) {
	d := setupDialect(t)
	ctx := context.Background()

	_, _, err := d.QueryTimed(ctx, "DELETE FROM orders")
	assert.ErrorIs(t, err, postgres.ErrNotReadOnly)

	_, _, err = d.QueryTimed(ctx, "SELECT 1; DROP TABLE orders")
	assert.ErrorIs(t, err, postgres.ErrMultiStatement)

	rows, _, err := d.QueryTimed(ctx, `SELECT COUNT(*) AS n FROM "orders"`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows[0]["n"], "blocked statements never execute")
}

func TestDialect_ProbeRollsBack(t *testing.T) {
	d := setupDialect(t)
	ctx := context.Background()

	probe, err := d.BeginProbe(ctx)
	require.NoError(t, err)

	_, err = probe.Exec(ctx,
		`INSERT INTO "orders" ("customer_id", "total") VALUES (?, ?)`, 1, 9.99)
	require.NoError(t, err)
	require.NoError(t, probe.Close())
	require.NoError(t, probe.Close(), "closing twice is harmless")

	rows, _, err := d.QueryTimed(ctx, `SELECT COUNT(*) AS n FROM "orders"`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows[0]["n"], "probe writes never persist")
}
