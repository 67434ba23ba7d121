package postgres

// $1 = schema.
const queryListTables = `
	SELECT t.table_name
	FROM information_schema.tables t
	WHERE t.table_schema = $1
		AND t.table_type = 'BASE TABLE'
	ORDER BY t.table_name`

// $1 = schema, $2 = table_name.
const queryColumns = `
	SELECT
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES',
		COALESCE(c.column_default, ''),
		c.ordinal_position
	FROM information_schema.columns c
	WHERE c.table_schema = $1 AND c.table_name = $2
	ORDER BY c.ordinal_position`

// $1 = schema, $2 = table_name. Column order follows the index definition.
const queryPrimaryKey = `
	SELECT a.attname
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	WHERE i.indrelid = (quote_ident($1) || '.' || quote_ident($2))::regclass
		AND i.indisprimary
	ORDER BY array_position(i.indkey, a.attnum)`

// $1 = schema, $2 = table_name. One row per constraint column pair. conkey
// and confkey are unnested together, so source and referenced columns stay
// aligned by position even for composite constraints.
const queryForeignKeys = `
	SELECT
		con.conname,
		src.attname,
		ref_cls.relname AS referenced_table,
		ref.attname AS referenced_column,
		NOT src.attnotnull
	FROM pg_constraint con
	JOIN pg_class cls ON cls.oid = con.conrelid
	JOIN pg_namespace n ON n.oid = cls.relnamespace
	JOIN pg_class ref_cls ON ref_cls.oid = con.confrelid
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey)
		WITH ORDINALITY AS pairs(src_attnum, ref_attnum, ord)
	JOIN pg_attribute src ON src.attrelid = con.conrelid AND src.attnum = pairs.src_attnum
	JOIN pg_attribute ref ON ref.attrelid = con.confrelid AND ref.attnum = pairs.ref_attnum
	WHERE con.contype = 'f'
		AND n.nspname = $1
		AND cls.relname = $2
	ORDER BY con.conname, pairs.ord`

// $1 = schema, $2 = table_name. Columns come back as an ordered name array.
const queryIndexes = `
	SELECT
		c.relname AS index_name,
		ARRAY(
			SELECT a.attname
			FROM unnest(i.indkey) WITH ORDINALITY AS k(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = k.attnum
			ORDER BY k.ord
		) AS columns,
		i.indisunique,
		i.indisprimary
	FROM pg_index i
	JOIN pg_class c ON c.oid = i.indexrelid
	JOIN pg_class t ON t.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = t.relnamespace
	WHERE n.nspname = $1 AND t.relname = $2
	ORDER BY c.relname`

// $1 = schema, $2 = table_name. A trigger firing on several events appears
// once per event.
const queryTriggers = `
	SELECT
		t.trigger_name,
		t.event_manipulation,
		t.action_timing
	FROM information_schema.triggers t
	WHERE t.trigger_schema = $1 AND t.event_object_table = $2
	ORDER BY t.trigger_name, t.event_manipulation`
