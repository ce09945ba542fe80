package table

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// JDBCTable delegates CRUD to prepared SQL statements against a Postgres
// table (spec §4.5: "JDBC-backed tables delegate CRUD to prepared SQL
// statements"). Grounded on the teacher's internal/platform/database.Open
// (sql.Open("postgres", dsn) + PingContext) for connection setup, widened
// here to jmoiron/sqlx for row scanning convenience.
type JDBCTable struct {
	db       *sqlx.DB
	table    string
	columns  []string // ordered to match Row indices
	colTypes []event.AttributeType
}

// OpenJDBCTable opens a Postgres connection via dsn and binds it to table,
// whose columns (in Row order) are given by columns/colTypes.
func OpenJDBCTable(ctx context.Context, dsn, table string, columns []string, colTypes []event.AttributeType) (*JDBCTable, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &JDBCTable{db: db, table: table, columns: columns, colTypes: colTypes}, nil
}

// ValidateConnectivity checks server reachability and schema presence at app
// start (application-init validation phase, spec §7 phase 2).
func (t *JDBCTable) ValidateConnectivity() error {
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	var exists bool
	err := t.db.GetContext(pingCtx, &exists, `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables WHERE table_name = $1
	)`, t.table)
	if err != nil {
		return fmt.Errorf("check schema for %s: %w", t.table, err)
	}
	if !exists {
		return fmt.Errorf("table %s does not exist", t.table)
	}
	return nil
}

func (t *JDBCTable) Insert(row Row) error {
	placeholders := make([]string, len(t.columns))
	args := make([]any, len(row))
	for i := range t.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rowValueToSQL(row[i])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.table, strings.Join(t.columns, ", "), strings.Join(placeholders, ", "))
	_, err := t.db.Exec(query, args...)
	return err
}

func (t *JDBCTable) whereClause(cond Condition) (string, []any, bool) {
	eq, ok := cond.(EqualityCondition)
	if !ok {
		return "", nil, false
	}
	var clauses []string
	var args []any
	i := 1
	for col, v := range eq.Values {
		if col < 0 || col >= len(t.columns) {
			return "", nil, false
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", t.columns[col], i))
		args = append(args, rowValueToSQL(v))
		i++
	}
	return strings.Join(clauses, " AND "), args, true
}

func (t *JDBCTable) Find(cond Condition) (Row, bool, error) {
	where, args, ok := t.whereClause(cond)
	if !ok {
		return nil, false, fmt.Errorf("condition is not representable as SQL WHERE clause")
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", strings.Join(t.columns, ", "), t.table, where)
	rows, err := t.db.Queryx(query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, nil
	}
	vals, err := rows.SliceScan()
	if err != nil {
		return nil, false, err
	}
	return sqlValuesToRow(vals, t.colTypes), true, nil
}

func (t *JDBCTable) Contains(cond Condition) (bool, error) {
	_, found, err := t.Find(cond)
	return found, err
}

func (t *JDBCTable) Update(cond Condition, upd UpdateSet) (bool, error) {
	where, args, ok := t.whereClause(cond)
	if !ok {
		return false, fmt.Errorf("condition is not representable as SQL WHERE clause")
	}
	var sets []string
	i := len(args) + 1
	for col, v := range upd {
		if col < 0 || col >= len(t.columns) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", t.columns[col], i))
		args = append(args, rowValueToSQL(v))
		i++
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", t.table, strings.Join(sets, ", "), where)
	res, err := t.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *JDBCTable) Delete(cond Condition) (bool, error) {
	where, args, ok := t.whereClause(cond)
	if !ok {
		return false, fmt.Errorf("condition is not representable as SQL WHERE clause")
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", t.table, where)
	res, err := t.db.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (t *JDBCTable) AllRows() ([]Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.columns, ", "), t.table)
	rows, err := t.db.Queryx(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Row
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		out = append(out, sqlValuesToRow(vals, t.colTypes))
	}
	return out, rows.Err()
}

func rowValueToSQL(v event.AttributeValue) any {
	switch v.Type() {
	case event.TypeInt:
		return v.AsInt()
	case event.TypeLong:
		return v.AsLong()
	case event.TypeFloat:
		return v.AsFloat()
	case event.TypeDouble:
		return v.AsDouble()
	case event.TypeBool:
		return v.AsBool()
	case event.TypeString:
		return v.AsString()
	case event.TypeBytes:
		return v.AsBytes()
	case event.TypeNull:
		return nil
	default:
		return v.String()
	}
}

func sqlValuesToRow(vals []any, colTypes []event.AttributeType) Row {
	row := make(Row, len(vals))
	for i, raw := range vals {
		if raw == nil {
			row[i] = event.Null
			continue
		}
		t := event.TypeString
		if i < len(colTypes) {
			t = colTypes[i]
		}
		row[i] = sqlValueToAttribute(raw, t)
	}
	return row
}

func sqlValueToAttribute(raw any, t event.AttributeType) event.AttributeValue {
	switch t {
	case event.TypeInt:
		if n, ok := raw.(int64); ok {
			return event.Int(int32(n))
		}
	case event.TypeLong:
		if n, ok := raw.(int64); ok {
			return event.Long(n)
		}
	case event.TypeFloat:
		if f, ok := raw.(float64); ok {
			return event.Float(float32(f))
		}
	case event.TypeDouble:
		if f, ok := raw.(float64); ok {
			return event.Double(f)
		}
	case event.TypeBool:
		if b, ok := raw.(bool); ok {
			return event.Bool(b)
		}
	case event.TypeBytes:
		if b, ok := raw.([]byte); ok {
			return event.Bytes(b)
		}
	}
	switch v := raw.(type) {
	case []byte:
		return event.Str(string(v))
	case string:
		return event.Str(v)
	default:
		return event.Str(fmt.Sprintf("%v", v))
	}
}
