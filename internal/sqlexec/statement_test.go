package sqlexec

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain",
			text: "SELECT * FROM records WHERE team_id = :team_id AND amount >= :min_amount",
			want: []string{"team_id", "min_amount"},
		},
		{
			name: "string literal is skipped",
			text: "SELECT TO_CHAR(d, 'HH24:MI:SS') FROM t WHERE x = ':not_me' AND y = :me",
			want: []string{"me"},
		},
		{
			name: "postgres casts are not placeholders",
			text: "SELECT amount::numeric FROM t WHERE id = :id::int",
			want: []string{"id"},
		},
		{
			name: "comments are skipped",
			text: "SELECT 1 -- :line\nFROM t /* :block */ WHERE a = :a",
			want: []string{"a"},
		},
		{
			name: "quoted identifiers are skipped",
			text: `SELECT ":col", [:other] FROM t WHERE a = :a`,
			want: []string{"a"},
		},
		{
			name: "escaped quote inside literal",
			text: "SELECT 'it''s :x' WHERE b = :b",
			want: []string{"b"},
		},
		{
			name: "none",
			text: "SELECT 1",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Placeholders(tt.text))
		})
	}
}

func TestCompilePostgres(t *testing.T) {
	stmt, err := compile(Postgres,
		"SELECT r.record_id FROM records r WHERE r.team_id = :team_id AND r.amount >= :min_amount::numeric",
		[]Binding{
			Input("min_amount", TypeDecimal, "10"),
			Input(":team_id", TypeText, "T1"),
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "SELECT r.record_id FROM records r WHERE r.team_id = $1 AND r.amount >= $2::numeric", stmt.text)
	require.Len(t, stmt.args, 2)
	assert.Equal(t, "T1", stmt.args[0])
	requireDecimalArg(t, "10", stmt.args[1])
	assert.Equal(t, []string{"team_id", "min_amount"}, stmt.names)
	assert.True(t, stmt.query)
	assert.False(t, stmt.returned)
}

func TestCompileSQLite(t *testing.T) {
	stmt, err := compile(SQLite, "UPDATE records SET amount = :amount WHERE record_id = :id", []Binding{
		Input("id", TypeInteger, int64(7)),
		Input("amount", TypeDecimal, "1.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, "UPDATE records SET amount = ? WHERE record_id = ?", stmt.text)
	require.Len(t, stmt.args, 2)
	requireDecimalArg(t, "1.50", stmt.args[0])
	assert.Equal(t, int64(7), stmt.args[1])
	assert.False(t, stmt.query)
}

func requireDecimalArg(t *testing.T, want string, arg any) {
	t.Helper()
	d, ok := arg.(decimal.Decimal)
	require.True(t, ok, "expected decimal.Decimal, got %T", arg)
	assert.True(t, decimal.RequireFromString(want).Equal(d), "want %s, got %s", want, d)
}

func TestCompileConvertsTextToDeclaredType(t *testing.T) {
	stmt, err := compile(SQLite,
		"SELECT * FROM records WHERE record_id = :id AND amount <= :max_amount AND team_id = :team_id AND transaction_date = :day",
		[]Binding{
			Input("id", TypeInteger, "42"),
			Input("max_amount", TypeDecimal, StringValue("99.5")),
			Input("team_id", TypeText, "10"),
			Input("day", TypeDate, "2024-03-01"),
		},
	)
	require.NoError(t, err)

	require.Len(t, stmt.args, 4)
	assert.Equal(t, int64(42), stmt.args[0])
	requireDecimalArg(t, "99.5", stmt.args[1])
	assert.Equal(t, "10", stmt.args[2])
	assert.Equal(t, "2024-03-01", stmt.args[3])
}

func TestCompileReturningInto(t *testing.T) {
	stmt, err := compile(Postgres,
		"INSERT INTO records (team_id, amount) VALUES (:team_id, :amount) RETURNING record_id, amount INTO :new_id, :stored_amount",
		[]Binding{
			Input("team_id", TypeText, "T1"),
			Input("amount", TypeDecimal, "5"),
			Output("new_id", TypeInteger),
			Output("stored_amount", TypeDecimal),
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO records (team_id, amount) VALUES ($1, $2) RETURNING record_id, amount", stmt.text)
	assert.True(t, stmt.returned)
	require.Len(t, stmt.outputs, 2)
	assert.Equal(t, "new_id", stmt.outputs[0].Name)
	assert.Equal(t, "stored_amount", stmt.outputs[1].Name)
}

func TestCompileSQLServerOutputParams(t *testing.T) {
	stmt, err := compile(SQLServer,
		"INSERT INTO records (team_id) VALUES (:team_id); SET :new_id = SCOPE_IDENTITY()",
		[]Binding{
			Input("team_id", TypeText, "T1"),
			Output("new_id", TypeInteger),
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO records (team_id) VALUES (@team_id); SET @new_id = SCOPE_IDENTITY()", stmt.text)
	require.Len(t, stmt.args, 2)
	assert.Equal(t, sql.Named("team_id", "T1"), stmt.args[0])

	out, ok := stmt.args[1].(sql.NamedArg)
	require.True(t, ok)
	assert.Equal(t, "new_id", out.Name)
	assert.IsType(t, sql.Out{}, out.Value)
	assert.Contains(t, stmt.slots, "new_id")
}

func TestCompileConstructionErrors(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		text     string
		bindings []Binding
	}{
		{
			name:    "empty text",
			dialect: Postgres,
			text:    "   ",
		},
		{
			name:    "placeholder without binding",
			dialect: Postgres,
			text:    "SELECT * FROM t WHERE a = :a",
		},
		{
			name:     "binding without placeholder",
			dialect:  Postgres,
			text:     "SELECT * FROM t WHERE a = :a",
			bindings: []Binding{Input("a", TypeText, "x"), Input("b", TypeText, "y")},
		},
		{
			name:     "duplicate placeholder",
			dialect:  Postgres,
			text:     "SELECT * FROM t WHERE a = :a OR b = :a",
			bindings: []Binding{Input("a", TypeText, "x")},
		},
		{
			name:     "duplicate binding",
			dialect:  Postgres,
			text:     "SELECT * FROM t WHERE a = :a",
			bindings: []Binding{Input("a", TypeText, "x"), Input(":a", TypeText, "y")},
		},
		{
			name:     "output without returning clause",
			dialect:  SQLite,
			text:     "INSERT INTO t (a) VALUES (:a)",
			bindings: []Binding{Input("a", TypeText, "x"), Output("id", TypeInteger)},
		},
		{
			name:     "input binding in INTO list",
			dialect:  Postgres,
			text:     "INSERT INTO t (a) VALUES (1) RETURNING id INTO :a",
			bindings: []Binding{Input("a", TypeText, "x")},
		},
		{
			name:     "output placeholder outside INTO list",
			dialect:  Postgres,
			text:     "UPDATE t SET a = :id RETURNING id INTO :id",
			bindings: []Binding{Output("id", TypeInteger)},
		},
		{
			name:     "decimal text that does not parse",
			dialect:  SQLite,
			text:     "SELECT * FROM t WHERE amount >= :min_amount",
			bindings: []Binding{Input("min_amount", TypeDecimal, "ten")},
		},
		{
			name:     "integer text that does not parse",
			dialect:  Postgres,
			text:     "SELECT * FROM t WHERE id = :id",
			bindings: []Binding{Input("id", TypeInteger, "1.5")},
		},
		{
			name:    "no dialect",
			dialect: Dialect{},
			text:    "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(tt.dialect, tt.text, tt.bindings)
			require.Error(t, err)

			var cErr *ConstructionError
			assert.ErrorAs(t, err, &cErr)
		})
	}
}

func TestCoerce(t *testing.T) {
	v := coerce(StringValue("42"), TypeInteger)
	n, ok := v.AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, KindInteger, v.Kind())

	assert.Equal(t, KindString, coerce(IntValue(3), TypeText).Kind())
	assert.Equal(t, KindDate, coerce(StringValue("2024-03-01"), TypeDate).Kind())
	assert.Equal(t, KindString, coerce(StringValue("soon"), TypeDate).Kind())
	assert.True(t, coerce(NullValue(), TypeText).IsNull())
}
