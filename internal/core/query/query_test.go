package query

import (
	"testing"

	"github.com/eventflux-io/engine/internal/core/event"
	"github.com/eventflux-io/engine/internal/core/executor"
	"github.com/eventflux-io/engine/internal/core/scheduler"
	"github.com/eventflux-io/engine/internal/core/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.NewMockClock(scheduler.SystemClock{}.Now()))
}

func TestCompileFilterAndProjectQuery(t *testing.T) {
	sql := `
		CREATE STREAM InStream (symbol STRING, price DOUBLE);
		CREATE STREAM OutStream (symbol STRING, price DOUBLE);
		INSERT INTO OutStream SELECT symbol, price FROM InStream WHERE price > 10;
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	outJ, err := rt.JunctionFor("OutStream")
	require.NoError(t, err)

	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	inJ, err := rt.JunctionFor("InStream")
	require.NoError(t, err)

	require.NoError(t, inJ.Publish(event.New(1, []event.AttributeValue{event.Str("AAPL"), event.Double(5)})))
	require.NoError(t, inJ.Publish(event.New(2, []event.AttributeValue{event.Str("MSFT"), event.Double(20)})))

	require.Len(t, received, 1)
	assert.Equal(t, "MSFT", received[0].Data[0].AsString())
	assert.Equal(t, 20.0, received[0].Data[1].AsDouble())
}

func TestCompileGroupByAggregateQuery(t *testing.T) {
	sql := `
		CREATE STREAM Trades (symbol STRING, qty INT);
		CREATE STREAM Totals (symbol STRING, total LONG);
		INSERT INTO Totals SELECT symbol, SUM(qty) FROM Trades WINDOW('length', 2) GROUP BY symbol;
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	outJ, err := rt.JunctionFor("Totals")
	require.NoError(t, err)
	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	inJ, err := rt.JunctionFor("Trades")
	require.NoError(t, err)
	require.NoError(t, inJ.Publish(event.New(1, []event.AttributeValue{event.Str("AAPL"), event.Int(3)})))
	require.NoError(t, inJ.Publish(event.New(2, []event.AttributeValue{event.Str("AAPL"), event.Int(4)})))

	require.NotEmpty(t, received)
	last := received[len(received)-1]
	assert.Equal(t, "AAPL", last.Data[0].AsString())
	assert.EqualValues(t, 7, last.Data[1].AsLong())
}

func TestCompileRejectsUndeclaredRelation(t *testing.T) {
	sql := `INSERT INTO Out SELECT x FROM Missing;`
	_, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.Error(t, err)
}

func TestCompileRejectsCircularDependency(t *testing.T) {
	sql := `
		CREATE STREAM A (x INT);
		CREATE STREAM B (x INT);
		INSERT INTO B SELECT x FROM A;
		INSERT INTO A SELECT x FROM B;
	`
	_, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.Error(t, err)
}

func TestCompileStreamTableJoinQuery(t *testing.T) {
	sql := `
		CREATE STREAM Orders (userId INT, item STRING);
		CREATE TABLE Users (id INT, name STRING);
		CREATE STREAM Enriched (name STRING, item STRING);
		INSERT INTO Enriched SELECT Users.name, Orders.item FROM Orders JOIN Users ON Orders.userId = Users.id;
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	usersTable, _, err := rt.TableFor("Users")
	require.NoError(t, err)
	require.NoError(t, usersTable.Insert(table.Row{event.Int(1), event.Str("alice")}))

	outJ, err := rt.JunctionFor("Enriched")
	require.NoError(t, err)
	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	ordersJ, err := rt.JunctionFor("Orders")
	require.NoError(t, err)
	require.NoError(t, ordersJ.Publish(event.New(1, []event.AttributeValue{event.Int(1), event.Str("widget")})))

	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].Data[0].AsString())
	assert.Equal(t, "widget", received[0].Data[1].AsString())
}

func TestCompileStreamStreamJoinQuery(t *testing.T) {
	sql := `
		CREATE STREAM Quotes (symbol STRING, price DOUBLE);
		CREATE STREAM Trades (symbol STRING, qty INT);
		CREATE STREAM Matched (symbol STRING, price DOUBLE, qty INT);
		INSERT INTO Matched SELECT Quotes.symbol, Quotes.price, Trades.qty FROM Quotes JOIN Trades ON Quotes.symbol = Trades.symbol WINDOW('length', 5);
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	outJ, err := rt.JunctionFor("Matched")
	require.NoError(t, err)
	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	quotesJ, err := rt.JunctionFor("Quotes")
	require.NoError(t, err)
	tradesJ, err := rt.JunctionFor("Trades")
	require.NoError(t, err)

	require.NoError(t, quotesJ.Publish(event.New(1, []event.AttributeValue{event.Str("AAPL"), event.Double(150)})))
	require.NoError(t, tradesJ.Publish(event.New(2, []event.AttributeValue{event.Str("AAPL"), event.Int(10)})))

	require.NotEmpty(t, received)
	last := received[len(received)-1]
	assert.Equal(t, "AAPL", last.Data[0].AsString())
}

func TestCompilePartitionedQuery(t *testing.T) {
	sql := `
		CREATE STREAM Trades (symbol STRING, qty INT);
		CREATE STREAM Totals (symbol STRING, total LONG);
		CREATE PARTITION BY symbol {
			INSERT INTO Totals SELECT symbol, SUM(qty) FROM Trades WINDOW('length', 2) GROUP BY symbol;
		}
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	outJ, err := rt.JunctionFor("Totals")
	require.NoError(t, err)
	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	inJ, err := rt.JunctionFor("Trades")
	require.NoError(t, err)
	require.NoError(t, inJ.Publish(event.New(1, []event.AttributeValue{event.Str("AAPL"), event.Int(3)})))
	require.NoError(t, inJ.Publish(event.New(2, []event.AttributeValue{event.Str("MSFT"), event.Int(100)})))
	require.NoError(t, inJ.Publish(event.New(3, []event.AttributeValue{event.Str("AAPL"), event.Int(4)})))

	require.NotEmpty(t, received)
	var aaplTotal, msftTotal int64
	for _, e := range received {
		switch e.Data[0].AsString() {
		case "AAPL":
			aaplTotal = e.Data[1].AsLong()
		case "MSFT":
			msftTotal = e.Data[1].AsLong()
		}
	}
	assert.EqualValues(t, 7, aaplTotal)
	assert.EqualValues(t, 100, msftTotal)
}

func TestCompileInsertIntoTablePopulatesRowsDirectly(t *testing.T) {
	sql := `
		CREATE STREAM Users (id INT, name STRING);
		CREATE TABLE UserTable (id INT, name STRING);
		INSERT INTO UserTable SELECT id, name FROM Users;
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	usersJ, err := rt.JunctionFor("Users")
	require.NoError(t, err)
	require.NoError(t, usersJ.Publish(event.New(1, []event.AttributeValue{event.Int(1), event.Str("ada")})))

	tbl, _, err := rt.TableFor("UserTable")
	require.NoError(t, err)
	row, found, err := tbl.Find(table.EqualityCondition{Values: map[int]event.AttributeValue{0: event.Int(1)}})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ada", row[1].AsString())
}

func TestCompilePatternQuery(t *testing.T) {
	sql := `
		CREATE STREAM Login (user STRING);
		CREATE STREAM Purchase (user STRING, amount DOUBLE);
		CREATE STREAM Funnel (loginUser STRING, amount DOUBLE);
		INSERT INTO Funnel SELECT e1.user, e2.amount FROM PATTERN (e1=Login -> e2=Purchase);
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	outJ, err := rt.JunctionFor("Funnel")
	require.NoError(t, err)
	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	loginJ, err := rt.JunctionFor("Login")
	require.NoError(t, err)
	purchaseJ, err := rt.JunctionFor("Purchase")
	require.NoError(t, err)

	require.NoError(t, loginJ.Publish(event.New(1, []event.AttributeValue{event.Str("bob")})))
	require.NoError(t, purchaseJ.Publish(event.New(2, []event.AttributeValue{event.Str("bob"), event.Double(42.5)})))

	require.Len(t, received, 1)
	assert.Equal(t, "bob", received[0].Data[0].AsString())
	assert.Equal(t, 42.5, received[0].Data[1].AsDouble())
}

// TestCompilePatternQueryWithCollectionAggregate exercises
// SPEC_FULL.md §C.7's `sum(e1[0:].amount)` slice-aggregate SELECT-list form:
// a count-quantified step's whole chain (two or three Lock events) is
// summed once the pattern completes, rather than projecting a single
// indexed event.
func TestCompilePatternQueryWithCollectionAggregate(t *testing.T) {
	sql := `
		CREATE STREAM Lock (user STRING, amount DOUBLE);
		CREATE STREAM Alert (user STRING);
		CREATE STREAM Totals (user STRING, total DOUBLE, hits LONG);
		INSERT INTO Totals SELECT e1[0].user, sum(e1[0:].amount), count(e1[0:].amount) FROM PATTERN (e1=Lock{2,3} -> e2=Alert);
	`
	rt, err := Compile(sql, executor.NewFunctionRegistry(), newTestScheduler())
	require.NoError(t, err)

	outJ, err := rt.JunctionFor("Totals")
	require.NoError(t, err)
	var received []*event.Event
	outJ.Subscribe(probe(func(e *event.Event) { received = append(received, e) }))

	lockJ, err := rt.JunctionFor("Lock")
	require.NoError(t, err)
	alertJ, err := rt.JunctionFor("Alert")
	require.NoError(t, err)

	require.NoError(t, lockJ.Publish(event.New(1, []event.AttributeValue{event.Str("alice"), event.Double(10)})))
	require.NoError(t, lockJ.Publish(event.New(2, []event.AttributeValue{event.Str("alice"), event.Double(15)})))
	require.NoError(t, alertJ.Publish(event.New(3, []event.AttributeValue{event.Str("alice")})))

	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].Data[0].AsString())
	assert.Equal(t, 25.0, received[0].Data[1].AsDouble())
	assert.Equal(t, int64(2), received[0].Data[2].AsLong())
}

// probe adapts a plain func(*event.Event) into a junction.Subscriber by way
// of a CallbackProcessor wrapping a tiny conversion — tests observe a
// target stream's output the same way a real sink mapper would.
func probe(fn func(*event.Event)) *probeProcessor {
	return &probeProcessor{fn: fn}
}

type probeProcessor struct {
	fn func(*event.Event)
}

func (p *probeProcessor) Process(chunk *event.StreamEvent) {
	for cur := chunk; cur != nil; cur = cur.Next {
		p.fn(event.New(cur.Timestamp, cur.BeforeWindowData))
	}
}
