package core

import "sort"

// Grouped maps month keys to the transactions of that month, remembering the
// order in which keys were first seen. It is rebuilt wholesale whenever the
// statement changes and never mutated in place.
type Grouped struct {
	keys   []MonthKey
	groups map[MonthKey][]Transaction
}

// GroupByMonth partitions transactions by calendar month. Key order is
// first-seen order while scanning the input; within a group the relative
// order of the input is preserved. Every transaction lands in exactly one
// group, so the groups are a total partition of the input.
func GroupByMonth(txs []Transaction) Grouped {
	g := Grouped{groups: make(map[MonthKey][]Transaction, 12)}
	for _, tx := range txs {
		key := tx.Key()
		if _, ok := g.groups[key]; !ok {
			g.keys = append(g.keys, key)
		}
		g.groups[key] = append(g.groups[key], tx)
	}
	return g
}

// Keys returns the month keys in first-seen order.
func (g Grouped) Keys() []MonthKey {
	return g.keys
}

// Get returns the transactions of a month. A missing key yields a nil slice,
// never an error.
func (g Grouped) Get(key MonthKey) []Transaction {
	return g.groups[key]
}

// Len returns the number of distinct months.
func (g Grouped) Len() int {
	return len(g.keys)
}

// SelectScope resolves a scope to the transactions it covers: ScopeAll
// returns the full slice unchanged, anything else the matching group (empty
// when absent).
func SelectScope(scope string, all []Transaction, grouped Grouped) []Transaction {
	if scope == ScopeAll {
		return all
	}
	return grouped.Get(MonthKey(scope))
}

// TotalSummary carries the income and expense totals of a scope. Income holds
// the sum of strictly positive amounts, Expense the sum of non-positive ones,
// kept non-positive so that Income.Cents + Expense.Cents is the net of the
// scope.
type TotalSummary struct {
	Income  Money
	Expense Money
}

// Totals folds the signed amounts of a scope into income and expense sums.
func Totals(txs []Transaction) TotalSummary {
	var t TotalSummary
	for _, tx := range txs {
		if tx.Amount.IsExpense() {
			t.Expense.Cents += tx.Amount.Cents
		} else {
			t.Income.Cents += tx.Amount.Cents
		}
	}
	return t
}

// SortByDateDesc sorts a statement newest-first in place. The sort is stable
// so equal dates keep the backend's order; zero dates sink to the end.
func SortByDateDesc(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
}
