package http

import (
	"pengo/internal/core"
	"pengo/internal/format"
	"pengo/internal/statement"
)

// Display structs passed to the templates. Everything is preformatted here so
// the templates stay free of logic beyond ranging.
type (
	// Row is one rendered table line.
	Row struct {
		Date        string
		Description string
		Amount      string
		Category    string
		Negative    bool // red/green coloring follows the sign, not the category
	}

	// Section is a month header followed by its rows; used in the "all" scope.
	Section struct {
		Header string
		Rows   []Row
	}

	// MonthOption is one entry of the month filter dropdown.
	MonthOption struct {
		Key      string
		Label    string
		Selected bool
	}

	// StatementView is the data for the filter + totals + table block.
	StatementView struct {
		Scope        string
		AllSelected  bool
		Months       []MonthOption
		TotalIncome  string
		TotalExpense string
		Sections     []Section // populated in "all" scope
		Rows         []Row     // populated in single-month scope
		Empty        bool
	}
)

// buildStatementView derives the full display model for a scope. The scope is
// resolved against the snapshot; an unknown month simply yields the empty
// placeholder, never an error.
func buildStatementView(st statement.Statement, scope string) StatementView {
	if scope == "" {
		scope = core.ScopeAll
	}
	shown := core.SelectScope(scope, st.Transactions, st.Grouped)
	totals := core.Totals(shown)

	view := StatementView{
		Scope:        scope,
		AllSelected:  scope == core.ScopeAll,
		TotalIncome:  format.Currency(totals.Income),
		TotalExpense: format.Currency(totals.Expense),
		Empty:        len(shown) == 0,
	}
	for _, key := range st.Grouped.Keys() {
		view.Months = append(view.Months, MonthOption{
			Key:      string(key),
			Label:    format.MonthLabel(key),
			Selected: scope == string(key),
		})
	}

	if view.AllSelected {
		for _, key := range st.Grouped.Keys() {
			view.Sections = append(view.Sections, Section{
				Header: format.MonthLabel(key),
				Rows:   buildRows(st.Grouped.Get(key)),
			})
		}
	} else {
		view.Rows = buildRows(shown)
	}
	return view
}

func buildRows(txs []core.Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, Row{
			Date:        format.DateLabel(tx),
			Description: tx.Description,
			Amount:      format.Currency(tx.Amount),
			Category:    tx.Category,
			Negative:    tx.Amount.Cents < 0,
		})
	}
	return rows
}
