package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"flowfinance/internal/core"
	"flowfinance/internal/dashboard"
)

const barWidth = 30

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
)

// column describes one table column; numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

// renderTable lays rows out in aligned columns under a header line.
func renderTable(cols []column, rows [][]string) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = lipgloss.Width(c.title)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style func(int) lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			s := style(i).Width(widths[i])
			if cols[i].numeric {
				s = s.Align(lipgloss.Right)
			}
			parts[i] = s.Render(cell)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}

	var b strings.Builder
	b.WriteString(line(titles, func(int) lipgloss.Style { return headerStyle }))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(line(row, func(int) lipgloss.Style { return lipgloss.NewStyle() }))
	}
	return b.String()
}

func idText(v core.ID) string {
	return strconv.FormatInt(int64(v), 10)
}

func renderUser(u core.User) string {
	status := "active"
	if !u.IsActive {
		status = "inactive"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(u.Username),
		fmt.Sprintf("%s  %s", u.Email, mutedStyle.Render("#"+idText(u.ID)+" "+status)),
	)
}

func renderAccounts(accounts []core.Account) string {
	rows := make([][]string, len(accounts))
	for i, acc := range accounts {
		rows[i] = []string{idText(acc.ID), acc.Name, acc.InitialBalance.String()}
	}
	return renderTable([]column{{title: "ID", numeric: true}, {title: "Name"}, {title: "Initial balance", numeric: true}}, rows)
}

func renderCategories(categories []core.Category) string {
	rows := make([][]string, len(categories))
	for i, cat := range categories {
		rows[i] = []string{idText(cat.ID), cat.Name}
	}
	return renderTable([]column{{title: "ID", numeric: true}, {title: "Name"}}, rows)
}

func renderTransactions(txs []core.Transaction, accounts []core.Account, categories []core.Category) string {
	rows := make([][]string, len(txs))
	for i, tx := range txs {
		amount := tx.Amount.String()
		if tx.Type == core.Expense {
			amount = "-" + amount
		}
		rows[i] = []string{
			idText(tx.ID),
			tx.Date.String(),
			string(tx.Type),
			amount,
			tx.Description,
			tx.Source,
			dashboard.AccountLabel(accounts, tx.AccountID),
			dashboard.CategoryLabel(categories, tx.CategoryID),
		}
	}
	return renderTable([]column{
		{title: "ID", numeric: true},
		{title: "Date"},
		{title: "Type"},
		{title: "Amount", numeric: true},
		{title: "Description"},
		{title: "Source"},
		{title: "Account"},
		{title: "Category"},
	}, rows)
}

func renderDashboard(s core.Summary) string {
	card := func(label, value string, style lipgloss.Style) string {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			mutedStyle.Render(label),
			style.Render(value),
		))
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Initial balance", s.InitialBalance.String(), lipgloss.NewStyle()),
		card("Income", s.Income.String(), incomeStyle),
		card("Expenses", s.Expenses.String(), expenseStyle),
		card("Balance", s.Balance.String(), lipgloss.NewStyle().Bold(true)),
		card("Accounts", strconv.Itoa(s.AccountCount), lipgloss.NewStyle()),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		cards,
		"",
		titleStyle.Render(fmt.Sprintf("Last %d days", len(s.Daily))),
		renderDaily(s.Daily),
		"",
		titleStyle.Render("By category"),
		renderBreakdown(s.ByCategory),
		"",
		titleStyle.Render("Recent transactions"),
		renderRecent(s.Recent),
	)
}

// renderRecent lists transactions as signed amounts with their labels.
func renderRecent(txs []core.LabeledTransaction) string {
	if len(txs) == 0 {
		return mutedStyle.Render("No transactions yet.")
	}
	lines := make([]string, len(txs))
	for i, tx := range txs {
		amount := incomeStyle.Render("+" + tx.Amount.String())
		if tx.Type == core.Expense {
			amount = expenseStyle.Render("-" + tx.Amount.String())
		}
		var text string
		switch {
		case tx.Description != "" && tx.Source != "":
			text = tx.Description + " (" + tx.Source + ")"
		case tx.Description != "":
			text = tx.Description
		case tx.Source != "":
			text = tx.Source
		default:
			text = string(tx.Type)
		}
		lines[i] = fmt.Sprintf("%s  %s  %s  %s",
			tx.Date.String(), amount, text,
			mutedStyle.Render(tx.Account+" / "+tx.Category))
	}
	return strings.Join(lines, "\n")
}

// renderDaily draws one income and one expense bar per day, scaled to the
// largest value in the window.
func renderDaily(days []core.DailyBucket) string {
	if len(days) == 0 {
		return mutedStyle.Render("No days to show.")
	}
	peak := decimal.Zero
	for _, d := range days {
		peak = decimal.Max(peak, d.Income.Decimal, d.Expenses.Decimal)
	}

	lines := make([]string, 0, len(days))
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("%s  %s %s",
			d.Date.String(),
			incomeStyle.Render(bar(d.Income, peak)),
			expenseStyle.Render(bar(d.Expenses, peak)),
		))
	}
	return strings.Join(lines, "\n")
}

func bar(v core.Amount, peak decimal.Decimal) string {
	n := 0
	if peak.IsPositive() {
		n = int(v.Decimal.Mul(decimal.NewFromInt(barWidth)).Div(peak).Ceil().IntPart())
	}
	return fmt.Sprintf("%-*s", barWidth, strings.Repeat("█", n)) + " " + v.String()
}

func renderBreakdown(items []core.CategoryAmount) string {
	if len(items) == 0 {
		return mutedStyle.Render("No categories.")
	}
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = []string{item.Name, item.Amount.String()}
	}
	return renderTable([]column{{title: "Category"}, {title: "Total", numeric: true}}, rows)
}
