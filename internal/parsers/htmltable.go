package parsers

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
)

// transactionTableID is the table id emitted by the exports this parser
// targets. When absent, a structural heuristic takes over.
const transactionTableID = "transactions"

// minHeaderCells is the header-cell count that identifies a transaction
// table when no id is present.
const minHeaderCells = 3

// HTMLTableParser extracts transactions from statement pages that embed a
// table of rows. The payload may arrive base64-wrapped; that is decoded
// transparently. Row layout: date, description, amount, optional status.
type HTMLTableParser struct{}

func (p *HTMLTableParser) ParseFile(data []byte, opts Options) ([]Draft, error) {
	log := logger.Get()

	data = MaybeDecodeBase64(data)
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unparseable html payload")
	}

	table := findTableByID(doc, transactionTableID)
	if table == nil {
		table = findTableByHeaderCount(doc, minHeaderCells)
	}
	if table == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no transaction table found in html payload")
	}

	var drafts []Draft
	for rowIdx, row := range tableRows(table) {
		cells := rowCells(row)
		if len(cells) < 3 || isHeaderRow(row) {
			continue
		}

		execDate, err := normalize.ParseDate(cells[0], opts.DatePattern)
		if err != nil {
			log.Warnw("skipping html row with unparseable date", "row", rowIdx, "value", cells[0])
			continue
		}
		amount, err := normalize.ParseAmount(cells[2])
		if err != nil {
			log.Warnw("skipping html row with unparseable amount", "row", rowIdx, "value", cells[2])
			continue
		}

		txType := models.TransactionTypeExpense
		if amount.IsPositive() {
			txType = models.TransactionTypeIncome
		}
		status := models.TransactionStatusExecuted
		if len(cells) > 3 && strings.EqualFold(cells[3], "pending") {
			status = models.TransactionStatusPending
		}

		drafts = append(drafts, Draft{
			Description:   cells[1],
			Amount:        amount.Abs(),
			Type:          txType,
			ExecutionDate: execDate,
			Status:        status,
			Source:        opts.Source,
			BankAccountID: opts.BankAccountID,
			CreditCardID:  opts.CreditCardID,
		})
	}
	return drafts, nil
}

func findTableByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTableByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findTableByHeaderCount returns the first table whose header row has at
// least min cells.
func findTableByHeaderCount(n *html.Node, min int) *html.Node {
	if n.Type == html.ElementNode && n.Data == "table" {
		rows := tableRows(n)
		if len(rows) > 0 && len(rowCells(rows[0])) >= min {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTableByHeaderCount(c, min); found != nil {
			return found
		}
	}
	return nil
}

func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func rowCells(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}
	return cells
}

func isHeaderRow(row *html.Node) bool {
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "th" {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
