package parsers

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
)

// columnIndexes holds the detected positions of the canonical columns.
// amount is -1 when the layout uses separate debit/credit columns.
type columnIndexes struct {
	date        int
	description int
	amount      int
	debit       int
	credit      int
	status      int
	externalID  int
}

// Header synonyms across the historical export layouts we have seen.
var (
	dateHeaders       = []string{"date", "execution date", "operation date", "fecha", "data"}
	descHeaders       = []string{"description", "details", "concept", "concepto", "memo", "descrizione"}
	amountHeaders     = []string{"amount", "importe", "importo", "value"}
	debitHeaders      = []string{"debit", "withdrawal", "cargo", "out"}
	creditHeaders     = []string{"credit", "deposit", "abono", "in"}
	statusHeaders     = []string{"status", "state", "estado"}
	externalIDHeaders = []string{"reference", "transaction id", "external id", "ref"}
)

// SpreadsheetParser handles CSV exports. The header row may appear after
// preamble rows; columns are located by name, supporting both a single
// signed-amount layout and a split debit/credit layout.
type SpreadsheetParser struct{}

func (p *SpreadsheetParser) ParseFile(data []byte, opts Options) ([]Draft, error) {
	log := logger.Get()

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warnw("skipping unreadable csv record", "error", err)
			continue
		}
		records = append(records, rec)
	}

	headerIdx, cols := detectHeader(records)
	if headerIdx < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no recognizable header row found")
	}

	var drafts []Draft
	for i := headerIdx + 1; i < len(records); i++ {
		row := records[i]
		d, ok := p.parseRow(row, cols, opts, i)
		if !ok {
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (p *SpreadsheetParser) parseRow(row []string, cols columnIndexes, opts Options, rowIdx int) (Draft, bool) {
	log := logger.Get()

	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rawDate := cell(cols.date)
	rawDesc := cell(cols.description)
	if rawDate == "" && rawDesc == "" {
		return Draft{}, false
	}

	execDate, err := normalize.ParseDate(rawDate, opts.DatePattern)
	if err != nil {
		log.Warnw("skipping row with unparseable date", "row", rowIdx, "value", rawDate)
		return Draft{}, false
	}

	amount := decimal.Zero
	txType := models.TransactionTypeExpense
	switch {
	case cols.amount >= 0:
		a, err := normalize.ParseAmount(cell(cols.amount))
		if err != nil {
			log.Warnw("skipping row with unparseable amount", "row", rowIdx, "value", cell(cols.amount))
			return Draft{}, false
		}
		amount = a.Abs()
		if a.IsPositive() {
			txType = models.TransactionTypeIncome
		}
	default:
		debit := cell(cols.debit)
		credit := cell(cols.credit)
		switch {
		case credit != "" && credit != "0":
			a, err := normalize.ParseAmount(credit)
			if err != nil {
				log.Warnw("skipping row with unparseable credit", "row", rowIdx, "value", credit)
				return Draft{}, false
			}
			amount = a.Abs()
			txType = models.TransactionTypeIncome
		case debit != "":
			a, err := normalize.ParseAmount(debit)
			if err != nil {
				log.Warnw("skipping row with unparseable debit", "row", rowIdx, "value", debit)
				return Draft{}, false
			}
			amount = a.Abs()
		default:
			log.Warnw("skipping row with no amount", "row", rowIdx)
			return Draft{}, false
		}
	}

	status := models.TransactionStatusExecuted
	if strings.EqualFold(cell(cols.status), "pending") {
		status = models.TransactionStatusPending
	}

	var externalID *string
	if ref := cell(cols.externalID); ref != "" {
		externalID = &ref
	}

	return Draft{
		Description:   rawDesc,
		Amount:        amount,
		Type:          txType,
		ExecutionDate: execDate,
		Status:        status,
		Source:        opts.Source,
		ExternalID:    externalID,
		BankAccountID: opts.BankAccountID,
		CreditCardID:  opts.CreditCardID,
	}, true
}

// detectHeader scans rows for one containing at least a date column and
// either an amount column or a debit/credit pair.
func detectHeader(records [][]string) (int, columnIndexes) {
	for i, rec := range records {
		cols := columnIndexes{date: -1, description: -1, amount: -1, debit: -1, credit: -1, status: -1, externalID: -1}
		for j, raw := range rec {
			h := strings.ToLower(strings.TrimSpace(raw))
			switch {
			case cols.date < 0 && matchesHeader(h, dateHeaders):
				cols.date = j
			case cols.description < 0 && matchesHeader(h, descHeaders):
				cols.description = j
			case cols.debit < 0 && matchesHeader(h, debitHeaders):
				cols.debit = j
			case cols.credit < 0 && matchesHeader(h, creditHeaders):
				cols.credit = j
			case cols.amount < 0 && matchesHeader(h, amountHeaders):
				cols.amount = j
			case cols.status < 0 && matchesHeader(h, statusHeaders):
				cols.status = j
			case cols.externalID < 0 && matchesHeader(h, externalIDHeaders):
				cols.externalID = j
			}
		}
		if cols.date >= 0 && (cols.amount >= 0 || (cols.debit >= 0 && cols.credit >= 0)) {
			return i, cols
		}
	}
	return -1, columnIndexes{}
}

func matchesHeader(h string, candidates []string) bool {
	for _, c := range candidates {
		if h == c {
			return true
		}
	}
	return false
}
