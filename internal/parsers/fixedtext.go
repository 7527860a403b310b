package parsers

import (
	"bufio"
	"bytes"
	"strings"

	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
)

// FixedTextParser handles plain-text bank exports where every transaction
// occupies one line of semicolon-separated fields in a fixed order:
// date;description;amount[;status]. Lines that do not fit the pattern are
// skipped and logged, never fatal.
type FixedTextParser struct{}

func (p *FixedTextParser) ParseFile(data []byte, opts Options) ([]Draft, error) {
	log := logger.Get()
	var drafts []Draft

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ";")
		if len(fields) < 3 {
			log.Warnw("skipping malformed line", "line", lineNo, "fields", len(fields))
			continue
		}

		execDate, err := normalize.ParseDate(fields[0], opts.DatePattern)
		if err != nil {
			log.Warnw("skipping line with unparseable date", "line", lineNo, "value", fields[0])
			continue
		}
		amount, err := normalize.ParseAmount(fields[2])
		if err != nil {
			log.Warnw("skipping line with unparseable amount", "line", lineNo, "value", fields[2])
			continue
		}

		txType := models.TransactionTypeExpense
		if amount.IsPositive() {
			txType = models.TransactionTypeIncome
		}

		status := models.TransactionStatusExecuted
		if len(fields) > 3 && strings.EqualFold(strings.TrimSpace(fields[3]), "pending") {
			status = models.TransactionStatusPending
		}

		drafts = append(drafts, Draft{
			Description:   strings.TrimSpace(fields[1]),
			Amount:        amount.Abs(),
			Type:          txType,
			ExecutionDate: execDate,
			Status:        status,
			Source:        opts.Source,
			BankAccountID: opts.BankAccountID,
			CreditCardID:  opts.CreditCardID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return drafts, nil
}
