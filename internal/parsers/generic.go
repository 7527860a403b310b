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

// Canonical field names accepted in a column mapping.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
	FieldStatus      = "status"
	FieldExternalID  = "external_id"
	FieldMerchant    = "merchant"
	FieldCategory    = "category"
	FieldTags        = "tags"
)

// GenericParser handles delimited files with arbitrary header names, driven
// by a user-supplied mapping of header name to canonical field. It is not
// in the registry; the orchestrator constructs it when no format tag is
// declared.
type GenericParser struct {
	mapping map[string]string
}

// NewGenericParser validates the mapping covers the mandatory fields:
// date, description and either amount or a debit/credit pair.
func NewGenericParser(mapping map[string]string) (*GenericParser, error) {
	fields := make(map[string]bool, len(mapping))
	for _, field := range mapping {
		fields[strings.ToLower(field)] = true
	}
	if !fields[FieldDate] {
		return nil, apperrors.WithMessage(apperrors.ErrMissingColumnMapping, "column mapping must include a date column")
	}
	if !fields[FieldDescription] {
		return nil, apperrors.WithMessage(apperrors.ErrMissingColumnMapping, "column mapping must include a description column")
	}
	if !fields[FieldAmount] && !(fields[FieldDebit] && fields[FieldCredit]) {
		return nil, apperrors.WithMessage(apperrors.ErrMissingColumnMapping, "column mapping must include an amount column or a debit/credit pair")
	}
	return &GenericParser{mapping: mapping}, nil
}

func (p *GenericParser) ParseFile(data []byte, opts Options) ([]Draft, error) {
	log := logger.Get()

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payload has no header row")
	}

	// Resolve mapped header names to column positions.
	positions := make(map[string]int)
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		for mappedHeader, field := range p.mapping {
			if strings.ToLower(mappedHeader) == name {
				positions[strings.ToLower(field)] = i
			}
		}
	}
	if _, ok := positions[FieldDate]; !ok {
		return nil, apperrors.WithMessage(apperrors.ErrMissingColumnMapping, "mapped date column not found in header")
	}

	cell := func(row []string, field string) string {
		idx, ok := positions[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var drafts []Draft
	rowIdx := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowIdx++
		if err != nil {
			log.Warnw("skipping unreadable row", "row", rowIdx, "error", err)
			continue
		}

		execDate, err := normalize.ParseDate(cell(row, FieldDate), opts.DatePattern)
		if err != nil {
			log.Warnw("skipping row with unparseable date", "row", rowIdx, "value", cell(row, FieldDate))
			continue
		}

		amount, txType, ok := resolveAmount(row, cell, rowIdx)
		if !ok {
			continue
		}

		status := models.TransactionStatusExecuted
		if strings.EqualFold(cell(row, FieldStatus), "pending") {
			status = models.TransactionStatusPending
		}

		var externalID *string
		if ref := cell(row, FieldExternalID); ref != "" {
			externalID = &ref
		}

		var tagHints []string
		if rawTags := cell(row, FieldTags); rawTags != "" {
			for _, tag := range strings.Split(rawTags, "|") {
				if t := strings.TrimSpace(tag); t != "" {
					tagHints = append(tagHints, t)
				}
			}
		}

		drafts = append(drafts, Draft{
			Description:   cell(row, FieldDescription),
			Amount:        amount,
			Type:          txType,
			ExecutionDate: execDate,
			Status:        status,
			Source:        opts.Source,
			ExternalID:    externalID,
			MerchantName:  cell(row, FieldMerchant),
			CategoryHint:  cell(row, FieldCategory),
			TagHints:      tagHints,
			BankAccountID: opts.BankAccountID,
			CreditCardID:  opts.CreditCardID,
		})
	}
	return drafts, nil
}

func resolveAmount(row []string, cell func([]string, string) string, rowIdx int) (amount decimal.Decimal, txType models.TransactionType, ok bool) {
	log := logger.Get()
	txType = models.TransactionTypeExpense

	if raw := cell(row, FieldAmount); raw != "" {
		a, err := normalize.ParseAmount(raw)
		if err != nil {
			log.Warnw("skipping row with unparseable amount", "row", rowIdx, "value", raw)
			return amount, txType, false
		}
		if a.IsPositive() {
			txType = models.TransactionTypeIncome
		}
		return a.Abs(), txType, true
	}

	if credit := cell(row, FieldCredit); credit != "" && credit != "0" {
		a, err := normalize.ParseAmount(credit)
		if err != nil {
			log.Warnw("skipping row with unparseable credit", "row", rowIdx, "value", credit)
			return amount, txType, false
		}
		return a.Abs(), models.TransactionTypeIncome, true
	}
	if debit := cell(row, FieldDebit); debit != "" {
		a, err := normalize.ParseAmount(debit)
		if err != nil {
			log.Warnw("skipping row with unparseable debit", "row", rowIdx, "value", debit)
			return amount, txType, false
		}
		return a.Abs(), models.TransactionTypeExpense, true
	}

	log.Warnw("skipping row with no amount", "row", rowIdx)
	return amount, txType, false
}
