package parsers

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "finlink/internal/errors"
	"finlink/internal/logger"
	"finlink/internal/models"
	"finlink/internal/normalize"
)

// feedEnvelope is the provider API response shape.
type feedEnvelope struct {
	Transactions []feedTransaction `json:"transactions"`
}

type feedTransaction struct {
	ID                  string `json:"id"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
	BookingDate         string `json:"bookingDate"`
	Status              string `json:"status"`
	CounterpartyName    string `json:"counterpartyName"`
	RemittanceInfo      string `json:"remittanceInformation"`
	EndToEndID          string `json:"endToEndId"`
	MerchantName        string `json:"merchantName"`
	MerchantCategoryCode string `json:"merchantCategoryCode"`
}

// genericLabel is the last-resort description when a feed record carries
// no usable text at all.
const genericLabel = "Card transaction"

// shortBankCodePattern matches terse bank reference codes like "TRF",
// "POS-0231" or "SEPA" that carry no information for a human.
var shortBankCodePattern = regexp.MustCompile(`^[A-Z]{2,6}([ \-/]?\d+)?$`)

// boilerplatePhrases are remittance strings banks stuff in when the real
// payment had no reference.
var boilerplatePhrases = []string{
	"not provided",
	"no reference",
	"nicht angegeben",
	"non fornito",
	"payment",
	"transaction",
}

// APIFeedParser maps a provider's JSON transaction feed into drafts. The
// feed's remittance text is frequently useless, so the description is
// built by precedence: counterparty name, then remittance text if it looks
// meaningful, then the end-to-end id, then a generic label.
type APIFeedParser struct{}

func (p *APIFeedParser) ParseFile(data []byte, opts Options) ([]Draft, error) {
	log := logger.Get()

	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		// Some providers return a bare array.
		if err2 := json.Unmarshal(data, &envelope.Transactions); err2 != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unparseable api feed payload")
		}
	}

	var drafts []Draft
	for i, ft := range envelope.Transactions {
		amount, err := normalize.ParseAmount(ft.Amount)
		if err != nil {
			log.Warnw("skipping feed record with unparseable amount", "record", i, "value", ft.Amount)
			continue
		}
		execDate, err := normalize.ParseDate(ft.BookingDate, opts.DatePattern)
		if err != nil {
			log.Warnw("skipping feed record with unparseable date", "record", i, "value", ft.BookingDate)
			continue
		}

		txType := models.TransactionTypeExpense
		if amount.IsPositive() {
			txType = models.TransactionTypeIncome
		}

		status := models.TransactionStatusExecuted
		if strings.EqualFold(ft.Status, "pending") {
			status = models.TransactionStatusPending
		}

		var externalID *string
		if ft.ID != "" {
			id := ft.ID
			externalID = &id
		}

		drafts = append(drafts, Draft{
			Description:   enhancedDescription(ft),
			Amount:        amount.Abs(),
			Type:          txType,
			ExecutionDate: execDate,
			Status:        status,
			Source:        opts.Source,
			ExternalID:    externalID,
			MerchantName:  ft.MerchantName,
			MerchantCode:  ft.MerchantCategoryCode,
			BankAccountID: opts.BankAccountID,
			CreditCardID:  opts.CreditCardID,
		})
	}
	return drafts, nil
}

// enhancedDescription picks the most human-useful text a feed record offers.
func enhancedDescription(ft feedTransaction) string {
	if name := strings.TrimSpace(ft.CounterpartyName); name != "" {
		return name
	}
	if remit := strings.TrimSpace(ft.RemittanceInfo); isMeaningfulRemittance(remit) {
		return remit
	}
	if e2e := strings.TrimSpace(ft.EndToEndID); e2e != "" && !strings.EqualFold(e2e, "notprovided") {
		return e2e
	}
	return genericLabel
}

// isMeaningfulRemittance rejects remittance text too short or too generic
// to identify the payment.
func isMeaningfulRemittance(s string) bool {
	if len(s) <= 10 {
		return false
	}
	if shortBankCodePattern.MatchString(s) {
		return false
	}
	lower := strings.ToLower(s)
	for _, phrase := range boilerplatePhrases {
		if lower == phrase {
			return false
		}
	}
	return true
}
