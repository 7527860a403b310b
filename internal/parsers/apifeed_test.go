package parsers

import (
	"testing"

	"finlink/internal/models"
)

func TestAPIFeedParser(t *testing.T) {
	payload := []byte(`{"transactions": [
		{"id": "tx-100", "amount": "-19.99", "bookingDate": "2024-03-15", "status": "booked",
		 "counterpartyName": "ACME Online Store", "merchantName": "ACME", "merchantCategoryCode": "5999"},
		{"id": "tx-101", "amount": "-7.50", "bookingDate": "2024-03-16", "status": "pending",
		 "remittanceInformation": "Monthly gym membership March"},
		{"id": "tx-102", "amount": "-3.00", "bookingDate": "2024-03-17",
		 "remittanceInformation": "TRF-0231", "endToEndId": "E2E-998877"},
		{"id": "tx-103", "amount": "100.00", "bookingDate": "2024-03-18",
		 "remittanceInformation": "not provided", "endToEndId": "NOTPROVIDED"}
	]}`)

	p := &APIFeedParser{}
	drafts, err := p.ParseFile(payload, Options{Source: "provider_feed"})
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(drafts) != 4 {
		t.Fatalf("expected 4 drafts, got %d", len(drafts))
	}

	// Counterparty name wins.
	if drafts[0].Description != "ACME Online Store" {
		t.Errorf("expected counterparty name, got %q", drafts[0].Description)
	}
	if drafts[0].MerchantName != "ACME" || drafts[0].MerchantCode != "5999" {
		t.Errorf("merchant fields not mapped: %q %q", drafts[0].MerchantName, drafts[0].MerchantCode)
	}
	if drafts[0].ExternalID == nil || *drafts[0].ExternalID != "tx-100" {
		t.Error("expected external id tx-100")
	}

	// Meaningful remittance text used when no counterparty.
	if drafts[1].Description != "Monthly gym membership March" {
		t.Errorf("expected remittance text, got %q", drafts[1].Description)
	}
	if drafts[1].Status != models.TransactionStatusPending {
		t.Errorf("expected pending, got %s", drafts[1].Status)
	}

	// Short bank code rejected, end-to-end id wins.
	if drafts[2].Description != "E2E-998877" {
		t.Errorf("expected end-to-end id, got %q", drafts[2].Description)
	}

	// Everything useless falls back to the generic label.
	if drafts[3].Description != genericLabel {
		t.Errorf("expected generic label, got %q", drafts[3].Description)
	}
	if drafts[3].Type != models.TransactionTypeIncome {
		t.Errorf("positive amount should be income, got %s", drafts[3].Type)
	}
}

func TestAPIFeedParserBareArray(t *testing.T) {
	payload := []byte(`[{"id": "tx-1", "amount": "-1.00", "bookingDate": "2024-01-02", "counterpartyName": "Kiosk"}]`)
	p := &APIFeedParser{}
	drafts, err := p.ParseFile(payload, Options{Source: "provider_feed"})
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Description != "Kiosk" {
		t.Fatalf("unexpected drafts: %+v", drafts)
	}
}

func TestAPIFeedParserInvalidPayload(t *testing.T) {
	p := &APIFeedParser{}
	if _, err := p.ParseFile([]byte("not json"), Options{}); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestIsMeaningfulRemittance(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Monthly gym membership", true},
		{"TRF", false},
		{"POS-0231", false},
		{"short", false},
		{"not provided", false},
		{"Invoice 2024-0042 consulting services", true},
	}
	for _, tt := range tests {
		if got := isMeaningfulRemittance(tt.in); got != tt.want {
			t.Errorf("isMeaningfulRemittance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
