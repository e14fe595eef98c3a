package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodePaymentMessage(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantReason string
	}{
		{name: "valid", payload: `{"identificationField":" ID-1 ","value":89.899,"dueDate":"2025-10-15","beneficiaryName":" COPASA MG "}`},
		{name: "string value", payload: `{"identificationField":"ID-1","value":"45.30","beneficiaryName":"SABESP"}`},
		{name: "not json", payload: `not-json`, wantReason: "invalid json"},
		{name: "bad date", payload: `{"identificationField":"ID-1","value":1,"dueDate":"15/10/2025","beneficiaryName":"X"}`, wantReason: "invalid json"},
		{name: "missing id", payload: `{"value":1,"beneficiaryName":"X"}`, wantReason: "missing identificationField"},
		{name: "blank beneficiary", payload: `{"identificationField":"ID-1","value":1,"beneficiaryName":"   "}`, wantReason: "missing beneficiaryName"},
		{name: "negative value", payload: `{"identificationField":"ID-1","value":-0.01,"beneficiaryName":"X"}`, wantReason: "negative value"},
		{name: "trailing whitespace", payload: "{\"identificationField\":\"ID-1\",\"value\":1,\"beneficiaryName\":\"X\"}\n"},
		{name: "largest storable value", payload: `{"identificationField":"ID-1","value":9999999999999999.99,"beneficiaryName":"X"}`},
		{name: "trailing garbage", payload: `{"identificationField":"ID-1","value":1,"beneficiaryName":"X"} trailing-garbage`, wantReason: "trailing data after message"},
		{name: "second object", payload: `{"identificationField":"ID-1","value":1,"beneficiaryName":"X"}{}`, wantReason: "trailing data after message"},
		{name: "value too large", payload: `{"identificationField":"ID-1","value":1e20,"beneficiaryName":"X"}`, wantReason: "value out of range"},
		{name: "value rounds past bound", payload: `{"identificationField":"ID-1","value":9999999999999999.999,"beneficiaryName":"X"}`, wantReason: "value out of range"},
		{name: "long id", payload: `{"identificationField":"` + strings.Repeat("9", 101) + `","value":1,"beneficiaryName":"X"}`, wantReason: "identificationField too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodePaymentMessage([]byte(tt.payload))
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if strings.TrimSpace(msg.IdentificationField) != msg.IdentificationField {
					t.Errorf("Identification field not trimmed: %q", msg.IdentificationField)
				}
				return
			}

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Expected DecodeError, got %v", err)
			}
			if de.Reason != tt.wantReason {
				t.Errorf("Expected reason %q, got %q", tt.wantReason, de.Reason)
			}
		})
	}
}

func TestDecodePaymentMessage_Normalizes(t *testing.T) {
	msg, err := DecodePaymentMessage([]byte(`{"identificationField":"ID-1","value":89.899,"dueDate":"2025-10-15","beneficiaryName":" COPASA MG "}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if msg.BeneficiaryName != "COPASA MG" {
		t.Errorf("Expected trimmed beneficiary, got %q", msg.BeneficiaryName)
	}
	if msg.Value.StringFixed(2) != "89.90" {
		t.Errorf("Expected value rounded to 89.90, got %s", msg.Value.String())
	}

	due := msg.DueDateTime()
	if due == nil || !due.Equal(time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected due date: %v", due)
	}
	if msg.ReceivedAt != nil {
		t.Errorf("Expected no receivedAt, got %v", msg.ReceivedAt)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 10, 15, 13, 30, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2025-10-15T13:30:00Z", want: want},
		{raw: "2025-10-15T10:30:00-03:00", want: want},
		{raw: "2025-10-15T13:30:00", want: want},
		{raw: " 2025-10-15 ", want: time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.raw)
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if !got.Equal(tt.want) || got.Location() != time.UTC {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("Expected error for unrecognised date")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("SÃO PAULO", 3); got != "SÃO" {
		t.Errorf("Truncate counted bytes instead of runes: %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate changed a short string: %q", got)
	}
}
