package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMessage is the settlement notification carried on the payments topic.
type PaymentMessage struct {
	IdentificationField string          `json:"identificationField"`
	Value               decimal.Decimal `json:"value"`
	DueDate             *MessageDate    `json:"dueDate"`
	BeneficiaryName     string          `json:"beneficiaryName"`
	ReceivedAt          *MessageDate    `json:"receivedAt,omitempty"`
}

// MessageDate accepts either an ISO-8601 calendar date or a full timestamp.
type MessageDate struct {
	time.Time
}

var messageDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (d *MessageDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := ParseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d MessageDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.UTC().Format(time.RFC3339))
}

// ParseDate parses the date layouts accepted on the wire and returns UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range messageDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// DecodePaymentMessage turns a raw queue payload into a PaymentMessage. Every
// failure is reported as a *DecodeError.
func DecodePaymentMessage(payload []byte) (PaymentMessage, error) {
	var msg PaymentMessage
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&msg); err != nil {
		return PaymentMessage{}, &DecodeError{Reason: "invalid json", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return PaymentMessage{}, &DecodeError{Reason: "trailing data after message"}
	}

	msg.IdentificationField = strings.TrimSpace(msg.IdentificationField)
	msg.BeneficiaryName = strings.TrimSpace(msg.BeneficiaryName)

	switch {
	case msg.IdentificationField == "":
		return PaymentMessage{}, &DecodeError{Reason: "missing identificationField"}
	case len(msg.IdentificationField) > MaxIdentificationFieldLen:
		return PaymentMessage{}, &DecodeError{Reason: "identificationField too long"}
	case msg.BeneficiaryName == "":
		return PaymentMessage{}, &DecodeError{Reason: "missing beneficiaryName"}
	case len([]rune(msg.BeneficiaryName)) > MaxBeneficiaryNameLen:
		return PaymentMessage{}, &DecodeError{Reason: "beneficiaryName too long"}
	case msg.Value.IsNegative():
		return PaymentMessage{}, &DecodeError{Reason: "negative value"}
	case !ValidAmount(msg.Value):
		return PaymentMessage{}, &DecodeError{Reason: "value out of range"}
	}

	msg.Value = msg.Value.Round(2)
	return msg, nil
}

// DueDateTime returns the due date as a plain pointer for storage.
func (m PaymentMessage) DueDateTime() *time.Time {
	if m.DueDate == nil || m.DueDate.IsZero() {
		return nil
	}
	t := m.DueDate.Time.UTC()
	return &t
}
