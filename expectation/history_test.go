package expectation

import (
	"context"
	"errors"
	"testing"

	"expectation-svc/models"

	"go.uber.org/zap/zaptest"
)

func TestHistoryProvider_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: DefaultHistoryLimit},
		{name: "negative", limit: -3, want: DefaultHistoryLimit},
		{name: "explicit", limit: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeHistory{}
			provider := NewHistoryProvider(source, tt.limit, zaptest.NewLogger(t))

			if _, err := provider.Fetch(context.Background(), "CEMIG"); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if source.gotLimit != tt.want {
				t.Errorf("Expected limit %d, got %d", tt.want, source.gotLimit)
			}
			if source.gotName != "CEMIG" {
				t.Errorf("Expected canonical name CEMIG, got %q", source.gotName)
			}
		})
	}
}

func TestHistoryProvider_PassesThroughOrderAndErrors(t *testing.T) {
	source := &fakeHistory{payments: []models.Payment{
		{IdentificationField: "newest"},
		{IdentificationField: "older"},
	}}
	provider := NewHistoryProvider(source, 20, zaptest.NewLogger(t))

	history, err := provider.Fetch(context.Background(), "CEMIG")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].IdentificationField != "newest" {
		t.Errorf("Expected store order to be kept, got %+v", history)
	}

	source.err = models.ErrStore
	if _, err := provider.Fetch(context.Background(), "CEMIG"); !errors.Is(err, models.ErrStore) {
		t.Errorf("Expected ErrStore, got %v", err)
	}
}
