package core_test

import (
	"testing"

	"procurement-flow/internal/core"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    core.POStatus
		wantErr bool
	}{
		{"draft", core.StatusDraft, false},
		{"Issued", core.StatusIssued, false},
		{" receiving ", core.StatusReceiving, false},
		{"closed", core.StatusClosed, false},
		{"canceled", core.StatusCanceled, false},
		{"cancelled", core.StatusCanceled, false},
		{"CANCELLED", core.StatusCanceled, false},
		{"approved", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := core.ParseStatus(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to core.POStatus
		want     bool
	}{
		{core.StatusDraft, core.StatusIssued, true},
		{core.StatusDraft, core.StatusCanceled, true},
		{core.StatusDraft, core.StatusClosed, false},
		{core.StatusIssued, core.StatusReceiving, true},
		{core.StatusIssued, core.StatusCanceled, true},
		{core.StatusReceiving, core.StatusClosed, true},
		{core.StatusReceiving, core.StatusDraft, false},
		{core.StatusClosed, core.StatusReceiving, false},
		{core.StatusCanceled, core.StatusDraft, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if !core.StatusClosed.IsTerminal() || !core.StatusCanceled.IsTerminal() || core.StatusIssued.IsTerminal() {
		t.Error("terminal statuses are closed and canceled only")
	}
}
