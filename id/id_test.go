package id_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/xraph/streamswap/id"
)

func TestNewIDsCarryTheirPrefix(t *testing.T) {
	if got := id.NewPositionID().String(); !strings.HasPrefix(got, "pos_") {
		t.Errorf("position id %q", got)
	}
	if got := id.NewTransferID().String(); !strings.HasPrefix(got, "xfer_") {
		t.Errorf("transfer id %q", got)
	}
	if id.NewPositionID().String() == id.NewPositionID().String() {
		t.Error("consecutive ids collide")
	}
}

func TestParseChecksPrefix(t *testing.T) {
	pos, xfer := id.NewPositionID(), id.NewTransferID()

	tests := []struct {
		name    string
		parse   func(string) (id.ID, error)
		in      string
		wantErr bool
	}{
		{"position", id.ParsePositionID, pos.String(), false},
		{"transfer", id.ParseTransferID, xfer.String(), false},
		{"transfer as position", id.ParsePositionID, xfer.String(), true},
		{"position as transfer", id.ParseTransferID, pos.String(), true},
		{"empty", id.ParsePositionID, "", true},
		{"garbage", id.ParseTransferID, "xfer_not-a-suffix", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parse(%q) accepted", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse(%q): %v", tt.in, err)
			}
			if got.String() != tt.in {
				t.Errorf("got %q, want %q", got, tt.in)
			}
		})
	}
}

func TestJSONText(t *testing.T) {
	type record struct {
		ID    id.ID `json:"id"`
		Other id.ID `json:"other"`
	}
	in := record{ID: id.NewTransferID()}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out record
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID.String() != in.ID.String() {
		t.Errorf("got %q, want %q", out.ID, in.ID)
	}
	if !out.Other.IsZero() {
		t.Errorf("empty id decoded as %q", out.Other)
	}

	if err := json.Unmarshal([]byte(`{"id":"user_01h2xcejqtf2nbrexx3vqjhp41"}`), &out); err == nil {
		t.Error("foreign prefix accepted")
	}
}
