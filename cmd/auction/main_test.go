package main

import "testing"

func TestCommodityArgs(t *testing.T) {
	tests := []struct {
		args    []string
		issuer  string
		item    string
		wantErr bool
	}{
		{[]string{"IssuerMSP1", "00001"}, "IssuerMSP1", "00001", false},
		{[]string{"IssuerMSP1:00001"}, "IssuerMSP1", "00001", false},
		{[]string{"IssuerMSP1"}, "", "", true},
		{[]string{"a:b:c"}, "", "", true},
	}
	for _, tt := range tests {
		issuer, item, err := commodityArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("commodityArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if issuer != tt.issuer || item != tt.item {
			t.Errorf("commodityArgs(%v) = %q, %q", tt.args, issuer, item)
		}
	}
}
