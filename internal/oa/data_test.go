package oa

import (
	"testing"
)

func TestGetData(t *testing.T) {
	doc, err := ParseWrappedDocument([]byte(`{
		"data": {
			"network": "4c4f2b34-6a13-4d39-9a3b-4b0c1f1f0a11:string:sepolia",
			"count": "5b6f2b34-6a13-4d39-9a3b-4b0c1f1f0a12:number:42.5",
			"active": "6c7f2b34-6a13-4d39-9a3b-4b0c1f1f0a13:boolean:true",
			"empty": "7d8f2b34-6a13-4d39-9a3b-4b0c1f1f0a14:null:null",
			"url": "8e9f2b34-6a13-4d39-9a3b-4b0c1f1f0a15:string:https://example.com:8080",
			"plain": "not salted",
			"issuers": [{"name": "9f0f2b34-6a13-4d39-9a3b-4b0c1f1f0a16:string:ACME"}]
		}
	}`))
	if err != nil {
		t.Fatalf("ParseWrappedDocument() error = %v", err)
	}

	data, err := GetData(doc)
	if err != nil {
		t.Fatalf("GetData() error = %v", err)
	}

	if data["network"] != "sepolia" {
		t.Errorf("network = %v, want sepolia", data["network"])
	}
	if data["count"] != 42.5 {
		t.Errorf("count = %v, want 42.5", data["count"])
	}
	if data["active"] != true {
		t.Errorf("active = %v, want true", data["active"])
	}
	if data["empty"] != nil {
		t.Errorf("empty = %v, want nil", data["empty"])
	}
	if data["url"] != "https://example.com:8080" {
		t.Errorf("url = %v, want the value including colons", data["url"])
	}
	if data["plain"] != "not salted" {
		t.Errorf("plain = %v, want the value unchanged", data["plain"])
	}
	issuer := data["issuers"].([]any)[0].(map[string]any)
	if issuer["name"] != "ACME" {
		t.Errorf("issuers[0].name = %v, want ACME", issuer["name"])
	}
}

func TestGetData_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"no data", `{"version":"x"}`},
		{"unknown salted type", `{"data":{"a":"4c4f2b34-6a13-4d39-9a3b-4b0c1f1f0a11:date:2020"}}`},
		{"bad salted number", `{"data":{"a":"4c4f2b34-6a13-4d39-9a3b-4b0c1f1f0a11:number:abc"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseWrappedDocument([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseWrappedDocument() error = %v", err)
			}
			if _, err := GetData(doc); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
