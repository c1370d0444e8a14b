package exporter

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseDocumentVariants(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"switch": "on",
		"temperature": 23.5,
		"remoteControlEnabled": true,
		"lastUpdate": null,
		"supportedModes": ["cool", "dry"],
		"powerConsumption": {"energy": 1200, "deltaEnergy": 5, "meta": {"x": 1}, "flag": false}
	}`))
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	want := Document{
		{Name: "switch", Value: StringValue("on")},
		{Name: "temperature", Value: NumberValue(23.5)},
		{Name: "remoteControlEnabled", Value: BoolValue(true)},
		{Name: "lastUpdate", Value: NullValue()},
		{Name: "supportedModes", Value: Scalar{Kind: KindOpaque, Str: `["cool", "dry"]`}},
		{Name: "powerConsumption", Value: Nested{
			{Name: "energy", Value: NumberValue(1200)},
			{Name: "deltaEnergy", Value: NumberValue(5)},
			{Name: "meta", Value: Scalar{Kind: KindOpaque, Str: `{"x": 1}`}},
			{Name: "flag", Value: BoolValue(false)},
		}},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("unexpected document:\n got=%#v\nwant=%#v", doc, want)
	}
}

func TestParseDocumentRejectsInvalidPayloads(t *testing.T) {
	for _, payload := range []string{``, `[]`, `"status"`, `{"a": }`, `{"a": nul}`} {
		if _, err := ParseDocument([]byte(payload)); err == nil {
			t.Fatalf("expected error for %q", payload)
		}
	}
}

func TestParseDocumentSizeLimit(t *testing.T) {
	big := `{"a":"` + strings.Repeat("x", MaxStatusBytes) + `"}`
	if _, err := ParseDocument([]byte(big)); err == nil {
		t.Fatalf("expected size limit error")
	}

	doc, err := ParseDocument([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}
	if len(doc) != 1 || doc[0].Value != NumberValue(1) {
		t.Fatalf("unexpected document: %#v", doc)
	}
}

func TestScalarString(t *testing.T) {
	cases := map[string]Scalar{
		"on":    StringValue("on"),
		"42":    NumberValue(42),
		"0.5":   NumberValue(0.5),
		"true":  BoolValue(true),
		"null":  NullValue(),
		"[1,2]": {Kind: KindOpaque, Str: "[1,2]"},
	}
	for want, scalar := range cases {
		if got := scalar.String(); got != want {
			t.Fatalf("String()=%q want=%q", got, want)
		}
	}
}
