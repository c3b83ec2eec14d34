package wire

import (
	"encoding/json"
	"net/http"
	"reflect"
	"testing"
)

func TestRequestEnvelopeRoundTrip(t *testing.T) {
	original := RequestEnvelope{
		Path:   "/api/recipes/42",
		Method: MethodGet,
		Headers: map[string]string{
			"Authorization": "Bearer xyz",
			"Accept":        "application/json, text/plain",
		},
		QueryParams: map[string]string{"page": "1"},
		Body:        `{"foo":"bar"}`,
		Principal: &Principal{
			AccountID: "acct-1",
			Email:     "a@example.com",
			Roles:     []string{"user", "admin"},
		},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded RequestEnvelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", decoded, original)
	}
}

func TestResponseEnvelopeRoundTrip(t *testing.T) {
	original := ResponseEnvelope{
		CorrelationID: "C1",
		StatusCode:    200,
		Headers:       map[string]string{"Content-Type": "application/json"},
		Body:          `{"id":42,"name":"kimchi"}`,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ResponseEnvelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round trip mismatch:\n got: %+v\nwant: %+v", decoded, original)
	}
}

func TestNewSuccessEmbedsParsedJSON(t *testing.T) {
	resp := NewSuccess(http.StatusOK, "OK", `{"id":42,"name":"kimchi"}`)
	if resp.Error != nil {
		t.Fatalf("expected nil error, got %+v", resp.Error)
	}
	raw, ok := resp.Data.(json.RawMessage)
	if !ok {
		t.Fatalf("expected json.RawMessage data, got %T", resp.Data)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("embedded data did not parse: %v", err)
	}
	if m["name"] != "kimchi" {
		t.Fatalf("unexpected embedded data: %+v", m)
	}
}

func TestNewSuccessEmbedsPlainStringWhenNotJSON(t *testing.T) {
	resp := NewSuccess(http.StatusOK, "OK", "not json")
	if s, ok := resp.Data.(string); !ok || s != "not json" {
		t.Fatalf("expected plain string data, got %#v", resp.Data)
	}
}

func TestNewFailureSetsErrCode(t *testing.T) {
	resp := NewFailure(http.StatusGatewayTimeout, "Gateway Timeout", "upstream timeout")
	if resp.Data != nil {
		t.Fatalf("expected nil data, got %+v", resp.Data)
	}
	if resp.Error == nil || resp.Error.Code != "ERR_504" {
		t.Fatalf("expected ERR_504, got %+v", resp.Error)
	}
}

func TestIsHopByHop(t *testing.T) {
	cases := map[string]bool{
		"Connection":          true,
		"keep-alive":          true,
		"Transfer-Encoding":   true,
		"Upgrade":             true,
		"TE":                  true,
		"Trailer":             true,
		"Proxy-Authenticate":  true,
		"Proxy-Anything":      true,
		"Content-Type":        false,
		"X-Request-Id":        false,
	}
	for header, want := range cases {
		if got := IsHopByHop(header); got != want {
			t.Errorf("IsHopByHop(%q) = %v, want %v", header, got, want)
		}
	}
}

func TestJoinHeadersCommaJoinsMultiValue(t *testing.T) {
	h := http.Header{}
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")
	out := JoinHeaders(h)
	if out["Accept"] != "application/json, text/plain" {
		t.Fatalf("unexpected join: %q", out["Accept"])
	}
}

func TestFirstQueryParamsCollapses(t *testing.T) {
	out := FirstQueryParams(map[string][]string{
		"page": {"1", "2"},
		"q":    {"kimchi"},
	})
	if out["page"] != "1" || out["q"] != "kimchi" {
		t.Fatalf("unexpected collapse: %+v", out)
	}
}

func TestParseMethod(t *testing.T) {
	if m, ok := ParseMethod("get"); !ok || m != MethodGet {
		t.Fatalf("expected GET, got %v %v", m, ok)
	}
	if _, ok := ParseMethod("CONNECT"); ok {
		t.Fatalf("expected CONNECT to be rejected")
	}
}
