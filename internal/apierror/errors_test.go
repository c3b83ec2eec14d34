package apierror

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/dev-kitchen/api-gateway/internal/wire"
)

func TestWriteErrorProducesStandardEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/recipes/1", nil)

	WriteError(w, r, NewError(KindTimeout, "upstream did not reply"))

	if w.Code != 504 {
		t.Fatalf("status = %d, want 504", w.Code)
	}

	var resp wire.ApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != "ERR_504" {
		t.Fatalf("expected ERR_504, got %+v", resp.Error)
	}
}

func TestWriteErrorDefaultsUnknownErrorToInternal(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/recipes/1", nil)

	WriteError(w, r, errPlain("boom"))

	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
