package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
)

var errBodyTooLarge = errors.New("bridge: request body exceeds configured limit")

func encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// httpStatusText falls back to a generic label for status codes the
// standard library doesn't name (e.g. custom 5xx codes a service invents).
func httpStatusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Error"
}
