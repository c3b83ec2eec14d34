package router

import "testing"

func TestShouldLogBody(t *testing.T) {
	cases := map[string]bool{
		"":                                 true,
		"application/json":                 true,
		"application/json; charset=utf-8":   true,
		"multipart/form-data; boundary=xyz": false,
		"application/octet-stream":          false,
		"application/pdf":                   false,
		"image/png":                         false,
		"video/mp4":                         false,
		"audio/mpeg":                        false,
	}
	for contentType, want := range cases {
		if got := shouldLogBody(contentType); got != want {
			t.Errorf("shouldLogBody(%q) = %v, want %v", contentType, got, want)
		}
	}
}
