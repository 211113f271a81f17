package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"sara@example.com",
		"sara.jones+sales@example.co.uk",
		"s_j%99@sub.example.io",
	}
	for _, email := range valid {
		assert.True(t, IsValidEmail(email), "expected %q to be valid", email)
	}

	invalid := []string{
		"",
		"sara",
		"sara@",
		"@example.com",
		"sara@example",
		"sara @example.com",
		"sara@exa mple.com",
	}
	for _, email := range invalid {
		assert.False(t, IsValidEmail(email), "expected %q to be invalid", email)
	}
}

func TestIsHexColor(t *testing.T) {
	tests := []struct {
		color string
		want  bool
	}{
		{"#1A2B3C", true},
		{"#abcdef", true},
		{"#000000", true},
		{"1A2B3C", false},  // missing #
		{"#1A2B3", false},  // five digits
		{"#1A2B3C4", false}, // seven digits
		{"#ABC", false},    // shorthand form
		{"#12345G", false}, // non hex digit
		{"red", false},
		{"", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, IsHexColor(tc.color), "color %q", tc.color)
	}
}

func TestFirstInvalidColor(t *testing.T) {
	assert.Equal(t, "", firstInvalidColor(nil))
	assert.Equal(t, "", firstInvalidColor([]string{"#1A2B3C", "#FFFFFF"}))
	assert.Equal(t, "#ABC", firstInvalidColor([]string{"#1A2B3C", "#ABC", "nope"}))
	assert.Equal(t, "nope", firstInvalidColor([]string{"nope", "#ABC"}))
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://example.com"))
	assert.True(t, IsValidURL("http://example.com/path?x=1"))

	assert.False(t, IsValidURL("ftp://example.com"))
	assert.False(t, IsValidURL("example.com"))
	assert.False(t, IsValidURL("/relative/path"))
	assert.False(t, IsValidURL(""))
	assert.False(t, IsValidURL("https://"))
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	page, limit := parsePagination(r)
	assert.Equal(t, 1, page, "default page")
	assert.Equal(t, 20, limit, "default limit")

	r = httptest.NewRequest(http.MethodGet, "/api/leads?page=3&limit=50", nil)
	page, limit = parsePagination(r)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, limit)

	// Limit is capped
	r = httptest.NewRequest(http.MethodGet, "/api/leads?limit=5000", nil)
	_, limit = parsePagination(r)
	assert.Equal(t, 100, limit)

	// Garbage and non-positive values fall back to defaults
	r = httptest.NewRequest(http.MethodGet, "/api/leads?page=zero&limit=-5", nil)
	page, limit = parsePagination(r)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestBuildPagination(t *testing.T) {
	p := buildPagination(1, 20, 0)
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, 0, p.TotalPages)

	p = buildPagination(2, 20, 45)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 45, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = buildPagination(1, 20, 40)
	assert.Equal(t, 2, p.TotalPages)
}

func TestWriteResponseSetsLocationHeader(t *testing.T) {
	w := httptest.NewRecorder()
	WriteResponse(w, http.StatusCreated, map[string]string{"id": "abc"}, "/api/leads/abc")

	res := w.Result()
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "/api/leads/abc", res.Header.Get("Location"))
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, "max-age=0", res.Header.Get("Cache-Control"))
}
