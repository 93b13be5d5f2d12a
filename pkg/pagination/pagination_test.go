package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func params(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		limit  int
		offset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit", "limit=5&offset=10", 5, 10},
		{"capped at max", "limit=500", MaxLimit, 0},
		{"negative limit ignored", "limit=-3", DefaultLimit, 0},
		{"garbage ignored", "limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params(t, tt.query)
			if p.Limit != tt.limit {
				t.Errorf("limit = %d, want %d", p.Limit, tt.limit)
			}
			if p.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", p.Offset, tt.offset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]int{1, 2}, 10, 2, 0)
	if !resp.HasMore {
		t.Error("expected has_more on first page of 10")
	}
	last := NewResponse([]int{9, 10}, 10, 2, 8)
	if last.HasMore {
		t.Error("expected has_more false on final page")
	}
}

func TestHasNext(t *testing.T) {
	p := Params{Limit: 20, Offset: 0}
	if !p.HasNext(21) {
		t.Error("expected next page when total exceeds window")
	}
	if p.HasNext(20) {
		t.Error("expected no next page when total fits")
	}
}
