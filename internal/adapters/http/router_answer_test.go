package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
)

type answerServiceFake struct {
	query  string
	opts   ports.AnswerOptions
	result *domain.SynthesisResult
	err    error
}

func (f *answerServiceFake) AnswerQuery(_ context.Context, query string, opts ports.AnswerOptions) (*domain.SynthesisResult, error) {
	f.query = query
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestRouter(service *answerServiceFake) http.Handler {
	return NewRouter(service, nil, RouterConfig{}).Handler()
}

func TestAnswerEndpointReturnsResult(t *testing.T) {
	service := &answerServiceFake{
		result: &domain.SynthesisResult{
			Query:     "what is structuring",
			Answer:    "answer [Chunk 1]",
			ModelUsed: "primary",
		},
	}
	handler := newTestRouter(service)

	body := `{"query":"what is structuring","filter_logic":"or","temperature":0.4,"timeout_ms":5000}`
	req := httptest.NewRequest(http.MethodPost, "/v1/answers", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if service.query != "what is structuring" {
		t.Fatalf("query not forwarded, got %q", service.query)
	}
	if service.opts.FilterLogic != domain.FilterLogicOR {
		t.Fatalf("expected OR filter logic, got %q", service.opts.FilterLogic)
	}
	if service.opts.TemperatureOverride == nil || *service.opts.TemperatureOverride != 0.4 {
		t.Fatalf("temperature override not forwarded")
	}
	if service.opts.Deadline.Milliseconds() != 5000 {
		t.Fatalf("deadline not forwarded, got %v", service.opts.Deadline)
	}

	var resp domain.SynthesisResult
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "answer [Chunk 1]" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
}

func TestAnswerEndpointDefaultsFilterLogicToOR(t *testing.T) {
	service := &answerServiceFake{result: &domain.SynthesisResult{Answer: "ok"}}
	handler := newTestRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/answers", strings.NewReader(`{"query":"q"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if service.opts.FilterLogic != domain.FilterLogicOR {
		t.Fatalf("omitted filter_logic must default to OR, got %q", service.opts.FilterLogic)
	}
}

func TestAnswerEndpointRejectsInvalidFilterLogic(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/answers", strings.NewReader(`{"query":"q","filter_logic":"XOR"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAnswerEndpointRejectsNonPost(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/answers", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestAnswerEndpointMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.WrapErrorMessage(domain.ErrInvalidQuery, "answer query", "query must not be empty"), http.StatusBadRequest},
		{domain.WrapErrorMessage(domain.ErrGenerationUnavailable, "synthesize", "all models failed"), http.StatusServiceUnavailable},
		{domain.WrapErrorMessage(domain.ErrTemporary, "search", "circuit open"), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tc := range cases {
		handler := newTestRouter(&answerServiceFake{err: tc.err})
		req := httptest.NewRequest(http.MethodPost, "/v1/answers", strings.NewReader(`{"query":"q"}`))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != tc.want {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.want, res.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestRequestIDMiddlewareEchoesProvidedID(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected caller-supplied request id echoed, got %q", got)
	}
}
