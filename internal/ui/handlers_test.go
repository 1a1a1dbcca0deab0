package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/export"
	"invoice-analytics/internal/service/chat"
	"invoice-analytics/internal/service/reporting"
)

const (
	testChatID    = "0b6f1c3e-5d7a-4c1e-9a52-3f4b8d2e6a10"
	testCSRFToken = "test-token"
)

var errTest = errors.New("database is locked")

// stubRepo answers the reporting reads with one vendor and one invoice.
type stubRepo struct {
	domain.InvoiceRepository
	fail      bool
	gotFilter domain.InvoiceFilter
}

func (s *stubRepo) Counts(context.Context) (*domain.InvoiceStats, error) {
	if s.fail {
		return nil, errTest
	}
	return &domain.InvoiceStats{TotalInvoices: 1, TotalVendors: 1}, nil
}

func (s *stubRepo) TopVendors(context.Context, int) ([]domain.VendorTotal, error) {
	return []domain.VendorTotal{{VendorName: "Acme GmbH", InvoiceCount: 1, NetValue: decimal.RequireFromString("1.5")}}, nil
}

func (s *stubRepo) InvoiceAmountsByDate(context.Context) ([]domain.InvoiceAmount, error) {
	return []domain.InvoiceAmount{{Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("1.5")}}, nil
}

func (s *stubRepo) InvoiceAmountsByDueDate(context.Context) ([]domain.InvoiceAmount, error) {
	return nil, nil
}

func (s *stubRepo) LineItemAmounts(context.Context) ([]domain.LineItemAmount, error) {
	return []domain.LineItemAmount{{Sachkonto: "4400", Amount: decimal.RequireFromString("-1.5")}}, nil
}

func (s *stubRepo) ListInvoices(_ context.Context, f domain.InvoiceFilter) ([]domain.Invoice, error) {
	s.gotFilter = f
	number := "INV-7"
	return []domain.Invoice{{ID: 7, InvoiceNumber: &number, Vendor: &domain.Vendor{VendorName: "Acme GmbH"}}}, nil
}

func streamBody(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: " + p + "\n\n")
	}
	return b.String()
}

func staticTransport(body string) chat.Transport {
	return chat.TransportFunc(func(context.Context, string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	})
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newTestHandler(repo domain.InvoiceRepository, transport chat.Transport) (*Handler, chi.Router) {
	registry := NewChatRegistry(func(string) *chat.Controller {
		return chat.NewController(transport, chat.WithLogger(discardLogger()))
	}, time.Hour, discardLogger())
	h := NewHandler(
		reporting.NewService(repo),
		registry,
		export.NewExporter(export.WithLogger(discardLogger())),
		false,
		discardLogger(),
	)
	r := chi.NewRouter()
	MountRoutes(r, h)
	return h, r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func newAskRequest(question string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat/"+testChatID+"/ask", strings.NewReader(`{"question":"`+question+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", testCSRFToken)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRFToken})
	return req
}

func TestDashboard(t *testing.T) {
	t.Run("renders_panels", func(t *testing.T) {
		_, r := newTestHandler(&stubRepo{}, staticTransport(""))
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
		body := rr.Body.String()
		assert.Contains(t, body, "Acme GmbH")
		assert.Contains(t, body, "Mar 2025")
		assert.Contains(t, body, "Marketing")
		assert.Contains(t, rr.Header().Get("Set-Cookie"), csrfCookieName+"=")
	})

	t.Run("failure", func(t *testing.T) {
		_, r := newTestHandler(&stubRepo{fail: true}, staticTransport(""))
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "Unexpected Error")
		assert.NotContains(t, rr.Body.String(), errTest.Error())
	})
}

func TestInvoicesPage(t *testing.T) {
	repo := &stubRepo{}
	_, r := newTestHandler(repo, staticTransport(""))

	rr := serve(r, httptest.NewRequest(http.MethodGet, "/invoices?vendorName=+acme+&customerName=", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.InvoiceFilter{VendorName: "acme"}, repo.gotFilter)
	assert.Contains(t, rr.Body.String(), "INV-7")
}

func TestChatNew_Redirects(t *testing.T) {
	_, r := newTestHandler(&stubRepo{}, staticTransport(""))
	rr := serve(r, httptest.NewRequest(http.MethodGet, "/chat", nil))

	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/chat/"), loc)
	assert.True(t, ValidChatID(strings.TrimPrefix(loc, "/chat/")))
}

func TestChatPage(t *testing.T) {
	_, r := newTestHandler(&stubRepo{}, staticTransport(""))

	t.Run("new_chat", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/chat/"+testChatID, nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRFToken})
		rr := serve(r, req)

		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "/chat/"+testChatID+"/ask")
		assert.Contains(t, body, testCSRFToken)
		assert.Contains(t, body, "Ask a question to get started.")
	})

	t.Run("invalid_id", func(t *testing.T) {
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/chat/not-a-chat", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestChatAsk_StreamsSession(t *testing.T) {
	_, r := newTestHandler(&stubRepo{}, staticTransport(streamBody(
		`{"type":"llm_text","text":"Looking at vendors"}`,
		`{"type":"sql_candidate","sql":"SELECT vendor FROM invoices"}`,
		`{"type":"result_rows","rows":[{"vendor":"Acme"}]}`,
		`{"type":"done"}`,
	)))

	rr := serve(r, newAskRequest("top vendors?"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.Contains(t, body, "event: datastar-patch-signals\ndata: signals {\"question\":\"\"}\n\n")
	assert.Contains(t, body, `id="`+sessionElementID+`"`)
	assert.Contains(t, body, "SELECT vendor FROM invoices")
	assert.Contains(t, body, "Download csv")

	last := body[strings.LastIndex(body, "event: "):]
	assert.Contains(t, last, "label-success", "final patch shows the finished session")
}

func TestChatAsk_Rejections(t *testing.T) {
	t.Run("busy", func(t *testing.T) {
		pr, pw := io.Pipe()
		h, r := newTestHandler(&stubRepo{}, chat.TransportFunc(func(context.Context, string) (io.ReadCloser, error) {
			return pr, nil
		}))
		ctrl := h.Chats.GetOrCreate(testChatID)
		require.NoError(t, ctrl.Start(context.Background(), "first"))

		rr := serve(r, newAskRequest("second"))

		require.Equal(t, http.StatusOK, rr.Code)
		body := rr.Body.String()
		assert.Contains(t, body, "Still answering the previous question.")
		assert.NotContains(t, body, sessionElementID)
		assert.Equal(t, "first", ctrl.Snapshot().Query)

		require.NoError(t, pw.Close())
		assert.Eventually(t, func() bool { return !ctrl.Busy() }, time.Second, 10*time.Millisecond)
	})

	t.Run("empty_question", func(t *testing.T) {
		_, r := newTestHandler(&stubRepo{}, staticTransport(""))
		rr := serve(r, newAskRequest("   "))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Please enter a question.")
	})

	t.Run("missing_csrf", func(t *testing.T) {
		_, r := newTestHandler(&stubRepo{}, staticTransport(""))
		req := newAskRequest("q")
		req.Header.Del("X-CSRF-Token")
		rr := serve(r, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("bad_body", func(t *testing.T) {
		_, r := newTestHandler(&stubRepo{}, staticTransport(""))
		req := newAskRequest("q")
		req.Body = io.NopCloser(strings.NewReader("{"))
		rr := serve(r, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestChatExport(t *testing.T) {
	h, r := newTestHandler(&stubRepo{}, staticTransport(streamBody(
		`{"type":"result_rows","rows":[{"vendor":"Acme","total":12.5},{"vendor":"Globex","total":3}]}`,
	)))
	_, err := h.Chats.GetOrCreate(testChatID).Submit(context.Background(), "spend per vendor")
	require.NoError(t, err)

	t.Run("csv_by_default", func(t *testing.T) {
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/chat/"+testChatID+"/export", nil))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.True(t, strings.HasPrefix(rr.Body.String(), "vendor,total\nAcme,12.5\nGlobex,3"), rr.Body.String())
		assert.Equal(t, `attachment; filename="chat-`+testChatID+`.csv"`, rr.Header().Get("Content-Disposition"))
	})

	t.Run("json", func(t *testing.T) {
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/chat/"+testChatID+"/export?format=json", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"vendor":"Globex"`)
	})

	t.Run("bad_format", func(t *testing.T) {
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/chat/"+testChatID+"/export?format=xlsx", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown_chat", func(t *testing.T) {
		rr := serve(r, httptest.NewRequest(http.MethodGet, "/chat/"+domain.NewID()+"/export", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
