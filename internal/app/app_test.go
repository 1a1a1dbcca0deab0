package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-analytics/internal/config"
	internaldb "invoice-analytics/internal/db"
	"invoice-analytics/internal/db/repository"
	"invoice-analytics/internal/domain"
	"invoice-analytics/internal/service/chat"
)

func newTestApp(t *testing.T, seed bool) *App {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	a, err := New(context.Background(), Deps{
		Cfg: &config.Config{
			SeedDemo:       seed,
			AnalyticsURL:   config.DefaultAnalyticsURL,
			ChatSessionTTL: time.Minute,
		},
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  slog.New(slog.DiscardHandler),
		Transport: chat.TransportFunc(func(context.Context, string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data: {\"type\":\"done\"}\n\n")), nil
		}),
	})
	require.NoError(t, err)
	return a
}

func TestSeedDemo(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	repo := repository.NewInvoiceRepo(writeDB, readDB)
	ctx := context.Background()

	n, err := SeedDemo(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, len(demoInvoices), n)

	stats, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStats{TotalInvoices: 7, TotalVendors: 4, TotalCustomers: 2, TotalPayments: 7}, *stats)

	n, err = SeedDemo(ctx, repo)
	require.NoError(t, err)
	assert.Zero(t, n, "seeding twice is a no-op")

	invoices, err := repo.ListInvoices(ctx, domain.InvoiceFilter{VendorName: "acme"})
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "RE-2025-0003", *invoices[0].InvoiceNumber, "newest first")
	require.NotNil(t, invoices[0].InvoiceTotal)
	assert.Equal(t, "2975", invoices[0].InvoiceTotal.String())
}

func TestApp_Routes(t *testing.T) {
	a := newTestApp(t, true)
	r := chi.NewRouter()
	a.Mount(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/stats") //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats domain.InvoiceStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(7), stats.TotalInvoices)

	for _, path := range []string{"/", "/invoices", "/healthz", "/openapi.json"} {
		resp, err := http.Get(srv.URL + path) //nolint:gosec,noctx // test server URL
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestApp_NoSeedLeavesStoreEmpty(t *testing.T) {
	a := newTestApp(t, false)
	stats, err := a.Reports.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalInvoices)
	assert.False(t, a.Exporter.CanUpload())
}

func TestApp_ChatUsesConfiguredTransport(t *testing.T) {
	a := newTestApp(t, false)
	ctrl := a.Chats.GetOrCreate(domain.NewID())

	s, err := ctrl.Submit(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDone, s.Status)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := newTestApp(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
