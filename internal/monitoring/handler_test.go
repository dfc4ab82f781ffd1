package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitoringTestServer(t *testing.T) (*httptest.Server, *MemoryQueue, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	queue := NewMemoryQueue(4)
	handler := NewHandler(queue, newAlertStoreWithExec(mock), nil)

	r := chi.NewRouter()
	r.Post("/monitoring/sessions", handler.HandleEnqueueSession)
	r.Get("/monitoring/alerts/{subjectID}", handler.HandleListAlerts)
	r.Post("/monitoring/alerts/{alertID}/ack", handler.HandleAcknowledgeAlert)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, queue, mock
}

func TestEnqueueSessionEndpoint(t *testing.T) {
	srv, queue, _ := newMonitoringTestServer(t)

	resp, err := http.Post(srv.URL+"/monitoring/sessions", "application/json",
		strings.NewReader(`{"subjectId":"subject-1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	messages, err := queue.Receive(t.Context(), 1, 1)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Body, "subject-1")
}

func TestEnqueueSessionEndpointRequiresSubject(t *testing.T) {
	srv, _, _ := newMonitoringTestServer(t)

	resp, err := http.Post(srv.URL+"/monitoring/sessions", "application/json",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAlertsEndpoint(t *testing.T) {
	srv, _, mock := newMonitoringTestServer(t)

	rows := pgxmock.NewRows([]string{"id", "subject_id", "rule", "category", "severity", "message", "action_items", "confidence", "created_at"})
	mock.ExpectQuery("SELECT id, subject_id, rule").
		WithArgs("subject-1").
		WillReturnRows(rows)

	resp, err := http.Get(srv.URL + "/monitoring/alerts/subject-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAcknowledgeAlertEndpointRejectsBadID(t *testing.T) {
	srv, _, _ := newMonitoringTestServer(t)

	resp, err := http.Post(srv.URL+"/monitoring/alerts/not-a-uuid/ack", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
