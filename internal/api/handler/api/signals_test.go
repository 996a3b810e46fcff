// internal/api/handler/api/signals_test.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/metrics"
	"github.com/newthinker/signalbook/internal/notifier"
	"github.com/newthinker/signalbook/internal/sample"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

func seeded(t *testing.T) *signal.MemoryStore {
	t.Helper()
	store := signal.NewMemoryStore(100)
	_, err := sample.Seed(context.Background(), store, time.Now())
	require.NoError(t, err)
	return store
}

type listBody struct {
	Data struct {
		Signals []SignalView `json:"signals"`
		Total   int          `json:"total"`
		Limit   int          `json:"limit"`
		Offset  int          `json:"offset"`
	} `json:"data"`
}

type viewBody struct {
	Data SignalView `json:"data"`
}

func TestSignalsHandler_List(t *testing.T) {
	handler := NewSignalsHandler(seeded(t), nil, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/v1/signals", nil)
	w := httptest.NewRecorder()
	handler.List(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data.Signals, 10)
	assert.Equal(t, 10, body.Data.Total)
	assert.Equal(t, 50, body.Data.Limit)

	// newest first; sample-10 is 30 minutes old
	assert.Equal(t, "sample-10", body.Data.Signals[0].ID)
	assert.Equal(t, core.StateOpen, body.Data.Signals[0].Status.State)
}

func TestSignalsHandler_ListWithFilters(t *testing.T) {
	handler := NewSignalsHandler(seeded(t), nil, nil)

	tests := []struct {
		query string
		want  int
		total int
	}{
		{"symbol=BTC", 3, 3},
		{"state=CLOSED", 6, 6},
		{"state=OPEN&symbol=BTC", 2, 2},
		{"result=Risk", 1, 1},
		{"strategy=Moderate", 4, 4},
		{"timeframe=4h", 4, 4},
		{"limit=2", 2, 10},
		{"limit=5&offset=8", 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/signals?"+tt.query, nil)
			w := httptest.NewRecorder()
			handler.List(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			var body listBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Len(t, body.Data.Signals, tt.want)
			assert.Equal(t, tt.total, body.Data.Total)
		})
	}
}

func TestSignalsHandler_ListBadQuery(t *testing.T) {
	handler := NewSignalsHandler(seeded(t), nil, nil)

	for _, q := range []string{"state=HALF", "result=TP9", "limit=abc", "limit=0", "offset=-1", "from=yesterday"} {
		t.Run(q, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/signals?"+q, nil)
			w := httptest.NewRecorder()
			handler.List(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSignalsHandler_GetByID(t *testing.T) {
	handler := NewSignalsHandler(seeded(t), nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/signals/sample-7", nil)
	w := httptest.NewRecorder()
	handler.GetByID(w, req, "sample-7")

	require.Equal(t, http.StatusOK, w.Code)

	var body viewBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TSLA", body.Data.Symbol)
	assert.Equal(t, core.StateClosed, body.Data.Status.State)
	assert.Equal(t, core.ResultRisk, body.Data.Status.Result)
	assert.Equal(t, "Risk (EVaR)", body.Data.Status.ResultLabel)
	assert.NotEmpty(t, body.Data.Actions)
}

func TestSignalsHandler_GetByID_NotFound(t *testing.T) {
	handler := NewSignalsHandler(signal.NewMemoryStore(100), nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/signals/nonexistent", nil)
	w := httptest.NewRecorder()
	handler.GetByID(w, req, "nonexistent")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp response.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "SIGNAL_NOT_FOUND", resp.Error.Code)
}

func TestSignalsHandler_Create(t *testing.T) {
	store := signal.NewMemoryStore(100)
	reg := metrics.NewRegistry()
	handler := NewSignalsHandler(store, reg, nil)

	body := `{"symbol":"ETH","timeframe":"1h","strategy":"Aggressive","entry_price":3500,
		"actions":[{"action_type":"OPEN","reason":"Entry 1h FS=70.0","timestamp":"2025-01-02T10:00:00Z","remaining_size":100}]}`
	req := httptest.NewRequest("POST", "/api/v1/signals", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp viewBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ID)
	assert.False(t, resp.Data.CreatedAt.IsZero(), "created_at defaults to now")
	assert.Equal(t, core.StateOpen, resp.Data.Status.State)
	assert.Equal(t, "Entry 1h FS=70.0", resp.Data.Status.LastEvent)

	n, _ := store.Count(context.Background(), signal.ListFilter{})
	assert.Equal(t, 1, n)
}

func TestSignalsHandler_CreateInvalid(t *testing.T) {
	handler := NewSignalsHandler(signal.NewMemoryStore(100), nil, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed", `{"symbol":`, "BAD_REQUEST"},
		{"unknown field", `{"symbol":"ETH","timeframe":"1h","colour":"red"}`, "BAD_REQUEST"},
		{"missing timeframe", `{"symbol":"ETH"}`, "INVALID_SIGNAL"},
		{"bad action type", `{"symbol":"ETH","timeframe":"1h","actions":[{"action_type":"HOLD","timestamp":"2025-01-02T10:00:00Z"}]}`, "INVALID_ACTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/signals", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.Create(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp response.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestSignalsHandler_AppendAction(t *testing.T) {
	store := seeded(t)
	handler := NewSignalsHandler(store, metrics.NewRegistry(), nil)

	// sample-1 is open after "TP1 Hit -> BE"
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/signals/sample-1/actions", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.AppendAction(w, req, "sample-1")
		return w
	}

	w := post(`{"action_type":"CLOSE","reason":"TP2 Hit","size_change":-66,"remaining_size":0}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp viewBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, core.StateClosed, resp.Data.Status.State)
	assert.Equal(t, core.ResultTP2, resp.Data.Status.Result)
	assert.Empty(t, resp.Data.Status.LastEvent)

	// closed logs take no more actions
	w = post(`{"action_type":"MODIFY_SL","reason":"Trailing"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignalsHandler_AppendAction_Errors(t *testing.T) {
	handler := NewSignalsHandler(seeded(t), nil, nil)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{"unknown signal", "nope", `{"action_type":"OPEN"}`, http.StatusNotFound},
		{"bad type", "sample-2", `{"action_type":"HOLD"}`, http.StatusBadRequest},
		{"malformed", "sample-2", `not json`, http.StatusBadRequest},
		{"out of order", "sample-2", `{"action_type":"DO_NOTHING","timestamp":"2000-01-01T00:00:00Z"}`, http.StatusBadRequest},
		{"already closed", "sample-5", `{"action_type":"DO_NOTHING"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/signals/"+tt.id+"/actions", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.AppendAction(w, req, tt.id)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (n *recordingNotifier) Name() string                   { return "recording" }
func (n *recordingNotifier) Init(cfg notifier.Config) error { return nil }
func (n *recordingNotifier) Notify(ctx context.Context, ev notifier.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func TestSignalsHandler_AppendAction_Notifies(t *testing.T) {
	rec := &recordingNotifier{}
	notifiers := notifier.NewRegistry(false, nil)
	require.NoError(t, notifiers.Register(rec))

	handler := NewSignalsHandler(seeded(t), nil, nil).WithNotifiers(notifiers)

	req := httptest.NewRequest("POST", "/api/v1/signals/sample-1/actions",
		strings.NewReader(`{"action_type":"MODIFY_SL","reason":"TP2 Hit -> Trailing","remaining_size":33}`))
	w := httptest.NewRecorder()
	handler.AppendAction(w, req, "sample-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	notifiers.Wait()
	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, notifier.KindAction, ev.Kind)
	assert.Equal(t, "sample-1", ev.SignalID)
	assert.Equal(t, "TP2 Hit -> Trailing", ev.Action.Reason)
	assert.NotEmpty(t, ev.Action.ID)
	assert.Equal(t, "TP2 • Trailing", ev.Status.LastEvent)
}

func TestSignalsHandler_AppendAction_ConcurrentNotifiesEachAction(t *testing.T) {
	rec := &recordingNotifier{}
	notifiers := notifier.NewRegistry(false, nil)
	require.NoError(t, notifiers.Register(rec))

	handler := NewSignalsHandler(seeded(t), nil, nil).WithNotifiers(notifiers)
	at := time.Now().UTC().Add(time.Minute).Format(time.RFC3339)

	const n = 8
	responses := make([]viewBody, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"action_type":"MODIFY_SL","reason":"Trailing %d","timestamp":%q}`, i, at)
			req := httptest.NewRequest("POST", "/api/v1/signals/sample-1/actions", strings.NewReader(body))
			w := httptest.NewRecorder()
			handler.AppendAction(w, req, "sample-1")
			if w.Code == http.StatusCreated {
				json.Unmarshal(w.Body.Bytes(), &responses[i])
			}
		}(i)
	}
	wg.Wait()
	notifiers.Wait()

	// Each response ends with its own action
	for i, resp := range responses {
		actions := resp.Data.Actions
		require.NotEmpty(t, actions, "request %d", i)
		assert.Equal(t, fmt.Sprintf("Trailing %d", i), actions[len(actions)-1].Reason)
	}

	// Every appended action is notified exactly once
	require.Len(t, rec.events, n)
	seenIDs := make(map[string]bool)
	seenReasons := make(map[string]bool)
	for _, ev := range rec.events {
		seenIDs[ev.Action.ID] = true
		seenReasons[ev.Action.Reason] = true
	}
	assert.Len(t, seenIDs, n)
	assert.Len(t, seenReasons, n)
}
