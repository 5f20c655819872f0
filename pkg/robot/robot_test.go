package robot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guidolog "github.com/teslashibe/go-guido/internal/log"
	"github.com/teslashibe/go-guido/pkg/events"
)

type daemon struct {
	mu       sync.Mutex
	paths    []string
	payloads []map[string]string
	status   int
}

func (d *daemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r.URL.Path == "/api/daemon/status" {
		_, _ = w.Write([]byte(`{"state":"running"}`))
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	d.paths = append(d.paths, r.URL.Path)
	d.payloads = append(d.payloads, body)
	if d.status != 0 {
		w.WriteHeader(d.status)
	}
}

func TestHTTPActuatorDeliverAndOrganize(t *testing.T) {
	d := &daemon{}
	srv := httptest.NewServer(d)
	defer srv.Close()

	a := NewHTTPActuator(srv.URL+"/", time.Second, guidolog.Discard())
	ctx := context.Background()

	require.NoError(t, a.DeliverTool(ctx, "measuring tape"))
	require.NoError(t, a.OrganizeTools(ctx))

	assert.Equal(t, []string{"/api/tools/deliver", "/api/tools/organize"}, d.paths)
	assert.Equal(t, "measuring tape", d.payloads[0]["tool"])
	assert.Equal(t, "by_class", d.payloads[1]["strategy"])

	state, err := a.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", state)
}

func TestHTTPActuatorErrors(t *testing.T) {
	d := &daemon{status: http.StatusConflict}
	srv := httptest.NewServer(d)
	defer srv.Close()

	a := NewHTTPActuator(srv.URL, time.Second, nil)

	err := a.DeliverTool(context.Background(), "wrench")
	var actErr *ActuationError
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, http.StatusConflict, actErr.Status)
	assert.Equal(t, `robot: deliver "wrench" rejected with status 409`, err.Error())

	assert.ErrorIs(t, a.DeliverTool(context.Background(), ""), ErrNoTool)

	srv.Close()
	err = a.OrganizeTools(context.Background())
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, "organize", actErr.Action)
	assert.NotNil(t, actErr.Unwrap())
}

func TestLogActuator(t *testing.T) {
	a := NewLogActuator(guidolog.Discard())
	assert.NoError(t, a.DeliverTool(context.Background(), "hammer"))
	assert.NoError(t, a.OrganizeTools(context.Background()))
	assert.ErrorIs(t, a.DeliverTool(context.Background(), ""), ErrNoTool)
}

type capture struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capture) Publish(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func TestObservedPublishesActions(t *testing.T) {
	mock := NewMock()
	pub := &capture{}
	o := NewObserved(mock, pub, guidolog.Discard())

	require.NoError(t, o.DeliverTool(context.Background(), "plier"))
	mock.FailWith(errors.New("arm jammed"))
	require.Error(t, o.OrganizeTools(context.Background()))

	assert.Equal(t, []string{"plier"}, mock.Deliveries())
	assert.Equal(t, 1, mock.Organizes())

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.KindDeliver, pub.events[0].Kind)
	assert.Equal(t, "plier", pub.events[0].Data["tool"])
	assert.Equal(t, true, pub.events[0].Data["ok"])
	assert.Equal(t, events.KindOrganize, pub.events[1].Kind)
	assert.Equal(t, false, pub.events[1].Data["ok"])
	assert.Equal(t, "arm jammed", pub.events[1].Data["error"])
}
