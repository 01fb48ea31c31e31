package echo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testRequest struct {
	Jsonrpc string            `json:"jsonrpc"`
	Id      string            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// Database method name of a "call" request, or "" for other requests.
func (self testRequest) apiMethod() string {
	var name string
	if self.Method == "call" && len(self.Params) >= 2 {
		_ = json.Unmarshal(self.Params[1], &name)
	}
	return name
}

/*
Answers RPC requests the way a node would: "get_chain_id" returns a constant,
"call_contract_no_changing_state" returns a fixed word, "fail" returns an RPC
error. Anything else echoes the request parameters.
*/
func testRpcResponse(req testRequest) interface{} {
	res := map[string]interface{}{"jsonrpc": "2.0", "id": req.Id}

	switch req.apiMethod() {
	case "get_chain_id":
		res["result"] = "a5e6a3b8e9c5d2f5"
	case "call_contract_no_changing_state":
		res["result"] = zeroHex(62) + "2a"
	case "get_objects":
		res["result"] = []interface{}{map[string]string{"id": "1.2.5"}, nil}
	case "fail":
		res["error"] = map[string]interface{}{"code": 1, "message": "boom", "data": map[string]string{"reason": "test"}}
	default:
		res["result"] = req.Params
	}
	return res
}

// Requests received by a test node. Safe for concurrent use.
type requestLog struct {
	lock sync.Mutex
	list []testRequest
}

func (self *requestLog) add(req testRequest) {
	if self == nil {
		return
	}
	self.lock.Lock()
	self.list = append(self.list, req)
	self.lock.Unlock()
}

func (self *requestLog) all() []testRequest {
	self.lock.Lock()
	defer self.lock.Unlock()
	return append([]testRequest(nil), self.list...)
}

func newHttpNode(t *testing.T, requests *requestLog) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(rew http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		var body testRequest
		if !assert.NoError(t, json.NewDecoder(req.Body).Decode(&body)) {
			rew.WriteHeader(http.StatusBadRequest)
			return
		}
		requests.add(body)

		if body.apiMethod() == "unavailable" {
			http.Error(rew, "node is syncing", http.StatusServiceUnavailable)
			return
		}

		rew.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rew).Encode(testRpcResponse(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func httpTransFor(t *testing.T, server *httptest.Server) HttpTrans {
	rpcUrl, err := url.Parse(server.URL)
	require.NoError(t, err)
	return HttpTrans{Url: *rpcUrl, Client: server.Client()}
}

func TestHttpTrans_databaseCall(t *testing.T) {
	var log requestLog
	trans := httpTransFor(t, newHttpNode(t, &log))

	chainId, err := GetChainId(context.Background(), trans)
	require.NoError(t, err)
	assert.Equal(t, "a5e6a3b8e9c5d2f5", chainId)

	requests := log.all()
	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "2.0", req.Jsonrpc)
	assert.NotEmpty(t, req.Id)
	assert.Equal(t, "call", req.Method)
	require.Len(t, req.Params, 3)
	assert.JSONEq(t, `"database"`, string(req.Params[0]))
	assert.JSONEq(t, `"get_chain_id"`, string(req.Params[1]))
	assert.JSONEq(t, `[]`, string(req.Params[2]))
}

func TestHttpTrans_callContract(t *testing.T) {
	var log requestLog
	trans := httpTransFor(t, newHttpNode(t, &log))

	out, err := CallContractNoChangingState(context.Background(), trans, "1.16.3", "1.2.5", DefaultAssetId, "ef56f928")
	require.NoError(t, err)
	assert.Equal(t, append(make([]byte, 31), 42), out)

	requests := log.all()
	require.Len(t, requests, 1)
	assert.JSONEq(t, `["1.16.3", "1.2.5", "1.3.0", "ef56f928"]`, string(requests[0].Params[2]))
}

func TestHttpTrans_getObjects(t *testing.T) {
	var log requestLog
	trans := httpTransFor(t, newHttpNode(t, &log))

	objects, err := GetObjects(context.Background(), trans, "1.2.5", "1.2.999")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.JSONEq(t, `{"id": "1.2.5"}`, string(objects[0]))
	assert.Equal(t, "null", string(objects[1]))

	requests := log.all()
	require.Len(t, requests, 1)
	assert.JSONEq(t, `[["1.2.5", "1.2.999"]]`, string(requests[0].Params[2]))
}

func TestHttpTrans_errors(t *testing.T) {
	trans := httpTransFor(t, newHttpNode(t, nil))
	ctx := context.Background()

	err := DatabaseCall(ctx, trans, nil, "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `error in "fail"`)
	assert.Contains(t, err.Error(), `RPC error 1: boom: {"reason":"test"}`)

	var rpcErr RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 1, rpcErr.Code)

	err = DatabaseCall(ctx, trans, nil, "unavailable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503 Service Unavailable")
	assert.Contains(t, err.Error(), "node is syncing")

	var out int
	err = DatabaseCall(ctx, trans, &out, "get_chain_id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode RPC response")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = GetChainId(canceled, trans)
	require.Error(t, err)
}

func TestHttpTrans_metrics(t *testing.T) {
	metrics := NewTransMetrics(prometheus.NewRegistry())
	trans := httpTransFor(t, newHttpNode(t, nil))
	trans.Metrics = metrics
	ctx := context.Background()

	_, err := GetChainId(ctx, trans)
	require.NoError(t, err)
	_, err = GetChainId(ctx, trans)
	require.NoError(t, err)
	require.Error(t, DatabaseCall(ctx, trans, nil, "fail"))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.calls.WithLabelValues("get_chain_id", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.calls.WithLabelValues("fail", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration))
}

func TestTransMetrics_nil(t *testing.T) {
	var metrics *TransMetrics
	assert.NotPanics(t, func() { metrics.observe("get_chain_id", time.Now(), nil) })
}

func TestNewTransMetrics_duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewTransMetrics(reg)
	assert.Panics(t, func() { NewTransMetrics(reg) })
}

func TestMetricMethod(t *testing.T) {
	assert.Equal(t, "get_chain_id", metricMethod("call", []interface{}{"database", "get_chain_id", []interface{}{}}))
	assert.Equal(t, "call", metricMethod("call", []interface{}{"database"}))
	assert.Equal(t, "call", metricMethod("call", []interface{}{"database", 1}))
	assert.Equal(t, "login", metricMethod("login", nil))
}

func TestDial(t *testing.T) {
	trans, err := Dial("http://127.0.0.1:6311/rpc", nil)
	require.NoError(t, err)
	assert.IsType(t, HttpTrans{}, trans)

	select {
	case <-trans.Connected():
	default:
		t.Fatal("HTTP transport must always be connected")
	}

	_, err = Dial("ftp://127.0.0.1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported RPC path")

	_, err = Dial("://", nil)
	require.Error(t, err)
}

/*
Websocket node. Writes a notice without an id before every response. Drops the
connection on "drop" and never answers "hang".
*/
func newWsNode(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(rew http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(rew, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var body testRequest
			err := conn.ReadJSON(&body)
			if err != nil {
				return
			}
			switch body.apiMethod() {
			case "drop":
				return
			case "hang":
				continue
			}

			err = conn.WriteJSON(map[string]interface{}{"method": "notice", "params": []int{1}})
			if err != nil {
				return
			}
			err = conn.WriteJSON(testRpcResponse(body))
			if err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsUrl(t *testing.T, server *httptest.Server) url.URL {
	out, err := url.Parse("ws" + strings.TrimPrefix(server.URL, "http"))
	require.NoError(t, err)
	return *out
}

func TestWsTrans(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	trans, err := DialWs(wsUrl(t, newWsNode(t)), zap.New(core))
	require.NoError(t, err)
	defer trans.Close()

	select {
	case <-trans.Connected():
	default:
		t.Fatal("expected the transport to be connected after dialing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chainId, err := GetChainId(ctx, trans)
	require.NoError(t, err)
	assert.Equal(t, "a5e6a3b8e9c5d2f5", chainId)

	out, err := CallContractNoChangingState(ctx, trans, "1.16.3", "1.2.5", DefaultAssetId, "ef56f928")
	require.NoError(t, err)
	assert.Equal(t, append(make([]byte, 31), 42), out)

	err = DatabaseCall(ctx, trans, nil, "fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC error 1: boom")

	assert.NotZero(t, logs.FilterMessage("ignoring RPC notice").Len())
}

func TestWsTrans_concurrentCalls(t *testing.T) {
	trans, err := DialWs(wsUrl(t, newWsNode(t)), nil)
	require.NoError(t, err)
	defer trans.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const count = 16
	errs := make(chan error, count)
	for i := 0; i < count; i++ {
		go func(index int) {
			var out []json.RawMessage
			err := DatabaseCall(ctx, trans, &out, "echo", index)
			if err == nil && (len(out) != 3 || string(out[2]) != fmt.Sprintf("[%d]", index)) {
				err = fmt.Errorf("unexpected response to call %d: %s", index, out)
			}
			errs <- err
		}(i)
	}

	for i := 0; i < count; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestWsTrans_disconnect(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	trans, err := DialWs(wsUrl(t, newWsNode(t)), zap.New(core))
	require.NoError(t, err)
	defer trans.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = DatabaseCall(ctx, trans, nil, "drop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disconnected from RPC server")

	// The transport reconnects in the background.
	assert.Eventually(t, func() bool {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_, err := GetChainId(callCtx, trans)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	assert.NotZero(t, logs.FilterMessage("disconnected from RPC node").Len())
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("reconnected to RPC node").Len() > 0
	}, time.Second, 10*time.Millisecond)
}

func TestWsTrans_contextCanceled(t *testing.T) {
	trans, err := DialWs(wsUrl(t, newWsNode(t)), nil)
	require.NoError(t, err)
	defer trans.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = trans.Call(ctx, nil, "call", DatabaseApi, "hang", []interface{}{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialWs_unreachable(t *testing.T) {
	server := newWsNode(t)
	target := wsUrl(t, server)
	server.Close()

	_, err := DialWs(target, nil)
	require.Error(t, err)
}
