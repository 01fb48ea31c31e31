package echo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const jsonRpcVersion = "2.0"

/*
Common interface implemented by RPC transports. Obtained via "Dial" and passed
to the various RPC functions, or wrapped into a "NodeCaller".
*/
type Trans interface {
	/**
	Should make an RPC request and decode the response body into `out`, which
	must be a pointer. Returns a request error or a decoding error.
	*/
	Call(ctx context.Context, out interface{}, method string, params ...interface{}) error

	/**
	Should return a channel that becomes closed when the transport is connected.
	Stateless transports such as HTTP should always return a closed channel.
	Persistent transports such as websocket: when connected, should return a
	closed channel; when not connected, should return an open channel and close
	it when connected.
	*/
	Connected() chan struct{}
}

/*
Chooses the appropriate transport for the given URL. Waits until connected,
if possible. The optional logger is used for background logging, if that's
relevant for the chosen transport.
*/
func Dial(rpcPath string, logger *zap.Logger) (Trans, error) {
	rpcUrl, err := url.Parse(rpcPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if rpcUrl.Scheme == "ws" || rpcUrl.Scheme == "wss" {
		return DialWs(*rpcUrl, logger)
	}

	if rpcUrl.Scheme == "http" || rpcUrl.Scheme == "https" {
		return HttpTrans{Url: *rpcUrl}, nil
	}

	return nil, errors.Errorf("unsupported RPC path: %v", rpcPath)
}

/*
Stateless HTTP transport. Uses "http.DefaultClient" unless ".Client" is set.
Metrics are optional.
*/
type HttpTrans struct {
	Url     url.URL
	Client  *http.Client
	Metrics *TransMetrics
}

// Since an HTTP transport is "always connected", this returns a channel that's
// always closed.
func (self HttpTrans) Connected() chan struct{} { return alwaysConnected }

var alwaysConnected = func() chan struct{} {
	out := make(chan struct{})
	close(out)
	return out
}()

// Makes an RPC call.
func (self HttpTrans) Call(ctx context.Context, out interface{}, method string, params ...interface{}) (err error) {
	defer func(start time.Time) {
		self.Metrics.observe(metricMethod(method, params), start, err)
	}(time.Now())
	return self.call(ctx, out, method, params)
}

func (self HttpTrans) call(ctx context.Context, out interface{}, method string, params []interface{}) error {
	var body bytes.Buffer
	err := json.NewEncoder(&body).Encode(rpcRequest{
		Jsonrpc: jsonRpcVersion,
		Id:      randomId(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, self.Url.String(), &body)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := self.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		bytes, _ := io.ReadAll(res.Body)
		return errors.Errorf("RPC error: %s\n%s", res.Status, bytes)
	}

	rpcRes := rpcResponse{Result: out}
	err = json.NewDecoder(res.Body).Decode(&rpcRes)
	if err != nil {
		return errors.Wrap(err, "failed to decode RPC response")
	}
	// Note: `error((*RpcError)(nil)) != nil` !!!
	if rpcRes.Error != nil {
		return errors.WithStack(*rpcRes.Error)
	}
	return nil
}

/*
Stateful websocket transport. Supports concurrent RPC calls and automatic
reconnect. The ".ReconnectInterval" property defaults to 1s, can be modified
before the first disconnect.
*/
type WsTrans struct {
	Url               url.URL
	Logger            *zap.Logger
	Metrics           *TransMetrics
	ReconnectInterval time.Duration

	// Guards "conn" and "connected", which are replaced on reconnect.
	connLock  sync.RWMutex
	conn      *websocket.Conn
	connected chan struct{}

	// Unavoidable bottleneck
	writeLock sync.Mutex

	pendingLock sync.Mutex
	pending     map[string]chan either

	done      chan struct{}
	closeOnce sync.Once
}

/*
Attempts to establish a websocket connection to the RPC node at the given URL.
Waits until the connection is established, then starts a background loop that
receives responses and reconnects after disconnects. Call ".Close" to stop it.
*/
func DialWs(url url.URL, logger *zap.Logger) (*WsTrans, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &WsTrans{
		Url:               url,
		Logger:            logger,
		ReconnectInterval: defaultReconnectInterval,
		connected:         make(chan struct{}),
		pending:           map[string]chan either{},
		done:              make(chan struct{}),
	}

	err := transport.connect()
	if err != nil {
		return nil, err
	}

	go transport.run()
	return transport, nil
}

// Closes the connection and stops reconnecting. Pending calls fail.
func (self *WsTrans) Close() error {
	var err error
	self.closeOnce.Do(func() {
		close(self.done)
		self.connLock.RLock()
		conn := self.conn
		self.connLock.RUnlock()
		err = errors.WithStack(conn.Close())
	})
	return err
}

func (self *WsTrans) isClosed() bool {
	select {
	case <-self.done:
		return true
	default:
		return false
	}
}

func (self *WsTrans) run() {
	log := self.Logger.With(zap.String("url", self.Url.String()))

	for {
		err := self.receiveLoop()
		if self.isClosed() {
			return
		}
		log.Warn("disconnected from RPC node", zap.Error(err))

		for {
			log.Info("waiting before reconnecting", zap.Duration("interval", self.ReconnectInterval))

			select {
			case <-self.done:
				return
			case <-time.After(self.ReconnectInterval):
			}

			err := self.connect()
			if err == nil {
				log.Info("reconnected to RPC node")
				break
			}

			log.Warn("failed to connect to RPC node", zap.Error(err))
		}
	}
}

func (self *WsTrans) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(self.Url.String(), nil)
	if err != nil {
		return errors.WithStack(err)
	}

	self.connLock.Lock()
	self.conn = conn
	close(self.connected)
	self.connLock.Unlock()

	return nil
}

func (self *WsTrans) receiveLoop() error {
	self.connLock.RLock()
	conn := self.conn
	self.connLock.RUnlock()

	defer func() {
		self.connLock.Lock()
		self.connected = make(chan struct{})
		self.connLock.Unlock()
		conn.Close()
		self.failPending(errors.New("disconnected from RPC server"))
	}()

	/**
	Note: we receive and unmarshal separately. A receiving failure indicates
	a disconnect. An unmarshaling error indicates a malformed message, but
	not necessarily a connection problem.
	*/
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var body json.RawMessage
		res := rpcResponse{Result: &body}
		err = json.Unmarshal(payload, &res)
		if err != nil {
			self.Logger.Warn("failed to decode RPC message",
				zap.String("url", self.Url.String()), zap.Error(err))
			continue
		}

		// Messages without an ID are notices the node pushes on its own.
		if res.Id == "" {
			self.Logger.Debug("ignoring RPC notice", zap.ByteString("payload", payload))
			continue
		}

		// Note: `error((*RpcError)(nil)) != nil` !!!
		if res.Error != nil {
			err = errors.WithStack(*res.Error)
		}

		self.dispatch(res.Id, []byte(body), err)
	}
}

/*
Returns a channel that becomes closed when the transport is connected. If the
transport is currently connected, the channel is closed.
*/
func (self *WsTrans) Connected() chan struct{} {
	self.connLock.RLock()
	defer self.connLock.RUnlock()
	return self.connected
}

// Makes an RPC call.
func (self *WsTrans) Call(ctx context.Context, out interface{}, method string, params ...interface{}) (err error) {
	defer func(start time.Time) {
		self.Metrics.observe(metricMethod(method, params), start, err)
	}(time.Now())

	id := randomId()
	sub := make(chan either, 1)
	self.register(id, sub)
	defer self.unregister(id)

	err = self.send(id, method, params...)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case either, ok := <-sub:
		if !ok {
			return errors.New("disconnected from RPC server")
		}
		if either.err != nil {
			return either.err
		}
		if either.val == nil {
			return nil
		}
		return errors.WithStack(json.Unmarshal(either.val, out))
	}
}

func (self *WsTrans) send(id string, method string, params ...interface{}) error {
	self.connLock.RLock()
	conn := self.conn
	self.connLock.RUnlock()

	self.writeLock.Lock()
	defer self.writeLock.Unlock()
	err := conn.WriteJSON(rpcRequest{
		Jsonrpc: jsonRpcVersion,
		Id:      id,
		Method:  method,
		Params:  params,
	})
	return errors.WithStack(err)
}

func (self *WsTrans) register(id string, sub chan either) {
	self.pendingLock.Lock()
	self.pending[id] = sub
	self.pendingLock.Unlock()
}

func (self *WsTrans) unregister(id string) {
	self.pendingLock.Lock()
	delete(self.pending, id)
	self.pendingLock.Unlock()
}

func (self *WsTrans) dispatch(id string, val []byte, err error) {
	self.pendingLock.Lock()
	sub := self.pending[id]
	self.pendingLock.Unlock()

	if sub != nil {
		select {
		case sub <- either{val: val, err: err}:
		default:
		}
	}
}

func (self *WsTrans) failPending(err error) {
	self.pendingLock.Lock()
	defer self.pendingLock.Unlock()

	for _, sub := range self.pending {
		select {
		case sub <- either{err: err}:
		default:
		}
	}
	self.pending = map[string]chan either{}
}

var (
	rnd     = rand.New(rand.NewSource(time.Now().UnixNano()))
	rndLock sync.Mutex
)

// Tens of times faster than "crypto/rand". Request IDs only need to be unique
// among pending calls.
func randomId() string {
	var buf [16]byte
	rndLock.Lock()
	rnd.Read(buf[:])
	rndLock.Unlock()
	return HexEncode(buf[:])
}
