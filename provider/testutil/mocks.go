package testutil

import (
	"context"
	"sync"
	"time"

	"carechat/provider"
)

// StreamFunc is the behaviour of MockClient.Stream.
type StreamFunc func(ctx context.Context, req provider.Request, cb provider.Callbacks)

// MockClient implements provider.Client for testing
type MockClient struct {
	// Configurable responses
	StreamFunc     StreamFunc
	CompleteFunc   func(ctx context.Context, req provider.Request) (string, error)
	ListModelsFunc func(ctx context.Context) ([]provider.ModelInfo, error)

	mu       sync.Mutex
	requests []provider.Request
}

// NewMockClient creates a mock client that streams "Mock response".
func NewMockClient() *MockClient {
	mock := &MockClient{}
	mock.StreamFunc = ScriptedStream("Mock ", "response")
	mock.CompleteFunc = mock.defaultComplete
	mock.ListModelsFunc = mock.defaultListModels
	return mock
}

func (m *MockClient) defaultComplete(ctx context.Context, req provider.Request) (string, error) {
	return "Mock response", nil
}

func (m *MockClient) defaultListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{
		{Name: "mock-model-1", Provider: "mock"},
		{Name: "mock-model-2", Provider: "mock"},
	}, nil
}

func (m *MockClient) Stream(ctx context.Context, req provider.Request, cb provider.Callbacks) {
	m.record(req)
	m.StreamFunc(ctx, req, cb)
}

func (m *MockClient) Complete(ctx context.Context, req provider.Request) (string, error) {
	m.record(req)
	return m.CompleteFunc(ctx, req)
}

func (m *MockClient) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockClient) Name() string {
	return "mock"
}

// Requests returns every request the mock has received, oldest first.
func (m *MockClient) Requests() []provider.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.Request(nil), m.requests...)
}

func (m *MockClient) record(req provider.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// ScriptedStream delivers deltas in order and then completes.
func ScriptedStream(deltas ...string) StreamFunc {
	return func(ctx context.Context, req provider.Request, cb provider.Callbacks) {
		for _, d := range deltas {
			if ctx.Err() != nil {
				return
			}
			cb.OnDelta(d)
		}
		if ctx.Err() == nil {
			cb.OnComplete()
		}
	}
}

// FailingStream delivers deltas in order and then fails with err.
func FailingStream(err error, deltas ...string) StreamFunc {
	return func(ctx context.Context, req provider.Request, cb provider.Callbacks) {
		for _, d := range deltas {
			if ctx.Err() != nil {
				return
			}
			cb.OnDelta(d)
		}
		if ctx.Err() == nil {
			cb.OnError(err)
		}
	}
}

type streamEvent struct {
	delta    string
	complete bool
	err      error
	done     chan struct{}
}

// StreamController lets a test drive a stream step by step. Each Delta,
// Complete or Fail call returns once the callback has run.
type StreamController struct {
	started chan struct{}
	events  chan streamEvent

	mu sync.Mutex
	cb provider.Callbacks
}

func NewStreamController() *StreamController {
	return &StreamController{
		started: make(chan struct{}, 16),
		events:  make(chan streamEvent),
	}
}

// Func returns the StreamFunc to install on a MockClient. The stream stays
// open until the test completes or fails it, or ctx is cancelled.
func (s *StreamController) Func() StreamFunc {
	return func(ctx context.Context, req provider.Request, cb provider.Callbacks) {
		s.mu.Lock()
		s.cb = cb
		s.mu.Unlock()
		s.started <- struct{}{}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-s.events:
				switch {
				case ev.err != nil:
					cb.OnError(ev.err)
				case ev.complete:
					cb.OnComplete()
				default:
					cb.OnDelta(ev.delta)
				}
				close(ev.done)
				if ev.err != nil || ev.complete {
					return
				}
			}
		}
	}
}

// WaitStarted blocks until a stream has begun or the timeout elapses.
func (s *StreamController) WaitStarted(timeout time.Duration) bool {
	select {
	case <-s.started:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *StreamController) Delta(text string) {
	s.send(streamEvent{delta: text})
}

func (s *StreamController) Complete() {
	s.send(streamEvent{complete: true})
}

func (s *StreamController) Fail(err error) {
	s.send(streamEvent{err: err})
}

// Callbacks returns the raw callbacks of the most recent stream, for tests
// that simulate a client delivering events after cancellation.
func (s *StreamController) Callbacks() provider.Callbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb
}

func (s *StreamController) send(ev streamEvent) {
	ev.done = make(chan struct{})
	s.events <- ev
	<-ev.done
}
