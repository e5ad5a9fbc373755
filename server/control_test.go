package server

import (
	"fmt"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func echoProcessor(req Request) (Response, error) {
	switch r := req.(type) {
	case InitServer:
		return ServerStarted{}, nil
	case StopServer:
		return ServerStopped{}, nil
	case TerminateServer:
		return ServerTerminated{}, nil
	case TerminateClient:
		if r.ClientID == 0 {
			return nil, fmt.Errorf("client 0 is reserved")
		}
		return ClientTerminated{ClientID: r.ClientID}, nil
	case GetClients:
		return ClientList{}, nil
	default:
		return nil, fmt.Errorf("unknown request %T", req)
	}
}

func recvResponse(t *testing.T, responses <-chan Response) Response {
	t.Helper()
	select {
	case resp := <-responses:
		return resp
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for response")
		return nil
	}
}

func TestControlListenerFIFO(t *testing.T) {
	requests := make(chan Request, 16)
	responses := make(chan Response, 16)
	l := NewControlListener(requests, responses)
	l.SetProcessor(echoProcessor)
	handle := l.Listen(10 * time.Millisecond)
	defer func() {
		handle.ScheduleShutdown()
		handle.Wait()
	}()

	reqs := []Request{
		InitServer{},
		TerminateClient{ClientID: 7},
		GetClients{},
		TerminateClient{ClientID: 9},
		StopServer{},
	}
	for _, req := range reqs {
		requests <- req
	}

	want := []Response{
		ServerStarted{},
		ClientTerminated{ClientID: 7},
		ClientList{},
		ClientTerminated{ClientID: 9},
		ServerStopped{},
	}
	for _, w := range want {
		got := recvResponse(t, responses)
		assert.DeepEqual(t, got, w)
	}
}

func TestControlListenerErrorResponse(t *testing.T) {
	requests := make(chan Request, 1)
	responses := make(chan Response, 1)
	l := NewControlListener(requests, responses)
	l.SetProcessor(echoProcessor)
	handle := l.Listen(10 * time.Millisecond)
	defer func() {
		handle.ScheduleShutdown()
		handle.Wait()
	}()

	requests <- TerminateClient{ClientID: 0}
	resp := recvResponse(t, responses)
	errResp, ok := resp.(Error)
	assert.Assert(t, ok, "expected Error, got %T", resp)
	assert.Equal(t, errResp.Message, "client 0 is reserved")

	// The listener keeps serving after a processing error.
	requests <- InitServer{}
	assert.DeepEqual(t, recvResponse(t, responses), Response(ServerStarted{}))
}

func TestControlListenerWaitsForProcessor(t *testing.T) {
	requests := make(chan Request, 1)
	responses := make(chan Response, 1)
	l := NewControlListener(requests, responses)
	handle := l.Listen(10 * time.Millisecond)
	defer func() {
		handle.ScheduleShutdown()
		handle.Wait()
	}()

	requests <- InitServer{}

	// No processor yet: the request must stay unanswered.
	select {
	case resp := <-responses:
		t.Fatalf("got %T before processor was installed", resp)
	case <-time.After(100 * time.Millisecond):
	}

	l.SetProcessor(echoProcessor)
	assert.DeepEqual(t, recvResponse(t, responses), Response(ServerStarted{}))
}

func TestControlListenerShutdownWithoutProcessor(t *testing.T) {
	requests := make(chan Request)
	responses := make(chan Response)
	l := NewControlListener(requests, responses)
	handle := l.Listen(10 * time.Millisecond)

	handle.ScheduleShutdown()
	done := make(chan struct{})
	go func() {
		handle.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not shut down")
	}
}

func TestSetProcessorTwicePanics(t *testing.T) {
	l := NewControlListener(make(chan Request), make(chan Response))
	l.SetProcessor(echoProcessor)

	defer func() {
		assert.Assert(t, recover() != nil, "second SetProcessor must panic")
	}()
	l.SetProcessor(echoProcessor)
}

func TestResponseMatches(t *testing.T) {
	tests := []struct {
		req  Request
		resp Response
		want bool
	}{
		{InitServer{}, ServerStarted{}, true},
		{InitServer{}, ServerStopped{}, false},
		{StopServer{}, ServerStopped{}, true},
		{TerminateServer{}, ServerTerminated{}, true},
		{TerminateClient{ClientID: 1}, ClientTerminated{ClientID: 1}, true},
		{TerminateClient{ClientID: 1}, ServerTerminated{}, false},
		{GetClients{}, ClientList{}, true},
		{GetClients{}, ServerStarted{}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, responseMatches(tt.req, tt.resp), tt.want,
			"%T / %T", tt.req, tt.resp)
	}
}
