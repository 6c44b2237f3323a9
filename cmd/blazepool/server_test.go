package main

import (
	"context"
	"strings"
	"testing"

	"github.com/GoBlaze/blazepool"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func newScheduler(t *testing.T) *blazepool.Scheduler {
	t.Helper()
	s, err := blazepool.New(blazepool.Config{NumThreads: 2, LogLevel: "fatal"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func request(h fasthttp.RequestHandler, method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	h(&ctx)
	return &ctx
}

func TestStatsHandler(t *testing.T) {
	s := newScheduler(t)
	if err := s.ParallelFor(context.Background(), 0, 4, func(context.Context, int) error { return nil }); err != nil {
		t.Fatalf("ParallelFor: %v", err)
	}
	h := statsHandler(s)

	tests := []struct {
		method, path string
		status       int
		body         string
	}{
		{fasthttp.MethodGet, "/stats", fasthttp.StatusOK, `task "parallel_for" calls=4`},
		{fasthttp.MethodGet, "/parkinglot", fasthttp.StatusOK, "parked "},
		{fasthttp.MethodGet, "/nope", fasthttp.StatusNotFound, "not found"},
		{fasthttp.MethodPost, "/stats", fasthttp.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		ctx := request(h, tt.method, tt.path)
		if got := ctx.Response.StatusCode(); got != tt.status {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, got, tt.status)
		}
		if body := string(ctx.Response.Body()); !strings.Contains(body, tt.body) {
			t.Errorf("%s %s: body %q does not contain %q", tt.method, tt.path, body, tt.body)
		}
	}
}

func TestWorkloads(t *testing.T) {
	w := &workloads{sched: newScheduler(t), log: logrus.New()}
	w.log.SetLevel(logrus.ErrorLevel)
	if err := w.run(context.Background(), 200, 3, 4); err != nil {
		t.Fatalf("run: %v", err)
	}
}
