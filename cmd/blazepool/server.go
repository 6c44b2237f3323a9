package main

import (
	"context"
	"time"

	"github.com/GoBlaze/blazepool"
	"github.com/GoBlaze/blazepool/parkinglot"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func statsHandler(sched *blazepool.Scheduler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !ctx.IsGet() {
			ctx.Error("method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}
		ctx.SetContentType("text/plain; charset=utf-8")

		switch string(ctx.Path()) {
		case "/stats":
			ctx.WriteString(sched.Stats().String())
		case "/parkinglot":
			if _, err := parkinglot.Dump(ctx); err != nil {
				ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
			}
		default:
			ctx.Error("not found", fasthttp.StatusNotFound)
		}
	}
}

// serveStats serves the stats endpoints on addr until ctx is done.
func serveStats(ctx context.Context, addr string, sched *blazepool.Scheduler, log *logrus.Logger) error {
	ln, err := listen(addr)
	if err != nil {
		return err
	}

	server := &fasthttp.Server{
		Handler:     statsHandler(sched),
		Name:        "blazepool",
		ReadTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()
	log.Infof("Listening on: http://%s/stats", ln.Addr())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}
