package main

import (
	"context"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/intcode/history"
	"github.com/chazu/intcode/manifest"
	"github.com/chazu/intcode/server"
)

// serve runs the machine server until ctx is done.
func serve(ctx context.Context, m *manifest.Manifest, recordHistory bool) error {
	opts := []server.ServerOption{
		server.WithMaxConcurrent(m.Server.MaxConcurrent),
		server.WithMaxSessions(m.Server.MaxSessions),
		server.WithMaxSteps(m.Server.MaxSteps),
	}
	if recordHistory {
		store, err := history.Open(m.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, server.WithHistory(store))
	}

	srv := server.New(opts...)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(m.Server.Addr)
	})
	if m.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", m.Server.GRPCAddr)
		if err != nil {
			srv.Stop()
			return err
		}
		g.Go(func() error {
			return srv.ServeGRPC(lis)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Notice("shutting down")
		srv.Stop()
		return nil
	})

	return g.Wait()
}
