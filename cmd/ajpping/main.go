// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

// Command ajpping measures CPING/CPONG round trips to an AJP container.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/linkdata/ajp"
	"github.com/pkg/profile"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type stats struct {
	mu    sync.Mutex
	count int
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func (s *stats) add(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 || d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
	s.count++
	s.total += d
}

func (s *stats) String() string {
	if s.count == 0 {
		return "no replies"
	}
	return fmt.Sprintf("%d replies, min/avg/max = %v/%v/%v", s.count, s.min, s.total/time.Duration(s.count), s.max)
}

func pinger(ctx context.Context, addr string, count int, timeout time.Duration, netLog bool, st *stats) error {
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return err
	}
	c := ajp.NewConn(nc)
	defer c.Close()
	c.ReadTimeout = timeout
	c.WriteTimeout = timeout
	c.NetLog(netLog)
	for i := 0; i < count; i++ {
		d, err := c.Ping(ctx)
		if err != nil {
			return err
		}
		st.add(d)
	}
	return nil
}

func run() int {
	count := flag.IntP("count", "n", 4, "number of pings per connection")
	concurrency := flag.IntP("concurrency", "c", 1, "number of connections")
	timeout := flag.DurationP("timeout", "t", ajp.DefaultReadTimeout, "dial, read and write timeout")
	verbose := flag.BoolP("verbose", "v", false, "log every packet")
	cpuProfile := flag.Bool("profile", false, "write cpu profile to file")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: ajpping [flags] host:port")
		flag.PrintDefaults()
		return 2
	}
	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	if *cpuProfile {
		defer profile.Start(profile.Quiet).Stop()
	}

	st := &stats{}
	grp, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < *concurrency; i++ {
		grp.Go(func() error {
			return pinger(ctx, args[0], *count, *timeout, *verbose, st)
		})
	}
	err := grp.Wait()
	fmt.Println(args[0] + ": " + st.String())
	if err != nil {
		slog.Error("ping failed", "addr", args[0], "error", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
