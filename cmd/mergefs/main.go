// Command mergefs mounts a merged view of several backing directories at a
// single mount point.
//
// Usage:
//
//	mergefs [--debug] [--allow-other] <label>=<root-path> [<label>=<root-path> ...] <mount-point>
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mergefs/mergefs/internal/dispatch"
	"github.com/mergefs/mergefs/internal/fuseadapter"
	"github.com/mergefs/mergefs/internal/rootset"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mergefs:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fset := flag.NewFlagSet("mergefs", flag.ContinueOnError)
	debug := fset.Bool("debug", false, "enable FUSE request tracing")
	allowOther := fset.Bool("allow-other", false, "allow users other than the mounting uid to access the merged view")
	if err := fset.Parse(args); err != nil {
		return err
	}

	rest := fset.Args()
	if len(rest) < 2 {
		return errors.New("usage: mergefs [--debug] [--allow-other] <label>=<root-path> [<label>=<root-path> ...] <mount-point>")
	}
	mountpoint := rest[len(rest)-1]
	rootArgs := rest[:len(rest)-1]

	labels := make([]byte, 0, len(rootArgs))
	paths := make([]string, 0, len(rootArgs))
	for _, a := range rootArgs {
		label, path, ok := strings.Cut(a, "=")
		if !ok || len(label) != 1 {
			return fmt.Errorf("invalid root argument %q: want <label>=<root-path>", a)
		}
		labels = append(labels, label[0])
		paths = append(paths, path)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	reg, err := rootset.New(labels, paths)
	if err != nil {
		return err
	}
	for _, r := range reg.All() {
		logger.Info("mounting backing root", "root", r.String())
	}

	engine := dispatch.New(reg, logger)
	server, err := fuseadapter.Mount(mountpoint, engine, logger, *debug, *allowOther)
	if err != nil {
		return fmt.Errorf("mount %s: %w", mountpoint, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("received shutdown signal, unmounting", "mountpoint", mountpoint)
		server.Unmount()
	}()

	server.Wait()
	return nil
}
