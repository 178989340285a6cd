package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boz/bringup/config"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/net"
	"github.com/boz/bringup/net/server"
	"github.com/boz/bringup/serviceset"
	"github.com/boz/bringup/version"
	"github.com/sirupsen/logrus"

	_ "github.com/boz/bringup/builtin"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

const shutdownTimeout = time.Minute

var (
	listenAddress = kingpin.Flag("listen-address", "Listen address. Default: "+net.DefaultListenAddress).
			Short('l').
			Default(net.DefaultListenAddress).
			String()

	serviceFiles = kingpin.Flag("service", "service config file").
			Short('s').
			Required().
			ExistingFiles()

	flagFormat = kingpin.Flag("format", "Template printed for each service once started, e.g. '{{.Name}}={{.URL}}'").
			Short('f').
			String()

	flagLogLevel = kingpin.Flag("log-level", "Log level (debug, info, warn, error).  Default: info").
			Short('v').
			Default("info").
			Enum("debug", "info", "warn", "error")

	flagLogFile = kingpin.Flag("log-file", "Log file.  Default: /dev/stderr").
			Default("/dev/stderr").
			String()
)

func main() {

	kingpin.CommandLine.Version(version.String())
	kingpin.HelpFlag.Short('h')
	kingpin.CommandLine.DefaultEnvars()

	kingpin.Parse()

	log, ctx := createLog()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopch := handleSignals(ctx, cancel)

	configs, err := config.ReadServiceFiles(log, *serviceFiles...)
	kingpin.FatalIfError(err, "reading service config")

	set, err := serviceset.New(ctx, log, configs)
	kingpin.FatalIfError(err, "starting services")

	if *flagFormat != "" {
		if err := printServices(ctx, set); err != nil {
			log.WithError(err).Error("printing services")
		}
	}

	opts := []server.Opt{
		server.WithAddress(*listenAddress),
		server.WithServiceSet(set),
		server.WithLog(log),
	}

	sdonech := make(chan struct{})
	srv, err := server.New(opts...)
	if err != nil {
		kingpin.Errorf("can't create server: %v", err)
		close(sdonech)
		goto done
	}

	go func() {
		defer close(sdonech)
		if err := srv.Run(); err != nil {
			log.WithError(err).Warn("server run")
		}
	}()

	select {
	case <-sdonech:
		log.Info("server done")
	case <-stopch:
		log.Info("shutdown requested")
		srv.Close()
		<-sdonech
	}

done:

	log.Info("shutting down services...")

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()

	if err := set.Shutdown(sctx); err != nil {
		log.WithError(err).Warn("service shutdown")
	}

	cancel()
	<-stopch
}

func printServices(ctx context.Context, set serviceset.ServiceSet) error {
	ps, err := set.List(ctx)
	if err != nil {
		return err
	}
	lines, err := ps.Interpolate(*flagFormat)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) <-chan struct{} {
	donech := make(chan struct{})
	go func() {
		defer close(donech)

		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM)
		defer signal.Stop(sigch)

		select {
		case <-ctx.Done():
		case <-sigch:
		}
	}()
	return donech
}

func createLog() (logrus.FieldLogger, context.Context) {

	level, err := logrus.ParseLevel(*flagLogLevel)
	kingpin.FatalIfError(err, "Invalid log level")

	file, err := os.OpenFile(*flagLogFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	kingpin.FatalIfError(err, "Error opening log file")

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(file)

	return logger, log.NewContext(context.Background(), logger)
}
