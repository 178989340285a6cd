package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/boz/bringup/net"
	"github.com/boz/bringup/net/client"
	"github.com/boz/bringup/params"
	"github.com/boz/bringup/version"
	"github.com/sirupsen/logrus"

	kingpin "gopkg.in/alecthomas/kingpin.v2"
)

const defaultFormat = "{{.Name}}\t{{.Kind}}\t{{.Status}}\t{{.URL}}"

var (
	flagHost = kingpin.Flag("host", "bringupd address. Default: "+net.DefaultConnectAddress).
			Short('H').
			Default(net.DefaultConnectAddress).
			String()

	flagTimeout = kingpin.Flag("timeout", "Request timeout").
			Default("2m").
			Duration()

	flagLogLevel = kingpin.Flag("log-level", "Log level (debug, info, warn, error).  Default: warn").
			Short('v').
			Default("warn").
			Enum("debug", "info", "warn", "error")

	listCmd    = kingpin.Command("list", "List services")
	listFormat = listCmd.Flag("format", "Template printed for each service").
			Short('f').
			Default(defaultFormat).
			String()

	getCmd    = kingpin.Command("get", "Show a service")
	getName   = getCmd.Arg("name", "service name").Required().String()
	getFormat = getCmd.Flag("format", "Template printed for the service").
			Short('f').
			Default(defaultFormat).
			String()

	resetCmd  = kingpin.Command("reset", "Reset a service to its template state")
	resetName = resetCmd.Arg("name", "service name").Required().String()

	snapshotCmd  = kingpin.Command("snapshot", "Use the current state of a service as its template")
	snapshotName = snapshotCmd.Arg("name", "service name").Required().String()

	waitCmd     = kingpin.Command("wait", "Wait for bringupd to answer")
	waitTimeout = waitCmd.Flag("wait-timeout", "How long to wait").
			Default("1m").
			Duration()
)

func main() {
	kingpin.CommandLine.Version(version.String())
	kingpin.HelpFlag.Short('h')
	kingpin.CommandLine.DefaultEnvars()

	command := kingpin.Parse()

	level, err := logrus.ParseLevel(*flagLogLevel)
	kingpin.FatalIfError(err, "Invalid log level")

	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	c, err := client.New(client.WithHost(*flagHost), client.WithLog(log))
	kingpin.FatalIfError(err, "client")

	timeout := *flagTimeout
	if command == waitCmd.FullCommand() && *waitTimeout > timeout {
		timeout = *waitTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch command {
	case listCmd.FullCommand():
		set, err := c.Service().List(ctx)
		kingpin.FatalIfError(err, "list")
		lines, err := set.Interpolate(*listFormat)
		kingpin.FatalIfError(err, "format")
		for _, line := range lines {
			fmt.Println(line)
		}

	case getCmd.FullCommand():
		p, err := c.Service().Get(ctx, *getName)
		kingpin.FatalIfError(err, "get %v", *getName)
		printParams(*p, *getFormat)

	case resetCmd.FullCommand():
		kingpin.FatalIfError(c.Service().Reset(ctx, *resetName), "reset %v", *resetName)

	case snapshotCmd.FullCommand():
		kingpin.FatalIfError(c.Service().Snapshot(ctx, *snapshotName), "snapshot %v", *snapshotName)

	case waitCmd.FullCommand():
		start := time.Now()
		kingpin.FatalIfError(c.WaitReady(ctx, *waitTimeout), "wait")
		log.WithField("elapsed", time.Since(start)).Info("ready")
	}
}

func printParams(p params.Params, format string) {
	line, err := p.Interpolate(format)
	kingpin.FatalIfError(err, "format")
	fmt.Println(line)
}
