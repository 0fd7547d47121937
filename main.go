package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

const version = "0.1.0"

var configFlag = cli.StringFlag{
	Name:   "config, c",
	Usage:  "json config file",
	EnvVar: "ETIMER_CONFIG",
}

var runFlags = []cli.Flag{
	configFlag,
	cli.StringFlag{
		Name:  "only",
		Usage: "arm only the jobs whose name has this prefix",
	},
	cli.BoolFlag{
		Name:  "coarse",
		Usage: "second resolution instead of millisecond",
	},
	cli.IntFlag{
		Name:  "log-level",
		Usage: "0 fatal .. 6 trace",
	},
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "etimer"
	app.HelpName = "etimer"
	app.Usage = "run timer jobs on a SIGALRM driven event loop"
	app.UsageText = "etimer <command> [arguments...]"
	app.Version = version
	app.Commands = []cli.Command{
		{
			Name:    "run",
			Aliases: []string{"r"},
			Usage:   "arm the configured jobs and run until all of them finish",
			Action:  runJobs,
			Flags:   runFlags,
		},
		{
			Name:    "jobs",
			Aliases: []string{"l"},
			Usage:   "list the configured jobs",
			Action:  listJobs,
			Flags:   []cli.Flag{configFlag},
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "etimer: %s\n", err.Error())
		os.Exit(1)
	}
}
