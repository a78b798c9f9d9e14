package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"skilllink-client/internal/app"
	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/logger"
	"skilllink-client/internal/theme"
)

const usage = `usage: skilllink [--config PATH] [--log-level LEVEL] COMMAND [ARGS]

commands:
  login --email E --password P      sign in and remember the token
  register --name N --email E --password P --role R [--skills S --bio B --mentor]
  logout                            forget the saved token
  whoami                            current user and token expiry
  theme [toggle|light|dark]         show or change the theme
  dashboard                         role-aware overview
  jobs [--view V --q Q --skill S --status S]
  jobs create --title T --description D --budget N [--skills a,b]
  jobs apply JOB_ID
  proposals JOB_ID                  proposals received for one of your jobs
  proposals accept|reject APP_ID --job JOB_ID
  courses [--q Q --sort popular|price_asc|price_desc]
  courses create --title T --description D [--video URL --price N]
  courses enroll COURSE_ID
  applications [--status all|applied|accepted|rejected]
  profile [--name N --bio B --skills S --mentor=true|false]
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("skilllink", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", os.Getenv("CONFIG_PATH"), "config file")
	level := fs.String("log-level", "warn", "log level (logs go to stderr)")
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	cfg.Log.Level = *level
	log, cleanup := logger.FromConfig(cfg.Log, stderr)
	defer cleanup()

	pal := newPalette(stdout)
	a, err := app.New(cfg, log, app.Options{Probe: theme.TerminalProbe, Mirrors: []theme.Mirror{pal}, TraceOut: stderr})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := a.Start(ctx); err != nil {
		log.Warn("session bootstrap failed", zap.Error(err))
	}

	c := newCLI(a, stdout, pal)
	if err := c.dispatch(ctx, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}
