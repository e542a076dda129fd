package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/3axap4eHko/litra/internal/cli"
	"github.com/3axap4eHko/litra/internal/config"
	"github.com/3axap4eHko/litra/internal/device"
	"github.com/3axap4eHko/litra/internal/gui"
	"github.com/3axap4eHko/litra/internal/litra"
	"github.com/3axap4eHko/litra/internal/models"
	"github.com/3axap4eHko/litra/internal/repos"
	"github.com/3axap4eHko/litra/internal/schedule"
	"github.com/3axap4eHko/litra/internal/state"
)

func main() {
	// on a bad flag pflag has already written the error and usage to stderr
	flags, err := cli.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(cli.ExitUsage)
	}

	if flags.HasCommands() {
		os.Exit(runHeadless(flags))
	}
	runShell()
}

// runHeadless applies the flags once and exits, logging to stderr so the
// JSON status on stdout stays clean.
func runHeadless(flags *cli.Flags) int {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:      config.LogLevelFromEnv(),
		TimeFormat: "2006/01/02 15:04:05",
	})

	config.ReadConfig(logger)

	store, closeStore := openStore(logger)
	defer closeStore()

	open := device.OpenFunc(func() (device.Lamp, error) {
		return device.Open(logger)
	})
	ss := schedule.NewScheduleService(logger)

	runner := cli.NewRunner(logger, open, store, ss, os.Stdout)
	return runner.Run(flags)
}

func runShell() {
	logFile := "logs/litra.log"
	if p, err := config.LogPath(); err == nil {
		logFile = p
	}
	logger := log.NewWithOptions(&lumberjack.Logger{
		Filename: logFile,
		MaxAge:   3,
	}, log.Options{
		Level:      config.LogLevelFromEnv(),
		TimeFormat: "2006/01/02 15:04:05",
	})
	logger.Info("litra starting")

	cfg := config.ReadConfig(logger)

	store, closeStore := openStore(logger)
	defer closeStore()

	// seed the mirror with the last saved settings
	initial := models.DefaultState()
	if saved, found, err := store.Load(); err == nil && found {
		initial = saved
	}
	cell := state.NewCell(initial)

	open := device.OpenFunc(func() (device.Lamp, error) {
		return device.Open(logger)
	})
	ctrl := litra.NewController(logger, open, store, cell, cfg.ReconnectInterval)
	ss := schedule.NewScheduleService(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quitChannel
		logger.Info("litra is closing")
		cancel()
	}()

	go ctrl.Run(ctx)

	shell := gui.NewShell(logger, cfg, ctrl, cell, ss)
	shell.Run(ctx)
}

type settingsStore interface {
	Load() (models.DeviceState, bool, error)
	Save(s models.DeviceState) error
}

// nullStore stands in when the settings db is unavailable.
type nullStore struct{}

func (nullStore) Load() (models.DeviceState, bool, error) { return models.DeviceState{}, false, nil }
func (nullStore) Save(models.DeviceState) error           { return nil }

// openStore is best effort: the lamp still works without persistence.
func openStore(logger *log.Logger) (settingsStore, func()) {
	dbPath, err := config.DBPath()
	if err != nil {
		logger.Errorf("resolving settings path: %v", err)
		return nullStore{}, func() {}
	}
	db, err := repos.OpenDB(dbPath)
	if err != nil {
		logger.Errorf("opening settings db: %v", err)
		return nullStore{}, func() {}
	}
	store, err := repos.NewSettingsRepo(logger, db)
	if err != nil {
		logger.Errorf("initialising settings db: %v", err)
		db.Close()
		return nullStore{}, func() {}
	}
	return store, func() { db.Close() }
}
