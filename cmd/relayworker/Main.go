package main

/**
Worker process: runs a single upload job, started by the job runner
*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/forceu/uploadrelay/internal/configuration/hostingconfig"
	"github.com/forceu/uploadrelay/internal/environment"
	"github.com/forceu/uploadrelay/internal/environment/flagparser"
	"github.com/forceu/uploadrelay/internal/fetcher"
	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/models"
	"github.com/forceu/uploadrelay/internal/orchestrator"
	"github.com/forceu/uploadrelay/internal/signalstore"
	"github.com/forceu/uploadrelay/internal/uploader"
)

const componentName = "Relay worker"

var osExit = os.Exit

// Main routine that is called on startup
func main() {
	passedFlags := flagparser.ParseFlags()
	if passedFlags.ShowVersion {
		fmt.Println(componentName + " v" + environment.Version)
		fmt.Println("Builder: " + environment.Builder)
		fmt.Println("Build Date: " + environment.BuildTime)
		osExit(0)
		return
	}

	env := environment.New()
	helper.CreateDir(env.ConfigDir)
	logging.Init(env.GetLogPath())
	logging.LogStartup(componentName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	exitCode := run(ctx, &env)
	stop()
	logging.LogShutdown(componentName)
	osExit(exitCode)
}

// run processes the job described by the env variables and returns the exit code of the process.
// Every failure that happens after the payload was read is reported in the status message
func run(ctx context.Context, env *environment.Environment) int {
	payload, err := orchestrator.ParsePayload(env.WorkflowData, env.SessionId, env.Service)
	store, storeErr := signalstore.Open(env.SignalUrl)
	if storeErr == nil {
		defer store.Close()
	}
	api, connectErr := messenger.Connect(env.BotToken, env.BotApiEndpoint)
	if connectErr != nil {
		fmt.Println("Could not connect to the Bot API: " + connectErr.Error())
		if storeErr != nil {
			logging.LogWarning("Could not connect to the Bot API: " + connectErr.Error())
			return 1
		}
		orchestrator.ReportInitFailure(ctx, nil, store, payload, fmt.Errorf("%w: bot api: %v", orchestrator.ErrInitialization, connectErr))
		return 1
	}
	chat := messenger.NewTelegram(api, env.EditsPerSecond)

	if storeErr != nil {
		orchestrator.ReportInitFailure(ctx, chat, nil, payload, fmt.Errorf("%w: signal store: %v", orchestrator.ErrInitialization, storeErr))
		return 1
	}
	if err != nil {
		orchestrator.ReportInitFailure(ctx, chat, store, payload, err)
		return 1
	}

	credentials, ok := hostingconfig.Load()
	if !ok {
		fmt.Println("No hosting credentials found, uploading anonymously")
	}
	worker := orchestrator.Orchestrator{
		Messenger:        chat,
		Fetcher:          fetcher.New(api, env.BotApiEndpoint, env.DownloadDir, env.MaxBandwidthKB),
		Uploaders:        uploader.New(credentials, uploader.DefaultEndpoints()),
		Signals:          store,
		ProgressInterval: env.ProgressInterval(),
		Console:          os.Stderr,
	}
	report := worker.Run(ctx, payload)
	return exitCode(report)
}

func exitCode(report models.TransferReport) int {
	if report.Status == models.StatusFailed {
		return 1
	}
	return 0
}
