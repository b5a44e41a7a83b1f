package main

/**
Front-end process: receives chat commands, keeps the sessions and dispatches upload jobs
*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/forceu/uploadrelay/internal/bot"
	"github.com/forceu/uploadrelay/internal/dispatch"
	"github.com/forceu/uploadrelay/internal/environment"
	"github.com/forceu/uploadrelay/internal/environment/flagparser"
	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/logging"
	"github.com/forceu/uploadrelay/internal/messenger"
	"github.com/forceu/uploadrelay/internal/registry"
	"github.com/forceu/uploadrelay/internal/signalstore"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

const componentName = "Relay bot"

var osExit = os.Exit

// Main routine that is called on startup
func main() {
	passedFlags := flagparser.ParseFlags()
	showVersion(passedFlags)
	fmt.Println(componentName + " v" + environment.Version + " starting")

	env := environment.New()
	helper.CreateDir(env.ConfigDir)
	logging.Init(env.GetLogPath())
	if !env.IsGithubProvided() {
		fmt.Println("RELAY_GITHUB_TOKEN and RELAY_GITHUB_REPO (owner/repo) have to be set")
		osExit(1)
		return
	}

	api, err := messenger.Connect(env.BotToken, env.BotApiEndpoint)
	if err != nil {
		fmt.Println("Could not connect to the Bot API: " + err.Error())
		osExit(1)
		return
	}
	store, err := signalstore.Open(env.SignalUrl)
	if err != nil {
		fmt.Println("Could not open signal store: " + err.Error())
		osExit(1)
		return
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat := messenger.NewTelegram(api, env.EditsPerSecond)
	relayBot := bot.New(ctx, chat, registry.New(store), dispatch.FromEnvironment(&env), bot.Settings{
		IsAuthorized:        env.IsAuthorized,
		AnimationInterval:   env.AnimationInterval(),
		AnimationMaxUpdates: env.AnimationMaxUpdates,
	})
	logging.LogStartup(componentName)
	fmt.Println("Logged in as @" + api.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := api.GetUpdatesChan(updateConfig)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		relayBot.Poll(groupCtx, updates)
		return nil
	})
	group.Go(func() error {
		return relayBot.RunMaintenance(groupCtx, env.ReconcileInterval(), env.SessionMaxAge(), store)
	})
	<-ctx.Done()
	shutdown(api, relayBot, group)
}

func shutdown(api *tgbotapi.BotAPI, relayBot *bot.Bot, group *errgroup.Group) {
	fmt.Println("Shutting down...")
	logging.LogShutdown(componentName)
	api.StopReceivingUpdates()
	err := group.Wait()
	if err != nil {
		fmt.Println(err)
	}
	relayBot.Wait()
}

// showVersion prints the build information and exits, if requested
func showVersion(passedFlags flagparser.MainFlags) {
	if !passedFlags.ShowVersion {
		return
	}
	fmt.Println(componentName + " v" + environment.Version)
	fmt.Println()
	fmt.Println("Builder: " + environment.Builder)
	fmt.Println("Build Date: " + environment.BuildTime)
	info, ok := debug.ReadBuildInfo()
	if ok {
		fmt.Println("Go Version: " + info.GoVersion)
		parseBuildSettings(info.Settings)
	} else {
		fmt.Println("Go Version: unknown")
	}
	osExit(0)
}

func parseBuildSettings(infos []debug.BuildSetting) {
	lookups := make(map[string]string)
	lookups["vcs.revision"] = "Git Commit"
	lookups["vcs.time"] = "Git Commit Timestamp"
	lookups["GOARCH"] = "Architecture"
	lookups["GOOS"] = "Operating System"

	for key, value := range lookups {
		result := "Not found"
		for _, buildSetting := range infos {
			if buildSetting.Key == key {
				result = buildSetting.Value
				break
			}
		}
		fmt.Println(value + ": " + result)
	}
}
