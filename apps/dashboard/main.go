package main

import (
	"log"
	"os"

	"github.com/Yasheenyash33/StacklyHub-main-main/core"
	"github.com/Yasheenyash33/StacklyHub-main-main/core/state"
	backendsvc "github.com/Yasheenyash33/StacklyHub-main-main/services/backend"
	logsvc "github.com/Yasheenyash33/StacklyHub-main-main/services/logger"
	pushsvc "github.com/Yasheenyash33/StacklyHub-main-main/services/push"
	"github.com/Yasheenyash33/StacklyHub-main-main/storage/local"
)

func main() {
	std := log.New(os.Stderr, "", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(std, core.Conf)

	creds, err := local.Default()
	if err != nil {
		std.Fatal(err)
	}

	store := state.New(&state.Options{
		Backend:     backendsvc.NewClient(core.Conf.APIBaseURL, logger),
		Credentials: creds,
		Logger:      logger,
		Push:        pushsvc.Factory(core.Conf.WSURL, logger),
	})

	cli := &commandLine{store: store, out: os.Stdout}
	if err := cli.run(os.Args); err != nil && err != errHelp {
		std.Fatal(err)
	}
}
