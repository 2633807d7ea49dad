package main

import (
	"os"

	"feastsched/internal/cli"
	appLog "feastsched/internal/log"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		appLog.Error("feastsched failed", err)
		os.Exit(1)
	}
}
