// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/sccachectl/internal/command"
	"github.com/staranto/sccachectl/internal/config"
	mylog "github.com/staranto/sccachectl/internal/log"
	"github.com/staranto/sccachectl/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		log.WithError(err).Error(args[1] + " failed")
		return 2
	}

	return 0
}

// mangleArguments splices a named arg set from the config file in right after
// the command. "@name" on the command line selects <command>.<name>, otherwise
// <command>.defaults is used when present. Later args win, so anything typed
// on the command line overrides the set.
func mangleArguments(args []string) []string {
	// The first two args are the executable and the command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	set := "defaults"
	rest := make([]string, 0, len(args)-2)
	for _, a := range args[2:] {
		if name, ok := strings.CutPrefix(a, "@"); ok && name != "" {
			set = name
			continue
		}
		rest = append(rest, a)
	}

	var setArgs []string
	values, _ := config.GetStringSlice(args[1] + "." + set)
	for _, v := range values {
		setArgs = append(setArgs, strings.Fields(v)...)
	}

	log.Debugf("set=%s, args=%v", set, setArgs)
	out := append(preamble, setArgs...) //nolint:gocritic
	return append(out, rest...)
}
