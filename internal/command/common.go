// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/sccachectl/internal/backend"
	"github.com/staranto/sccachectl/internal/github"
	"github.com/staranto/sccachectl/internal/meta"
	"github.com/staranto/sccachectl/internal/sccache"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr sccachectl <subcmd>` and returns true so the caller can exit
// early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "sccachectl", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// CommandBuilder constructs the subcommands in a consistent way: metadata,
// the tldr flag, flag validation and an optional --timeout deadline around
// the action.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags: append(cb.Flags, tldrFlag),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log.Debugf("executing %v", GetMeta(cmd).Args)
			if ShortCircuitTLDR(ctx, cmd, cb.Name) {
				return nil
			}
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()
			return cb.Action(ctx, cmd)
		},
	}
}

func withTimeout(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	if d := cmd.Duration("timeout"); d > 0 {
		log.Debugf("timeout: %s", d)
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// repoOf parses --repo. The error is kept rather than returned so commands
// that can run without a repo still do.
func repoOf(cmd *cli.Command) (github.Repo, error) {
	return github.ParseRepo(cmd.String("repo"))
}

// backendOptions collects the store flags of cmd.
func backendOptions(cmd *cli.Command, repo github.Repo) backend.Options {
	return backend.Options{
		Type:     cmd.String("backend"),
		Repo:     repo,
		Token:    cmd.String("token"),
		APIURL:   cmd.String("api-url"),
		Retries:  cmd.Int("retries"),
		Bucket:   cmd.String("bucket"),
		Region:   cmd.String("region"),
		Profile:  cmd.String("profile"),
		Endpoint: cmd.String("endpoint"),
		Prefix:   cmd.String("s3-prefix"),
		LocalDir: cmd.String("local-dir"),
	}
}

// NewOperations wires sccache.Operations to the flags of cmd. The store and
// deleter are only built when an operation gets that far.
func NewOperations(cmd *cli.Command) *sccache.Operations {
	repo, repoErr := repoOf(cmd)
	if repoErr != nil {
		log.WithError(repoErr).Debug("no repository")
	}

	return &sccache.Operations{
		Settings: sccache.Settings{
			CacheDir: cmd.String("cache-dir"),
			Token:    cmd.String("token"),
			Repo:     repo,
			Root:     cmd.String("root"),
			Pattern:  cmd.String("pattern"),
		},
		NewStore: func(ctx context.Context) (sccache.Store, error) {
			st, err := backend.New(ctx, backendOptions(cmd, repo))
			if err != nil {
				return nil, err
			}
			log.Debugf("store: %s", st)
			return st, nil
		},
		NewDeleter: func(token string) (sccache.Deleter, error) {
			if repoErr != nil {
				return nil, repoErr
			}
			return github.NewClient(token, github.WithAPIURL(cmd.String("api-url")))
		},
	}
}

// writer returns where command output goes.
func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// colorOf honors an explicit --color/--no-color and otherwise colors only
// when stdout is a terminal.
func colorOf(cmd *cli.Command) bool {
	if cmd.IsSet("color") {
		return cmd.Bool("color")
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
