// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/sccachectl/internal/meta"
)

const bashCompletionScript = `# bash completion for sccachectl
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_sccachectl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "save restore dedupe key ls prune completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local lockfile="--root --pattern --timeout --tldr"
    local store="--backend -b --bucket --s3-prefix --region --profile --endpoint --local-dir --retries"

    case "$cmd" in
        save|restore)
            local opts="$lockfile $store --cache-dir --repo --token"
            ;;
        dedupe)
            local opts="$lockfile --repo --token"
            ;;
        key)
            local opts="$lockfile --output -o"
            ;;
        ls)
            local opts="$store --repo --token --prefix --color -c --filter -f --output -o --sort -s --titles -t --tldr"
            ;;
        prune)
            local opts="--local-dir --hours --tldr"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
            return 0
            ;;
        --backend|-b)
            COMPREPLY=( $(compgen -W "actions s3 local" -- "$cur") )
            return 0
            ;;
        --root|--cache-dir|--local-dir)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _sccachectl sccachectl
`

const zshCompletionScript = `#compdef sccachectl

_sccachectl() {
  local -a cmds
  cmds=(
    'save:save the sccache directory to the cache store'
    'restore:restore the sccache directory from the cache store'
    'dedupe:delete the cache entry for the current lockfile'
    'key:print the cache key for the current lockfile'
    'ls:list cache entries'
    'prune:delete old archives from the local store'
    'completion:generate shell completion script'
  )

  local -a lockfile store
  lockfile=(
    '--root[directory searched for the lockfile]:dir:_directories'
    '--pattern[lockfile glob]:pattern'
    '--timeout[operation timeout]:duration'
    '--tldr[show tldr page]'
  )
  store=(
    '(-b --backend)'{-b,--backend}'[cache store]:backend:(actions s3 local)'
    '--bucket[S3 bucket]:bucket'
    '--s3-prefix[object key prefix]:prefix'
    '--region[AWS region]:region'
    '--profile[AWS profile]:profile'
    '--endpoint[S3 endpoint]:url'
    '--local-dir[local store directory]:dir:_directories'
    '--retries[transfer retries]:n'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'sccachectl commands' cmds
    return
  fi

  case $words[2] in
    save|restore)
      _arguments $lockfile $store \
        '--cache-dir[sccache directory]:dir:_directories' \
        '--repo[owner/name]:repo' \
        '--token[GitHub token]:token'
      ;;
    dedupe)
      _arguments $lockfile '--repo[owner/name]:repo' '--token[GitHub token]:token'
      ;;
    key)
      _arguments $lockfile '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
      ;;
    ls)
      _arguments $store \
        '--repo[owner/name]:repo' \
        '--token[GitHub token]:token' \
        '--prefix[key prefix]:prefix' \
        '(-c --color)'{-c,--color}'[enable colored text]' \
        '(-f --filter)'{-f,--filter}'[filters to apply]:filters' \
        '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)' \
        '(-s --sort)'{-s,--sort}'[sort columns]:columns' \
        '(-t --titles)'{-t,--titles}'[show titles]'
      ;;
    prune)
      _arguments '--local-dir[local store directory]:dir:_directories' '--hours[age in hours]:hours'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _sccachectl sccachectl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	if shell == "" {
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	w := writer(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		fmt.Fprintln(os.Stderr, "usage: sccachectl completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "sccachectl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
