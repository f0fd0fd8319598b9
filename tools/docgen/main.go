// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

// docgen turns docs/commands/<cmd>.md into a man page under
// docs/man/share/man1 and a tldr page under docs/tldr. The tldr page is built
// from the "Short description" paragraph and the "Quick examples" block,
// which is what `sccachectl <cmd> --tldr` shows once installed.

const (
	prog    = "sccachectl"
	homeURL = "https://github.com/staranto/sccachectl"
)

type page struct {
	Cmd      string
	Title    string
	Short    string
	Examples []example
}

type example struct {
	Desc string
	Cmd  string
}

func main() {
	var (
		repoRoot      string
		onlyIfChanged bool
	)
	flag.StringVar(&repoRoot, "root", ".", "repo root")
	flag.BoolVar(&onlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	commandsDir := filepath.Join(repoRoot, "docs", "commands")
	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")
	tldrOutDir := filepath.Join(repoRoot, "docs", "tldr")

	for _, d := range []string{manOutDir, tldrOutDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fatalf("creating %s: %v", d, err)
		}
	}

	entries, err := os.ReadDir(commandsDir)
	if err != nil {
		fatalf("reading commands dir %s: %v", commandsDir, err)
	}

	processed := 0
	for _, e := range entries {
		cmd, ok := strings.CutSuffix(e.Name(), ".md")
		if e.IsDir() || !ok {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(commandsDir, e.Name()))
		if err != nil {
			fatalf("reading %s: %v", e.Name(), err)
		}

		manPath := filepath.Join(manOutDir, fmt.Sprintf("%s-%s.1", prog, cmd))
		if err := writeFileIfChanged(manPath, md2man.Render(raw), onlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", cmd, err)
		}

		p := parse(cmd, string(raw))
		tldrPath := filepath.Join(tldrOutDir, fmt.Sprintf("%s-%s.md", prog, cmd))
		if err := writeFileIfChanged(tldrPath, []byte(p.TLDR()), onlyIfChanged); err != nil {
			fatalf("writing tldr page for %s: %v", cmd, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no command markdown found under %s", commandsDir)
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, data []byte, onlyIfChanged bool) error {
	if onlyIfChanged {
		old, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err == nil && bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(data)) {
			return nil
		}
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec
}

var h1Re = regexp.MustCompile(`(?m)^#\s+(.+)$`)

func parse(cmd, md string) page {
	p := page{Cmd: cmd}
	if m := h1Re.FindStringSubmatch(md); m != nil {
		p.Title = strings.TrimSpace(m[1])
	}
	p.Short = firstParagraph(section(md, "short description"))
	p.Examples = examples(section(md, "quick examples"))
	return p
}

// section returns the text after the heading containing name, up to the next
// heading.
func section(md, name string) string {
	idx := strings.Index(strings.ToLower(md), name)
	if idx < 0 {
		return ""
	}
	rest := md[idx:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	if next := regexp.MustCompile(`(?m)^## `).FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest
}

func firstParagraph(s string) string {
	var words []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			if len(words) > 0 {
				break
			}
			continue
		}
		words = append(words, ln)
	}
	return strings.Join(words, " ")
}

// examples reads the first fenced block. A "# text" line describes the
// command line that follows it.
func examples(s string) []example {
	_, code, ok := strings.Cut(s, "```")
	if !ok {
		return nil
	}
	if nl := strings.Index(code, "\n"); nl >= 0 {
		code = code[nl+1:]
	}
	code, _, _ = strings.Cut(code, "```")

	var exs []example
	desc := ""
	for _, ln := range strings.Split(code, "\n") {
		ln = strings.TrimSpace(ln)
		switch {
		case ln == "":
		case strings.HasPrefix(ln, "#"):
			desc = strings.TrimSpace(strings.TrimPrefix(ln, "#"))
		default:
			if desc == "" {
				desc = "Example"
			}
			exs = append(exs, example{Desc: desc, Cmd: strings.Join(strings.Fields(ln), " ")})
			desc = ""
		}
	}
	return exs
}

func (p page) TLDR() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s-%s\n\n", prog, p.Cmd)

	switch {
	case p.Short != "":
		fmt.Fprintf(&b, "> %s\n", p.Short)
	case p.Title != "":
		fmt.Fprintf(&b, "> %s\n", p.Title)
	default:
		fmt.Fprintf(&b, "> %s %s\n", prog, p.Cmd)
	}
	fmt.Fprintf(&b, "> More information: %s.\n", homeURL)

	exs := p.Examples
	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: prog + " " + p.Cmd + " --help"}}
	}
	for _, ex := range exs {
		fmt.Fprintf(&b, "\n- %s:\n\n`%s`\n", ex.Desc, ex.Cmd)
	}
	return b.String()
}
