// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sample = "# sccachectl key\n\n## Short description\n\nPrint the key\nfor the lockfile.\n\n## Quick examples\n\n```\n# Print the key\nsccachectl key\nsccachectl   key -o json\n```\n"

func TestParse(t *testing.T) {
	p := parse("key", sample)

	assert.Equal(t, "sccachectl key", p.Title)
	assert.Equal(t, "Print the key for the lockfile.", p.Short)
	assert.Equal(t, []example{
		{Desc: "Print the key", Cmd: "sccachectl key"},
		{Desc: "Example", Cmd: "sccachectl key -o json"},
	}, p.Examples)
}

func TestTLDR_Fallback(t *testing.T) {
	got := page{Cmd: "prune"}.TLDR()
	assert.Contains(t, got, "# sccachectl-prune\n")
	assert.Contains(t, got, "> sccachectl prune\n")
	assert.Contains(t, got, "`sccachectl prune --help`")
}
