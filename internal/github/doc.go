// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package github is a small client for the GitHub REST endpoints that manage
// Actions cache entries.
package github
