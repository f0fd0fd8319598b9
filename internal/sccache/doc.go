// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package sccache implements the save, restore and deduplicate operations
// for the lockfile keyed sccache entry. Settings are resolved by the caller
// and the store and deleter are injected, so nothing here reads the process
// environment.
package sccache
