// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package backend builds the cache store selected with --backend. The
// implementations live in the actions, s3 and local subpackages.
package backend
