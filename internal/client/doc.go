// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client composes the two execution contexts of the sync core.
//
// [App] is the foreground session: it owns the services the application
// calls, the connectivity monitor and the local listener that receives
// outcomes. [ReplayProcess] is the background worker run as a separate
// process; it shares only the local store with the session.
package client
