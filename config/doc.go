// SPDX-License-Identifier: EPL-2.0

// Package config holds the immutable session configuration.
//
// A Session is filled once, from Default and command-line flags, validated,
// and then copied into every component. Nothing reads it after streaming
// starts.
package config
