// SPDX-License-Identifier: EPL-2.0

package config

import "strings"

// SourceKind is what feeds the render side of a session.
type SourceKind int

const (
	// SourceNone renders nothing; the session only records its capture.
	SourceNone SourceKind = iota
	SourceLoopback
	SourceGenerator
	SourceFile
	SourceCancel
)

// Selector keywords accepted by ParseSource. Anything else is a file path.
const (
	KeywordLoopback = "loopback"
	KeywordInternal = "internal"
	KeywordCancel   = "cancel"
)

func (k SourceKind) String() string {
	switch k {
	case SourceNone:
		return "none"
	case SourceLoopback:
		return "loopback"
	case SourceGenerator:
		return "generator"
	case SourceFile:
		return "file"
	case SourceCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseSource maps an input selector to its kind. For SourceFile the
// selector itself is the path.
func ParseSource(selector string) SourceKind {
	switch strings.ToLower(strings.TrimSpace(selector)) {
	case "":
		return SourceNone
	case KeywordLoopback, "loop_back":
		return SourceLoopback
	case KeywordInternal:
		return SourceGenerator
	case KeywordCancel:
		return SourceCancel
	default:
		return SourceFile
	}
}

// Direction is which halves of a duplex device a session opens.
type Direction int

const (
	Input Direction = 1 << iota
	Output
	Duplex = Input | Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Duplex:
		return "duplex"
	default:
		return "none"
	}
}

func (d Direction) HasInput() bool  { return d&Input != 0 }
func (d Direction) HasOutput() bool { return d&Output != 0 }
