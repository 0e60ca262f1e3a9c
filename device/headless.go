// SPDX-License-Identifier: EPL-2.0

//go:build headless

package device

import (
	"io"

	"github.com/ik5/duplexpbx/config"
)

func Init() (terminate func() error, err error) { return nil, ErrBackendUnavailable }

func OpenPortAudio(Processor, config.Direction, string, string) (Engine, error) {
	return nil, ErrBackendUnavailable
}

func NewOto(Processor) (Engine, error) { return nil, ErrBackendUnavailable }

func List(io.Writer) error { return ErrBackendUnavailable }

func Names(int, config.Direction) ([]string, error) { return nil, ErrBackendUnavailable }
