// SPDX-License-Identifier: EPL-2.0

//go:build !headless

package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Oto is an output-only engine on the platform mixer. The player pulls
// rendered chunks through a Puller.
type Oto struct {
	state

	ctx    *oto.Context
	player *oto.Player
	puller *Puller
	poll   time.Duration

	mutex    sync.Mutex // setup and control only
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	exited   chan struct{}
}

// NewOto creates the oto context for the processor's layout. Only one
// context may exist per process.
func NewOto(proc Processor) (Engine, error) {
	puller, err := NewPuller(proc)
	if err != nil {
		return nil, err
	}

	layout := proc.Layout()
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   layout.SampleRate,
		ChannelCount: layout.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   2 * layout.Period(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating oto context: %w", err)
	}
	<-ready

	e := &Oto{
		ctx:    ctx,
		player: ctx.NewPlayer(puller),
		puller: puller,
		poll:   layout.Period(),
		stopCh: make(chan struct{}),
		exited: make(chan struct{}),
	}
	e.init()
	e.player.SetBufferSize(2 * layout.ChunkBytes())

	logrus.WithFields(logrus.Fields{
		"function":    "NewOto",
		"sample_rate": layout.SampleRate,
		"channels":    layout.Channels,
		"frames":      layout.Frames,
	}).Info("Opened oto player")

	return e, nil
}

func (e *Oto) Start() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true
	e.player.Play()
	go e.watch()

	return nil
}

// watch ends the stream once the puller has delivered its last chunk and
// the player has drained it.
func (e *Oto) watch() {
	defer close(e.exited)

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			e.finish(nil)
			return
		case <-ticker.C:
			if e.puller.Ended() && !e.player.IsPlaying() {
				e.finish(e.puller.Err())
				return
			}
		}
	}
}

func (e *Oto) Stop() error {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.player.Pause()
	})

	e.mutex.Lock()
	started := e.started
	e.mutex.Unlock()

	if started {
		<-e.exited
	} else {
		e.finish(nil)
	}

	return nil
}

func (e *Oto) Close() error {
	_ = e.Stop()

	if err := e.player.Close(); err != nil {
		return fmt.Errorf("closing oto player: %w", err)
	}

	return nil
}
