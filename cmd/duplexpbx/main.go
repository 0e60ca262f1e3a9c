// SPDX-License-Identifier: EPL-2.0

// Command duplexpbx streams audio through a sound card and records what it
// hears and plays.
//
// The input selector picks the source: "loopback" plays the capture back,
// "internal" plays a test tone, "cancel" runs the adaptive echo canceller
// against the tone, and anything else is played as an audio file. Without
// an input the capture is only recorded. Device names are positional, the
// capture device first.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ik5/duplexpbx/config"
	"github.com/ik5/duplexpbx/device"
	"github.com/ik5/duplexpbx/session"
)

// console is the process's terminal surface.
type console struct {
	in          *bufio.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con := console{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}

	code := run(ctx, os.Args[1:], con)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, con console) int {
	cfg := config.Default()

	fs := flag.NewFlagSet("duplexpbx", flag.ContinueOnError)
	fs.SetOutput(con.errOut)
	cfg.RegisterFlags(fs)

	listDevices := fs.Bool("list-devices", false, "list audio devices and exit")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	yes := fs.Bool("yes", false, "start streaming without asking for confirmation")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: duplexpbx [options] [capture-device] [render-device]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	cfg.Devices = fs.Args()

	if err := setupLogging(*logLevel, con.errOut); err != nil {
		fmt.Fprintf(con.errOut, "Configuration error: %v\n", err)
		return 2
	}

	if *listDevices {
		if err := listAudioDevices(con.out); err != nil {
			logrus.WithError(err).Error("Cannot list devices")
			return 1
		}
		return 0
	}

	if cfg.Backend == config.BackendPortAudio && len(cfg.Devices) == 0 && con.interactive {
		devices, err := pickDevices(cfg, con)
		if err != nil {
			logrus.WithError(err).Error("Device selection failed")
			return 1
		}
		cfg.Devices = devices
	}

	s, err := session.Open(cfg)
	if err != nil {
		logrus.WithError(err).Error("Cannot start session")
		return 1
	}
	defer s.Close()

	if con.interactive && !*yes {
		describe(con.out, s.Config())
		fmt.Fprint(con.out, "Press Enter to continue...")
		if _, err := con.in.ReadString('\n'); err != nil {
			return 1
		}
	}

	if err := s.Run(ctx); err != nil {
		logrus.WithError(err).Error("Session aborted")
		return 1
	}

	return 0
}

func setupLogging(level string, w io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetOutput(w)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return nil
}

func listAudioDevices(w io.Writer) error {
	terminate, err := device.Init()
	if err != nil {
		return err
	}
	defer terminate()

	return device.List(w)
}

// pickDevices asks for the device of every direction the session opens,
// capture first.
func pickDevices(cfg config.Session, con console) ([]string, error) {
	terminate, err := device.Init()
	if err != nil {
		return nil, err
	}
	defer terminate()

	var picked []string
	for _, dir := range []config.Direction{config.Input, config.Output} {
		if cfg.Direction()&dir == 0 {
			continue
		}

		names, err := device.Names(cfg.Channels, dir)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no %s device with %d channels", dir, cfg.Channels)
		}

		name, err := choose(con, dir.String(), names)
		if err != nil {
			return nil, err
		}
		picked = append(picked, name)
	}

	return picked, nil
}

func choose(con console, what string, names []string) (string, error) {
	for i, name := range names {
		fmt.Fprintf(con.out, "%3d  %s\n", i, name)
	}

	for {
		fmt.Fprintf(con.out, "Select %s device: ", what)

		line, err := con.in.ReadString('\n')
		if err != nil {
			return "", err
		}

		id, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && id >= 0 && id < len(names) {
			return names[id], nil
		}
		fmt.Fprintf(con.out, "Enter a number between 0 and %d\n", len(names)-1)
	}
}

func describe(w io.Writer, cfg config.Session) {
	fmt.Fprintf(w, "Source:      %s\n", cfg.Kind())
	if path := cfg.FilePath(); path != "" {
		fmt.Fprintf(w, "File:        %s\n", path)
	}
	fmt.Fprintf(w, "Direction:   %s\n", cfg.Direction())
	if dev := cfg.InputDevice(); dev != "" {
		fmt.Fprintf(w, "Capture:     %s\n", dev)
	}
	if dev := cfg.OutputDevice(); dev != "" {
		fmt.Fprintf(w, "Render:      %s\n", dev)
	}
	fmt.Fprintf(w, "Format:      %d Hz, %d ch, %d frames per chunk (%s)\n",
		cfg.SampleRate, cfg.Channels, cfg.Frames, cfg.ChunkDuration())
	if cfg.CaptureOut != "" {
		fmt.Fprintf(w, "Recording:   %s\n", cfg.CaptureOut)
	}
	if cfg.RenderOut != "" {
		fmt.Fprintf(w, "Rendering:   %s\n", cfg.RenderOut)
	}
}
