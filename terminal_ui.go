// terminal_ui.go - Interactive terminal frontend for a running session

/*
(c) 2025 - 2026 Drift Authors
https://github.com/driftaudio/drift
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

const VOLUME_STEP = 0.05

// TerminalUI drives one session interactively: a 1Hz ticker advances the
// controller and repaints the status line, while raw stdin keys map to
// pause/resume, abort and volume. It only observes controller and engine
// state; all mutation goes through their methods.
type TerminalUI struct {
	controller *SessionController
	engine     *AudioEngine

	keyCh        chan byte
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func NewTerminalUI(controller *SessionController, engine *AudioEngine) *TerminalUI {
	return &TerminalUI{
		controller: controller,
		engine:     engine,
		keyCh:      make(chan byte, 8),
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run starts a session and blocks until it completes or is aborted.
// When stdin cannot be put in raw mode (pipes, CI) the session still
// runs; it just is not steerable from the keyboard.
func (ui *TerminalUI) Run(cfg SessionConfig, source string) error {
	if err := ui.controller.Start(cfg, source); err != nil {
		return err
	}
	ui.startInput()
	defer ui.stopInput()

	volume := ui.engine.TargetVolume()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			phase := ui.controller.Tick()
			ui.printStatus(phase)
			if phase == PHASE_COMPLETED {
				fmt.Print("\r\nsession complete\r\n")
				return nil
			}
		case b := <-ui.keyCh:
			switch b {
			case ' ':
				if ui.controller.Paused() {
					_ = ui.controller.Resume()
				} else {
					_ = ui.controller.Pause()
				}
				ui.printStatus(ui.controller.Phase())
			case 'q', 0x03, 0x1B: // q, Ctrl-C, Esc
				_ = ui.controller.Abort()
				fmt.Print("\r\nsession aborted\r\n")
				return nil
			case '+', '=':
				volume = clampVolume(volume + VOLUME_STEP)
				ui.engine.SetVolume(volume)
			case '-':
				volume = clampVolume(volume - VOLUME_STEP)
				ui.engine.SetVolume(volume)
			}
		}
	}
}

func (ui *TerminalUI) printStatus(phase SessionPhase) {
	state := phase.String()
	if ui.controller.Paused() {
		state = "paused"
	}
	fmt.Printf("\r%-10s %s elapsed · %s remaining  [space pause · +/- volume · q quit] ",
		state,
		formatSeconds(ui.controller.Elapsed()),
		formatSeconds(ui.controller.Remaining()))
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// startInput puts stdin in raw non-blocking mode and feeds keystrokes to
// keyCh from a goroutine. Call stopInput to restore the terminal.
func (ui *TerminalUI) startInput() {
	ui.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(ui.fd)
	if err != nil {
		close(ui.done)
		return
	}
	ui.oldTermState = oldState

	if err := syscall.SetNonblock(ui.fd, true); err != nil {
		_ = term.Restore(ui.fd, ui.oldTermState)
		ui.oldTermState = nil
		close(ui.done)
		return
	}
	ui.nonblockSet = true

	go func() {
		defer close(ui.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-ui.stopCh:
				return
			default:
			}

			n, err := syscall.Read(ui.fd, buf)
			if n > 0 {
				select {
				case ui.keyCh <- buf[0]:
				default:
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (ui *TerminalUI) stopInput() {
	ui.stopped.Do(func() {
		close(ui.stopCh)
	})
	<-ui.done
	if ui.nonblockSet {
		_ = syscall.SetNonblock(ui.fd, false)
		ui.nonblockSet = false
	}
	if ui.oldTermState != nil {
		_ = term.Restore(ui.fd, ui.oldTermState)
		ui.oldTermState = nil
	}
}
