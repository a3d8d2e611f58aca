// Package kraken drives a four-servo, one-stepper robot arm from a game
// controller.
//
// The controller is polled at a fixed rate. Stick deflection, trigger and
// button transitions are translated into single-character commands that are
// written, one per line, to the arm's Arduino over a serial port.
//
// # Installation
//
//	go install github.com/gwillem/kraken/cmd/kraken@latest
//
// # Usage
//
// Pick the serial port and controller once:
//
//	kraken setup
//
// Then drive the arm from the TUI, or headless:
//
//	kraken play
//	kraken run --port /dev/ttyACM0
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/kraken: CLI with play, run, detect and setup commands
//   - pkg/gamepad: Controller polling and snapshots
//   - pkg/arduino: Serial link to the microcontroller
//   - pkg/command: Command vocabulary and the snapshot differ
//   - pkg/robot: Arm model, mirrored pose, and configuration
//   - pkg/teleop: Polling loop and session lifecycle
package kraken
