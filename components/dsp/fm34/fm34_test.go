package fm34

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/bringup/boards"
	"go.viam.com/bringup/bringup"
	fakeboard "go.viam.com/bringup/components/board/fake"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/sequence"
	"go.viam.com/bringup/testutils"
)

type harness struct {
	dsp       *DSP
	board     *fakeboard.Board
	chip      *fakeboard.I2CDevice
	clock     *testutils.StepClock
	recording []bool
}

func newHarness(t *testing.T, v boards.Variant, latch bringup.Latch) *harness {
	t.Helper()
	logger := logging.NewTestLogger(t)
	h := &harness{clock: testutils.NewStepClock()}
	h.board = fakeboard.NewBoard(h.clock, logger)
	bus := h.board.AddI2C("1")
	h.chip = bus.Attach(Addr, nil)
	dsp, err := New(Config{
		Info:        boards.InfoFor(v),
		Tables:      FixtureTables(boards.InfoFor(v)),
		Board:       h.board,
		Bus:         bus,
		Latch:       latch,
		Clock:       h.clock,
		OnRecording: func(on bool) { h.recording = append(h.recording, on) },
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, dsp.Close(context.Background()), test.ShouldBeNil) })
	h.dsp = dsp
	return h
}

func frames(t sequence.Table) [][]byte {
	out := make([][]byte, 0, len(t))
	for _, e := range t.Writes() {
		out = append(out, sequence.EncodeFM34(e))
	}
	return out
}

func TestFixtureTables(t *testing.T) {
	for _, v := range boards.Variants {
		test.That(t, FixtureTables(boards.InfoFor(v)).Validate(), test.ShouldBeNil)
	}
	test.That(t, FixtureTables(boards.InfoFor(boards.Unknown)).Init, test.ShouldResemble,
		FixtureTables(boards.InfoFor(boards.TF300T)).Init)
	test.That(t, FixtureTables(boards.InfoFor(boards.TF700T)).Init, test.ShouldNotResemble,
		FixtureTables(boards.InfoFor(boards.TF201)).Init)

	tf201 := FixtureTables(boards.InfoFor(boards.TF201))
	tf700t := FixtureTables(boards.InfoFor(boards.TF700T))
	test.That(t, tf201.Profile(ProfileDisableNS), test.ShouldNotResemble, tf700t.Profile(ProfileDisableNS))
	test.That(t, tf201.Profile(ProfileBypass), test.ShouldResemble, tf700t.Profile(ProfileBypass))
	test.That(t, tf201.Profile(ProfileEnableNS), test.ShouldNotResemble, tf201.Profile(ProfileDisableNS))
	test.That(t, tf201.Profile(Profile("loud")), test.ShouldResemble, tf201.Bypass)
}

const tablesYAML = `
init:
  - {addr: 0x22F8, val: 0x8005}
  - {addr: 0x22C6, val: 0x0061}
  - {addr: 0x0000, val: 5}
  - {addr: 0x22F8, val: 0x8000}
  - {addr: 0x0001, val: 0}
bypass:
  - {addr: 0x22F2, val: 0x0001}
  - {addr: 0x0001, val: 0}
enable_ns:
  - {addr: 0x2301, val: 0x0002}
  - {addr: 0x0001, val: 0}
disable_ns:
  - {addr: 0x2301, val: 0x0000}
  - {addr: 0x0001, val: 0}
`

func writeTables(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadTables(t *testing.T) {
	tables, err := LoadTables(writeTables(t, "tf700t.yaml", tablesYAML))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tables.Init, test.ShouldResemble, sequence.Table{
		{Addr: 0x22F8, Val: 0x8005},
		{Addr: 0x22C6, Val: 0x0061},
		sequence.Wait(5),
		{Addr: 0x22F8, Val: 0x8000},
		sequence.End(),
	})
	test.That(t, tables.Profile(ProfileEnableNS), test.ShouldResemble, sequence.Table{
		{Addr: 0x2301, Val: 0x0002}, sequence.End(),
	})

	tables, err = LoadTables(writeTables(t, "tf700t.json", `{
		"init": [{"addr": 8952, "val": 32773}, {"addr": 1, "val": 0}],
		"bypass": [{"addr": 1, "val": 0}],
		"enable_ns": [{"addr": 1, "val": 0}],
		"disable_ns": [{"addr": 1, "val": 0}]
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tables.Init.Writes(), test.ShouldResemble, []sequence.Entry{{Addr: 0x22F8, Val: 0x8005}})

	// No end marker on the disable table.
	_, err = LoadTables(writeTables(t, "short.yaml", strings.Replace(tablesYAML,
		"  - {addr: 0x2301, val: 0x0000}\n  - {addr: 0x0001, val: 0}", "  - {addr: 0x2301, val: 0x0000}", 1)))
	test.That(t, errors.Is(err, sequence.ErrUnterminatedTable), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "disable_ns table")

	_, err = LoadTables(writeTables(t, "partial.json", `{"init": [{"addr": 1, "val": 0}]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bypass table is missing")

	_, err = LoadTables(writeTables(t, "typo.json", `{"inti": []}`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewRejectsInvalidTables(t *testing.T) {
	logger := logging.NewTestLogger(t)
	b := fakeboard.NewBoard(testutils.NewStepClock(), logger)
	tables := FixtureTables(boards.InfoFor(boards.TF700T))
	tables.EnableNS = tables.EnableNS[:len(tables.EnableNS)-1]

	_, err := New(Config{Info: boards.InfoFor(boards.TF700T), Tables: tables, Board: b, Bus: b.AddI2C("1")}, logger)
	test.That(t, errors.Is(err, sequence.ErrUnterminatedTable), test.ShouldBeTrue)

	_, err = New(Config{Info: boards.InfoFor(boards.TF700T), Board: b, Bus: b.I2Cs["1"]}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSelectProfile(t *testing.T) {
	test.That(t, SelectProfile(DefaultModes()), test.ShouldEqual, ProfileBypass)
	test.That(t, SelectProfile(Modes{Input: InputVR, Output: OutputNormal, AGC: AGCOff}), test.ShouldEqual, ProfileDisableNS)
	test.That(t, SelectProfile(Modes{Input: InputVR, Output: OutputVoice, AGC: AGCOn}), test.ShouldEqual, ProfileDisableNS)
	test.That(t, SelectProfile(Modes{Input: InputNormal, Output: OutputVoice, AGC: AGCOff}), test.ShouldEqual, ProfileEnableNS)
	test.That(t, SelectProfile(Modes{Input: InputNormal, Output: OutputNormal, AGC: AGCOn}), test.ShouldEqual, ProfileEnableNS)
	test.That(t, SelectProfile(Modes{Input: InputVR, Output: OutputVoice, Headset: true}), test.ShouldEqual, ProfileBypass)
}

func TestParseModes(t *testing.T) {
	in, err := ParseInputMode("vr")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in, test.ShouldEqual, InputVR)
	in, err = ParseInputMode(float64(100))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, in, test.ShouldEqual, InputNormal)

	out, err := ParseOutputMode(201)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, OutputVoice)

	agc, err := ParseAGCMode("301")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, agc, test.ShouldEqual, AGCOn)

	action, err := ParseRecordingAction(float64(0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, action, test.ShouldEqual, RecordingEnd)

	_, err = ParseInputMode(200)
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)
	_, err = ParseAGCMode(300.5)
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)
	_, err = ParseRecordingAction(nil)
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)
}

func TestEnable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF201, bringup.LatchUntilPowerOff)
	info := boards.InfoFor(boards.TF201)

	test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)
	test.That(t, h.dsp.State(), test.ShouldEqual, bringup.Configured)
	test.That(t, h.board.Timeline.Steps(), test.ShouldResemble, []string{
		"PU5=true", "PO3=false", "PO3=true", "PBB6=true", "PBB6=false",
	})

	writes := h.board.Timeline.Writes(Addr)
	test.That(t, writes[0], test.ShouldResemble, []byte{probeByte})
	test.That(t, writes[1:], test.ShouldResemble, frames(FixtureTables(info).Init))

	// reset 10ms, wake 100ms, bypass to programming 20ms.
	probe := h.board.Timeline.Attempts(Addr)[0]
	test.That(t, probe.Offset, test.ShouldEqual, 130*time.Millisecond)
	gpio := h.board.Timeline.Kinds(fakeboard.EventGPIO)
	test.That(t, gpio[len(gpio)-1].Offset, test.ShouldEqual, 230*time.Millisecond)

	h.board.Timeline.Reset()
	test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Events(), test.ShouldBeEmpty)

	test.That(t, h.dsp.Disable(ctx), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Steps(), test.ShouldResemble, []string{"PBB6=false", "PU5=false"})
	test.That(t, h.dsp.State(), test.ShouldEqual, bringup.PoweredOff)
}

func TestPowerPinByBoard(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		variant boards.Variant
		first   string
	}{
		{boards.TF201, "PU5=true"},
		{boards.TF300T, "PP3=true"},
		{boards.TF300TG, "PO3=false"},
	} {
		h := newHarness(t, tc.variant, bringup.LatchUntilPowerOff)
		test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)
		test.That(t, h.board.Timeline.Steps()[0], test.ShouldEqual, tc.first)
	}
}

func TestWithoutLatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF300T, bringup.LatchNone)
	test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)
	first := len(h.board.Timeline.Writes(Addr))

	test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Writes(Addr), test.ShouldHaveLength, 2*first)
}

func TestProbeFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF300T, bringup.LatchUntilPowerOff)
	h.chip.WriteFunc = fakeboard.FailAlways

	err := h.dsp.Enable(ctx)
	test.That(t, errors.Is(err, bringup.ErrProbeFailed), test.ShouldBeTrue)
	test.That(t, h.dsp.State(), test.ShouldEqual, bringup.ProbeFailed)
	test.That(t, h.board.Timeline.Attempts(Addr), test.ShouldHaveLength, 1)
	// 50ms backoff, then reset is pulsed again.
	test.That(t, h.board.Timeline.Steps(), test.ShouldResemble, []string{
		"PP3=true", "PO3=false", "PO3=true", "PBB6=true", "PO3=false", "PO3=true",
	})

	h.chip.WriteFunc = nil
	test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)
	test.That(t, h.dsp.Configured(), test.ShouldBeTrue)
}

func TestWriteRetries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF201, bringup.LatchUntilPowerOff)
	bad := FixtureTables(boards.InfoFor(boards.TF201)).Init[1]
	h.chip.WriteFunc = fakeboard.FailPayload(sequence.EncodeFM34(bad))

	err := h.dsp.Enable(ctx)
	var wf *sequence.WriteFailedError
	test.That(t, errors.As(err, &wf), test.ShouldBeTrue)
	test.That(t, wf.Index, test.ShouldEqual, 1)
	test.That(t, h.dsp.State(), test.ShouldEqual, bringup.ConfigFailed)

	var failed []fakeboard.Event
	for _, a := range h.board.Timeline.Attempts(Addr) {
		if a.Err != nil {
			failed = append(failed, a)
		}
	}
	test.That(t, failed, test.ShouldHaveLength, dspWriteAttempts)
	test.That(t, failed[len(failed)-1].Offset-failed[0].Offset, test.ShouldEqual, 4*dspRetryDelay)
}

func TestReconfigureSelectsProfile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF201, bringup.LatchUntilPowerOff)
	info := boards.InfoFor(boards.TF201)
	test.That(t, h.dsp.Enable(ctx), test.ShouldBeNil)

	test.That(t, h.dsp.SetInputMode(ctx, InputVR), test.ShouldBeNil)
	test.That(t, h.dsp.Modes(ctx).Input, test.ShouldEqual, InputVR)
	h.board.Timeline.Reset()
	test.That(t, h.dsp.Reconfigure(ctx), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Writes(Addr), test.ShouldResemble, frames(FixtureTables(info).Profile(ProfileDisableNS)))
	// A processing profile keeps the bypass line high.
	test.That(t, h.board.Timeline.Steps(), test.ShouldResemble, []string{"PBB6=true"})
	test.That(t, h.dsp.Status()["profile"], test.ShouldEqual, "disable_ns")

	test.That(t, h.dsp.ApplyModes(ctx, DefaultModes()), test.ShouldBeNil)
	h.board.Timeline.Reset()
	test.That(t, h.dsp.Reconfigure(ctx), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Writes(Addr), test.ShouldResemble, frames(FixtureTables(info).Profile(ProfileBypass)))
	test.That(t, h.board.Timeline.Steps(), test.ShouldResemble, []string{"PBB6=true", "PBB6=false"})

	err := h.dsp.ApplyModes(ctx, Modes{Input: "loud", Output: OutputNormal, AGC: AGCOff})
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)
}

func TestReconfigureBeforeEnable(t *testing.T) {
	h := newHarness(t, boards.TF201, bringup.LatchUntilPowerOff)
	err := h.dsp.Reconfigure(context.Background())
	test.That(t, errors.Is(err, bringup.ErrInvalidTransition), test.ShouldBeTrue)
}

func TestRecording(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF700T, bringup.LatchUntilPowerOff)
	info := boards.InfoFor(boards.TF700T)
	test.That(t, h.dsp.SetOutputMode(ctx, OutputVoice), test.ShouldBeNil)

	// Start configures a powered off DSP first.
	test.That(t, h.dsp.Recording(ctx, RecordingStart), test.ShouldBeNil)
	test.That(t, h.dsp.Configured(), test.ShouldBeTrue)
	writes := h.board.Timeline.Writes(Addr)
	profile := frames(FixtureTables(info).Profile(ProfileEnableNS))
	test.That(t, writes[len(writes)-len(profile):], test.ShouldResemble, profile)
	test.That(t, h.recording, test.ShouldResemble, []bool{true})
	test.That(t, h.dsp.Status()["recording"], test.ShouldBeTrue)

	h.board.Timeline.Reset()
	test.That(t, h.dsp.Recording(ctx, RecordingEnd), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Writes(Addr), test.ShouldResemble, frames(FixtureTables(info).Profile(ProfileBypass)))
	test.That(t, h.board.Timeline.Steps(), test.ShouldResemble, []string{"PBB6=true", "PBB6=false"})
	test.That(t, h.recording, test.ShouldResemble, []bool{true, false})
	test.That(t, h.dsp.Status()["profile"], test.ShouldEqual, "bypass")

	// Ending again and playback touch nothing.
	h.board.Timeline.Reset()
	test.That(t, h.dsp.Recording(ctx, RecordingEnd), test.ShouldBeNil)
	test.That(t, h.dsp.Recording(ctx, RecordingPlayback), test.ShouldBeNil)
	test.That(t, h.board.Timeline.Events(), test.ShouldBeEmpty)
	test.That(t, h.recording, test.ShouldResemble, []bool{true, false})

	err := h.dsp.Recording(ctx, RecordingAction("pause"))
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)
}

func TestDisableEndsRecording(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF300T, bringup.LatchUntilPowerOff)
	test.That(t, h.dsp.Recording(ctx, RecordingStart), test.ShouldBeNil)
	test.That(t, h.dsp.Disable(ctx), test.ShouldBeNil)
	test.That(t, h.recording, test.ShouldResemble, []bool{true, false})
	test.That(t, h.dsp.Status()["recording"], test.ShouldBeFalse)

	// The generic disable path forgets the recording too.
	test.That(t, h.dsp.Recording(ctx, RecordingStart), test.ShouldBeNil)
	test.That(t, h.dsp.Device.Disable(ctx), test.ShouldBeNil)
	test.That(t, h.recording, test.ShouldResemble, []bool{true, false, true, false})
	test.That(t, h.dsp.Status()["profile"], test.ShouldEqual, "bypass")
}

func TestDisableRacingRecordingStart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF700T, bringup.LatchUntilPowerOff)
	test.That(t, h.dsp.SetInputMode(ctx, InputVR), test.ShouldBeNil)

	for i := 0; i < 50; i++ {
		var (
			wg         sync.WaitGroup
			disableErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			//nolint:errcheck
			h.dsp.Recording(ctx, RecordingStart)
		}()
		go func() {
			defer wg.Done()
			disableErr = h.dsp.Disable(ctx)
		}()
		wg.Wait()
		test.That(t, disableErr, test.ShouldBeNil)

		// A powered off DSP is never left recording.
		status := h.dsp.Status()
		if status["state"] == "powered_off" {
			test.That(t, status["recording"], test.ShouldBeFalse)
			test.That(t, status["profile"], test.ShouldEqual, "bypass")
		}
		test.That(t, h.dsp.Disable(ctx), test.ShouldBeNil)
	}
}

func TestDoCommand(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, boards.TF300T, bringup.LatchUntilPowerOff)

	resp, err := h.dsp.DoCommand(ctx, map[string]interface{}{"command": "enable"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["state"], test.ShouldEqual, "configured")
	test.That(t, resp["profile"], test.ShouldEqual, "bypass")

	resp, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandSetInputMode, "mode": float64(101)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["input"], test.ShouldEqual, "vr")

	resp, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandSetAGCMode, "mode": "on"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["agc"], test.ShouldEqual, "on")

	resp, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandSetOutputMode, "mode": "voice"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["output"], test.ShouldEqual, "voice")

	resp, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandSetHeadset, "headset": true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["headset"], test.ShouldBeTrue)

	_, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandSetHeadset, "headset": "yes"})
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)

	_, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandSetInputMode, "mode": "loud"})
	test.That(t, errors.Is(err, ErrInvalidMode), test.ShouldBeTrue)

	resp, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": CommandRecording, "action": float64(1)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["recording"], test.ShouldBeTrue)
	// headset plugged in: bypassed.
	test.That(t, resp["profile"], test.ShouldEqual, "bypass")

	resp, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": "disable"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp["recording"], test.ShouldBeFalse)
	test.That(t, resp["state"], test.ShouldEqual, "powered_off")

	_, err = h.dsp.DoCommand(ctx, map[string]interface{}{"command": "jump"})
	test.That(t, errors.Is(err, bringup.ErrUnknownCommand), test.ShouldBeTrue)
}
