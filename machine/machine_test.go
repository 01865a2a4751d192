package machine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/bringup/bringup"
	"go.viam.com/bringup/components/board/fake"
	"go.viam.com/bringup/components/dsp/fm34"
	"go.viam.com/bringup/components/hdmi"
	"go.viam.com/bringup/components/panel"
	"go.viam.com/bringup/components/regulator"
	fakeregulator "go.viam.com/bringup/components/regulator/fake"
	"go.viam.com/bringup/config"
	"go.viam.com/bringup/logging"
	"go.viam.com/bringup/sequence"
	"go.viam.com/bringup/testutils"
)

const tabletConfig = `
board: %s
i2cs:
  - name: gen1
    bus: "0"
  - name: gen2
    bus: "1"
components:
  - name: lcd
    type: panel
    attributes:
      bridge_i2c_bus: gen1
      rails:
        vdd_lcd_panel: PD4
        vdd_lvds: PB2
        vdd_backlight: PW1
  - name: dsp
    type: fm34
    i2c_bus: gen2
    attributes:
      output: voice
  - name: hdmi
    type: hdmi
    attributes:
      rails:
        vdd_hdmi_con: PK1
        avdd_hdmi: PK2
        avdd_hdmi_pll: PK3
`

func readConfig(t *testing.T, variant string) *config.Config {
	t.Helper()
	doc := strings.Replace(tabletConfig, "%s", variant, 1)
	cfg, err := config.FromReader(context.Background(), "tablet.yaml", strings.NewReader(doc), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

func newTestMachine(t *testing.T, variant string) (*Machine, *fake.Board) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	cfg := readConfig(t, variant)
	clk := testutils.NewStepClock()
	b := NewFakeBoard(cfg, clk, logger)
	m, err := New(context.Background(), cfg, b, logger, FakeOptions(b, clk))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, m.Close(context.Background()), test.ShouldBeNil) })
	return m, b
}

func TestNew(t *testing.T) {
	m, b := newTestMachine(t, "tf700t")
	test.That(t, m.Info().Display.Bridge, test.ShouldBeTrue)
	test.That(t, m.Names(), test.ShouldResemble, []string{"lcd", "hdmi", "dsp"})
	test.That(t, b.Timeline.Steps(), test.ShouldResemble, []string{"PP2=false"})

	d, err := m.Device("dsp")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.(*fm34.DSP).Modes(context.Background()).Output, test.ShouldEqual, fm34.OutputVoice)
	p, err := m.Device("lcd")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.(*panel.Panel).Bridge(), test.ShouldNotBeNil)

	_, err = m.Device("camera")
	test.That(t, err, test.ShouldNotBeNil)

	m201, b201 := newTestMachine(t, "tf201")
	test.That(t, m201.Info().Display.Bridge, test.ShouldBeFalse)
	test.That(t, b201.Timeline.Steps(), test.ShouldResemble, []string{"PP2=true"})
}

func TestNewMissingBus(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := readConfig(t, "tf700t")
	clk := testutils.NewStepClock()
	b := fake.NewBoard(clk, logger)
	b.AddI2C("gen1")
	_, err := New(context.Background(), cfg, b, logger, FakeOptions(b, clk))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `no i2c bus named "gen2"`)
}

func TestEnableAllAndDisableAll(t *testing.T) {
	ctx := context.Background()
	m, b := newTestMachine(t, "tf700t")

	test.That(t, m.EnableAll(ctx), test.ShouldBeNil)
	status := m.Status()
	test.That(t, status["lcd"]["configured"], test.ShouldBeTrue)
	test.That(t, status["dsp"]["state"], test.ShouldEqual, "configured")
	test.That(t, status["hdmi"]["rails"], test.ShouldResemble, []string{hdmi.RailAVDD, hdmi.RailPLL, hdmi.RailVddio})
	test.That(t, b.Timeline.Writes(0x07), test.ShouldNotBeEmpty)
	test.That(t, b.Timeline.Writes(fm34.Addr), test.ShouldNotBeEmpty)

	test.That(t, m.DisableAll(ctx), test.ShouldBeNil)
	status = m.Status()
	test.That(t, status["lcd"]["configured"], test.ShouldBeFalse)
	test.That(t, status["dsp"]["state"], test.ShouldEqual, "powered_off")
	test.That(t, status["hdmi"]["rails"], test.ShouldBeEmpty)
}

func TestEnableAllReportsFailures(t *testing.T) {
	ctx := context.Background()
	m, b := newTestMachine(t, "tf300t")
	b.I2Cs["gen2"].Attach(fm34.Addr, &fake.I2CDevice{WriteFunc: fake.FailAlways})

	err := m.EnableAll(ctx)
	test.That(t, errors.Is(err, bringup.ErrProbeFailed), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "dsp")
	test.That(t, m.Status()["lcd"]["configured"], test.ShouldBeTrue)
}

func TestRecordingForcesBacklight(t *testing.T) {
	ctx := context.Background()
	m, b := newTestMachine(t, "tf201")
	d, err := m.Device("lcd")
	test.That(t, err, test.ShouldBeNil)
	backlight := d.(*panel.Panel).Backlight()

	_, err = m.DoCommand(ctx, "dsp", map[string]interface{}{"command": fm34.CommandRecording, "action": "start"})
	test.That(t, err, test.ShouldBeNil)
	_, err = backlight.Notify(ctx, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pinHigh(t, b, "PH2"), test.ShouldBeTrue)

	_, err = m.DoCommand(ctx, "dsp", map[string]interface{}{"command": fm34.CommandRecording, "action": "end"})
	test.That(t, err, test.ShouldBeNil)
	_, err = backlight.Notify(ctx, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pinHigh(t, b, "PH2"), test.ShouldBeFalse)

	_, err = m.DoCommand(ctx, "speaker", map[string]interface{}{"command": "status"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestApplyConfig(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t, "tf300t")
	cfg := readConfig(t, "tf300t")
	cfg.Components[1].ConvertedAttributes.(*config.FM34Attributes).Input = "vr"

	test.That(t, m.ApplyConfig(ctx, cfg), test.ShouldBeNil)
	d, err := m.Device("dsp")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.(*fm34.DSP).Modes(ctx).Input, test.ShouldEqual, fm34.InputVR)
}

func pinHigh(t *testing.T, b *fake.Board, name string) bool {
	t.Helper()
	high, err := b.Pin(name).Get(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	return high
}

const dspTables = `
init:
  - {addr: 0x22F8, val: 0x8005}
  - {addr: 0x22C6, val: 0x0042}
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

func TestDSPTables(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(dir, "tf300t.yaml"), []byte(dspTables), 0o600), test.ShouldBeNil)

	doc := strings.Replace(tabletConfig, "%s", "tf300t", 1)
	doc = strings.Replace(doc, "      output: voice\n", "      output: voice\n      tables: tf300t.yaml\n", 1)
	cfg, err := config.FromReader(ctx, filepath.Join(dir, "tablet.yaml"), strings.NewReader(doc), logger)
	test.That(t, err, test.ShouldBeNil)

	clk := testutils.NewStepClock()
	b := NewFakeBoard(cfg, clk, logger)
	supplier := fakeregulator.NewSupplier(b.Timeline)
	opts := Options{
		Clock:       clk,
		NewSupplier: func(map[string]string) regulator.Supplier { return supplier },
	}
	m, err := New(ctx, cfg, b, logger, opts)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, m.Close(ctx), test.ShouldBeNil) }()

	d, err := m.Device("dsp")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Enable(ctx), test.ShouldBeNil)
	want := sequence.EncodeFM34(sequence.Entry{Addr: 0x22C6, Val: 0x0042})
	found := false
	for _, w := range b.Timeline.Writes(fm34.Addr) {
		found = found || bytes.Equal(w, want)
	}
	test.That(t, found, test.ShouldBeTrue)

	// Without a tables file only the fake board may fall back to the fixtures.
	cfg = readConfig(t, "tf300t")
	b = NewFakeBoard(cfg, clk, logger)
	_, err = New(ctx, cfg, b, logger, opts)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no DSP parameter tables")
}

func TestHDMIFailureReleasesRails(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	cfg := readConfig(t, "tf700t")
	clk := testutils.NewStepClock()
	b := NewFakeBoard(cfg, clk, logger)
	supplier := fakeregulator.NewSupplier(b.Timeline)
	supplier.FailEnable(hdmi.RailPLL, errors.New("pll regulator fault"))
	opts := FakeOptions(b, clk)
	opts.NewSupplier = func(map[string]string) regulator.Supplier { return supplier }
	m, err := New(ctx, cfg, b, logger, opts)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, m.Close(ctx), test.ShouldBeNil) }()

	err = m.EnableAll(ctx)
	test.That(t, errors.Is(err, bringup.ErrResourceUnavailable), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "hdmi")
	test.That(t, supplier.IsOn(hdmi.RailVddio), test.ShouldBeFalse)
	test.That(t, supplier.IsOn(hdmi.RailAVDD), test.ShouldBeFalse)
	test.That(t, supplier.Held(hdmi.RailAVDD), test.ShouldEqual, 0)
	status := m.Status()
	test.That(t, status["hdmi"]["state"], test.ShouldEqual, "powered_off")
	test.That(t, status["lcd"]["configured"], test.ShouldBeTrue)
	test.That(t, status["dsp"]["state"], test.ShouldEqual, "configured")
}
