// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boot implements the orchestrator (component G): the fixed phase
// sequence of the original firmware's main(), its retry/fallback policy,
// and the blink-code failure surface of the distilled specification's §7.
// Orchestrator.Run never panics — every failure becomes a *mimierr.Error
// so a host-side test harness can drive the six end-to-end scenarios
// without a real arch.Transferer ever firing.
package boot

import (
	"time"

	"github.com/milkmanabi/mimiboot/arch"
	"github.com/milkmanabi/mimiboot/bootcfg"
	"github.com/milkmanabi/mimiboot/elf32"
	"github.com/milkmanabi/mimiboot/fat32"
	"github.com/milkmanabi/mimiboot/handoff"
	"github.com/milkmanabi/mimiboot/mimierr"
	"github.com/milkmanabi/mimiboot/platform"
)

// Logger is the narrow leveled-logging contract the orchestrator depends
// on; GoLoggingAdapter in logadapter.go adapts a named
// github.com/dsoprea/go-logging logger to it the way go-exfat wraps a named
// logger per package. Verbose gates Debugf, !Quiet gates Infof, matching the
// original's LOG/LOG_VERBOSE split.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Storage is the external storage HAL contract: a card that can be brought
// up (Init, Detect) and then read as a block device.
type Storage interface {
	Init() error
	Detect() error
	fat32.SectorReader
}

// Clock supplies monotonic microsecond timestamps for the boot/loader
// timing fields, decoupling boot from a concrete hardware timer.
type Clock interface {
	NowMicros() uint64
}

// Orchestrator sequences a single boot attempt against a concrete board.
type Orchestrator struct {
	Platform    platform.Info
	Storage     Storage
	Placer      elf32.Placer
	Transferer  arch.Transferer
	Clock       Clock
	Log         Logger

	// ConfigPath and the default image path match the original's fixed
	// /boot.cfg and /kernel.bin locations.
	ConfigPath string

	bootCount uint32
}

const defaultConfigPath = "/boot.cfg"

// New returns an Orchestrator ready to Run against the given board wiring.
func New(p platform.Info, storage Storage, placer elf32.Placer, transferer arch.Transferer, clock Clock, log Logger) *Orchestrator {
	return &Orchestrator{
		Platform:   p,
		Storage:    storage,
		Placer:     placer,
		Transferer: transferer,
		Clock:      clock,
		Log:        log,
		ConfigPath: defaultConfigPath,
	}
}

func (o *Orchestrator) bootAttempt() uint32 {
	if o.Platform.Counter != nil {
		if n, err := o.Platform.Counter.Load(); err == nil {
			o.bootCount = n
		}
	}
	o.bootCount++
	if o.Platform.Counter != nil {
		o.Platform.Counter.Store(o.bootCount)
	}
	return o.bootCount
}

func (o *Orchestrator) bootSuccess() {
	o.bootCount = 0
	if o.Platform.Counter != nil {
		o.Platform.Counter.Store(0)
	}
}

// Run executes one full boot attempt: platform probe (already supplied via
// Platform), storage bring-up, FAT32 mount, config load, optional startup
// delay, image selection with retry/fallback, open, load, validate,
// handoff build, and transfer. It returns nil only if Transferer.Transfer
// was invoked (real hardware never returns from that call; the Sim
// transferer used in tests does).
func (o *Orchestrator) Run() error {
	start := o.now()
	o.Log.Infof("mimiboot starting on %s", o.Platform.Name)

	attempt := o.bootAttempt()

	if err := o.Storage.Init(); err != nil {
		return mimierr.New(mimierr.KindStorage, err, "storage init")
	}
	if err := o.Storage.Detect(); err != nil {
		return mimierr.New(mimierr.KindStorage, err, "card detect")
	}

	vol, err := fat32.Mount(o.Storage)
	if err != nil {
		return err
	}

	cfg := bootcfg.Default()
	if vol.Exists(o.ConfigPath) {
		f, err := vol.Open(o.ConfigPath)
		if err != nil {
			return err
		}
		cfg, err = bootcfg.Load(f)
		if err != nil {
			return err
		}
	}

	infof := o.Log.Infof
	if cfg.Quiet {
		infof = func(string, ...interface{}) {}
	}
	debugf := o.Log.Debugf
	if !cfg.Verbose {
		debugf = func(string, ...interface{}) {}
	}

	if cfg.Delay {
		debugf("startup delay: %d seconds", cfg.Timeout)
		time.Sleep(time.Duration(cfg.Timeout) * time.Second)
	}

	imagePath := cfg.SelectImage(int(attempt) - 1)
	if cfg.Fallback != "" && imagePath != cfg.Fallback && !vol.Exists(imagePath) {
		infof("image %s not found, using fallback %s", imagePath, cfg.Fallback)
		imagePath = cfg.Fallback
	}
	infof("loading image %s (attempt %d)", imagePath, attempt)

	file, err := vol.Open(imagePath)
	if err != nil {
		return err
	}

	loaderStart := o.now()
	result, err := elf32.Load(file, o.Placer, o.Platform.LoadRegions, elf32.Options{Verify: cfg.Verify})
	if err != nil {
		return err
	}
	loaderElapsed := uint32(o.now() - loaderStart)
	totalElapsed := uint32(o.now() - start)

	for _, w := range result.Warnings {
		debugf("loader warning: %s", w)
	}

	d := handoff.Build(o.Platform, result, baseName(imagePath), attempt, totalElapsed)
	d.LoaderTimeUS = loaderElapsed
	d.BootTimeUS = totalElapsed

	encoded, err := handoff.Encode(d)
	if err != nil {
		return err
	}

	handoffAddr := handoffAddress(o.Platform.RAM)
	if rangesOverlap(handoffAddr, uint32(len(encoded)), result.LoadBase, result.LoadSize) {
		return mimierr.New(mimierr.KindHandoff, nil, "handoff location overlaps loaded image")
	}
	if err := o.Placer.WriteAt(handoffAddr, encoded); err != nil {
		return mimierr.New(mimierr.KindHandoff, err, "write handoff descriptor")
	}

	o.bootSuccess()
	infof("transferring to entry 0x%08X", result.Entry)
	o.Transferer.Transfer(result.Entry, 0, handoffAddr)
	return nil
}

// handoffAddress picks the handoff descriptor's RAM location: the last
// handoff.Size bytes of ram, aligned down to a 256-byte boundary, matching
// the original's MIMI_HANDOFF_ADDR macro.
func handoffAddress(ram platform.Region) uint32 {
	return (ram.End() - handoff.Size) &^ 0xFF
}

func rangesOverlap(aStart, aSize, bStart, bSize uint32) bool {
	if aSize == 0 || bSize == 0 {
		return false
	}
	return aStart < bStart+bSize && bStart < aStart+aSize
}

func (o *Orchestrator) now() uint64 {
	if o.Clock == nil {
		return 0
	}
	return o.Clock.NowMicros()
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
