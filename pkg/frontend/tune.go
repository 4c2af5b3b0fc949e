package frontend

import (
	"errors"
	"fmt"
	"time"

	"github.com/herlein/godtv/pkg/avl6381"
	"github.com/herlein/godtv/pkg/it930x"
	"github.com/herlein/godtv/pkg/metrics"
	"github.com/herlein/godtv/pkg/mxl603"
)

// Receivable frequency range in Hz
const (
	MinFrequency = 42000000
	MaxFrequency = 858000000
)

const (
	statusAttempts = 29
	statusInterval = 20 * time.Millisecond
)

// Status is one pull of the upward status surface
type Status struct {
	System    string `json:"system" msgpack:"system"`
	Frequency uint32 `json:"frequency" msgpack:"frequency"`
	Locked    bool   `json:"locked" msgpack:"locked"`
	// RxPower is the tuner input power in 0.01 dBm
	RxPower int16 `json:"rx_power" msgpack:"rx_power"`
	// Strength is the inverted tuner strength scaled by ten
	Strength int64 `json:"strength" msgpack:"strength"`
	// CNR is the carrier to noise ratio in 0.001 dB: the demodulator SNR,
	// read in 0.01 dB, scaled by ten
	CNR          int64  `json:"cnr" msgpack:"cnr"`
	PreBitErrors uint32 `json:"pre_bit_errors" msgpack:"pre_bit_errors"`
	PreBitCount  uint32 `json:"pre_bit_count" msgpack:"pre_bit_count"`
}

// CNRdB returns CNR in dB
func (s Status) CNRdB() float64 {
	return float64(s.CNR) / 1000
}

// route maps a delivery system to the demodulator profile and tuner mode
func route(system it930x.DeliverySystem) (avl6381.Profile, mxl603.SignalMode, error) {
	switch system {
	case it930x.DeliveryDTMB, it930x.DeliveryDVBT:
		return avl6381.ProfileDTMB, mxl603.ModeDVBTDTMB, nil
	case it930x.DeliveryDVBC:
		return avl6381.ProfileDVBC, mxl603.ModeDVBC, nil
	}
	return avl6381.ProfileUnknown, 0, fmt.Errorf("%w: %s", ErrUnsupportedSystem, system)
}

// Tune selects the RF input, switches the demodulator profile, tunes the
// tuner and acquires the channel. A failed tune is not retried.
func (f *Frontend) Tune(system it930x.DeliverySystem, freq, bandwidthHz uint32) error {
	if freq < MinFrequency || freq > MaxFrequency {
		return fmt.Errorf("%w: %d Hz", ErrFrequencyRange, freq)
	}
	profile, mode, err := route(system)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.tuned = false
	log := f.log.WithValues("system", system.String(), "frequency", freq)
	log.V(1).Info("tuning")

	if err := f.bridge.SelectTunerInput(system); err != nil {
		return err
	}
	if err := f.demod.SetMode(profile); err != nil {
		return fmt.Errorf("failed to switch to %s: %w", profile, err)
	}
	if err := f.tuner.SetParams(mode, freq, bandwidthHz); err != nil {
		return fmt.Errorf("failed to tune %d Hz: %w", freq, err)
	}
	if profile == avl6381.ProfileDTMB {
		if err := f.demod.SetSymbolRate(avl6381.DTMBSymbolRate); err != nil {
			return fmt.Errorf("failed to set symbol rate: %w", err)
		}
	}
	if err := f.demod.Lock(profile); err != nil {
		log.Info("lock failed", "state", f.demod.State().String(), "error", err.Error())
		return fmt.Errorf("failed to lock %d Hz: %w", freq, err)
	}

	f.system = system
	f.freq = freq
	f.tuned = true
	log.Info("tuned")
	return nil
}

// ReadStatus polls for lock with a non-zero tuner strength, then samples
// SNR and the pre-decoder error counters. Lock is reported only when both
// the demodulator and the tuner agree.
func (f *Frontend) ReadStatus() (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := Status{System: f.system.String(), Frequency: f.freq}
	var strength uint16
	for i := 0; i < statusAttempts; i++ {
		locked, err := f.demod.LockStatus()
		if err != nil {
			return st, fmt.Errorf("failed to read lock status: %w", err)
		}
		if locked {
			p, err := f.tuner.RxPower()
			if err != nil {
				return st, fmt.Errorf("failed to read strength: %w", err)
			}
			st.RxPower = p
			strength = uint16(-p)
			if strength != 0 {
				st.Locked = true
				break
			}
		}
		f.sleep(statusInterval)
	}
	st.Strength = -int64(strength) * 10

	var errs []error
	snr, err := f.demod.SNR()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read snr: %w", err))
	}
	st.CNR = int64(snr) * 10
	st.PreBitErrors, st.PreBitCount, err = f.demod.ErrorCounts()
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read error counters: %w", err))
	}

	f.observe(st)
	return st, errors.Join(errs...)
}

// observe publishes a status sample to the signal gauges
func (f *Frontend) observe(st Status) {
	locked := 0.0
	if st.Locked {
		locked = 1
	}
	metrics.SignalLocked.WithLabelValues(f.name).Set(locked)
	metrics.SignalStrength.WithLabelValues(f.name).Set(float64(st.Strength))
	metrics.SignalCNR.WithLabelValues(f.name).Set(st.CNRdB())
	metrics.PreBERErrorsTotal.WithLabelValues(f.name).Set(float64(st.PreBitErrors))
}
