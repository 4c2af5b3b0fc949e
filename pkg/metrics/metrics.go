package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BridgeTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dtv_bridge_transactions_total",
			Help: "Number of bridge command transactions by command and result",
		},
		[]string{"command", "result"},
	)

	BridgeChecksumErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dtv_bridge_checksum_errors_total",
			Help: "Number of bridge responses that failed checksum validation",
		},
	)

	FirmwareBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dtv_firmware_bytes_total",
			Help: "Number of firmware bytes pushed to the bridge",
		},
	)

	DemodPollTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dtv_demod_poll_timeouts_total",
			Help: "Number of demodulator polling steps that exhausted their budget",
		},
		[]string{"step"},
	)

	LockAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dtv_lock_attempts_total",
			Help: "Number of lock attempts by profile and result",
		},
		[]string{"profile", "result"},
	)

	SignalLocked = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dtv_signal_locked",
			Help: "1 when the frontend reports lock",
		},
		[]string{"device"},
	)

	SignalStrength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dtv_signal_strength",
			Help: "Reported signal strength in frontend units",
		},
		[]string{"device"},
	)

	SignalCNR = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dtv_signal_cnr_decibels",
			Help: "Carrier to noise ratio in dB",
		},
		[]string{"device"},
	)

	PreBERErrorsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dtv_pre_ber_errors",
			Help: "Pre error correction bit error count",
		},
		[]string{"device"},
	)
)

func init() {
	prometheus.MustRegister(BridgeTransactionsTotal)
	prometheus.MustRegister(BridgeChecksumErrorsTotal)
	prometheus.MustRegister(FirmwareBytesTotal)
	prometheus.MustRegister(DemodPollTimeoutsTotal)
	prometheus.MustRegister(LockAttemptsTotal)
	prometheus.MustRegister(SignalLocked)
	prometheus.MustRegister(SignalStrength)
	prometheus.MustRegister(SignalCNR)
	prometheus.MustRegister(PreBERErrorsTotal)
}
