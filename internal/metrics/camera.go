// Package metrics provides Prometheus instruments for the camera
// dispatch engine, exposed over HTTP via promhttp.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camgate",
		Subsystem: "worker",
		Name:      "commands_total",
		Help:      "Commands executed on device worker loops",
	}, []string{"device_id", "op"})

	waitTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camgate",
		Subsystem: "worker",
		Name:      "wait_timeouts_total",
		Help:      "Synchronous waits that expired before their command completed",
	}, []string{"device_id", "op"})

	faultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camgate",
		Subsystem: "worker",
		Name:      "faults_total",
		Help:      "Worker faults that forced a device session into its error state",
	}, []string{"device_id"})

	openDevices = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "camgate",
		Subsystem: "camera",
		Name:      "open_devices",
		Help:      "Device sessions currently open",
	})

	picturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camgate",
		Subsystem: "camera",
		Name:      "pictures_total",
		Help:      "Pictures captured",
	}, []string{"device_id"})
)

// CommandExecuted records one command run on a device loop.
func CommandExecuted(deviceID int, op string) {
	commandsTotal.WithLabelValues(strconv.Itoa(deviceID), op).Inc()
}

// WaitTimedOut records a caller-side wait expiry.
func WaitTimedOut(deviceID int, op string) {
	waitTimeoutsTotal.WithLabelValues(strconv.Itoa(deviceID), op).Inc()
}

// Handler returns the Prometheus metrics HTTP handler. It collects all
// promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
