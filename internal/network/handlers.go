// ABOUTME: Endpoint dispatch for /status, /led, /gain and /play
// ABOUTME: Validates parameters at the boundary and posts into the control mailbox
package network

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/pcmbox/internal/mailbox"
)

// Request defaults when a parameter is omitted
const (
	defaultDuration = 5.0
	defaultVolume   = 0.5
)

// Mailbox is the slice of the control mailbox the network side writes
type Mailbox interface {
	PostPlay(req mailbox.PlayRequest) error
	PostGain(req mailbox.GainRequest)
}

// Dispatcher maps parsed requests onto mailbox posts and LED changes
type Dispatcher struct {
	mailbox Mailbox
	leds    LEDBank
	status  func() Status
}

// NewDispatcher creates a dispatcher. status is read by /status only.
func NewDispatcher(mb Mailbox, leds LEDBank, status func() Status) *Dispatcher {
	return &Dispatcher{mailbox: mb, leds: leds, status: status}
}

// Dispatch answers one request. parseErr is the result of ParseRequest.
func (d *Dispatcher) Dispatch(req Request, parseErr error) Response {
	if parseErr != nil {
		if errors.Is(parseErr, ErrMethodNotAllowed) {
			return failure(http.StatusOK, "Only GET requests are supported")
		}
		return failure(http.StatusOK, "Invalid request format")
	}

	switch req.Path {
	case "/status":
		return d.handleStatus()
	case "/led":
		return d.handleLED(req)
	case "/gain":
		return d.handleGain(req)
	case "/play":
		return d.handlePlay(req)
	default:
		return failure(http.StatusOK, "Unknown endpoint: %s", req.Path)
	}
}

func (d *Dispatcher) handleStatus() Response {
	st := d.status()
	connected := st.State.Phase == Connected

	ip := "Not connected"
	if connected && st.State.IP != "" {
		ip = st.State.IP
	}

	return Response{Code: http.StatusOK, Body: statusBody{
		Status:        statusSuccess,
		WifiConnected: connected,
		ServerRunning: st.ServerRunning,
		IPAddress:     ip,
	}}
}

func (d *Dispatcher) handleLED(req Request) Response {
	raw := req.Param("num", "0")
	num, err := strconv.Atoi(raw)
	if err != nil {
		return failure(http.StatusOK, "Invalid LED number: %s", raw)
	}
	on := strings.EqualFold(req.Param("state", "off"), "on")

	state := "off"
	if on {
		state = "on"
	}

	switch {
	case num == 0:
		if err := d.leds.SetAll(on); err != nil {
			return failure(http.StatusOK, "LED update failed: %v", err)
		}
		return success("All LEDs set to %s", state)
	case num >= 1 && num <= 4:
		if err := d.leds.Set(num, on); err != nil {
			return failure(http.StatusOK, "LED update failed: %v", err)
		}
		return success("LED %d set to %s", num, state)
	default:
		return failure(http.StatusOK, "Invalid LED number: %d", num)
	}
}

func (d *Dispatcher) handleGain(req Request) Response {
	level, err := strconv.Atoi(req.Param("level", "0"))
	if err != nil {
		return failure(http.StatusOK, "Gain level must be a number (0-3)")
	}
	if level < 0 || level > 3 {
		return failure(http.StatusOK, "Invalid gain level: %d. Must be 0-3.", level)
	}

	d.mailbox.PostGain(mailbox.GainRequest{Level: level})
	return success("Gain level set to %d", level)
}

func (d *Dispatcher) handlePlay(req Request) Response {
	duration, err := parseFloatParam(req, "duration", defaultDuration)
	if err != nil {
		return failure(http.StatusOK, "Duration must be a number of seconds")
	}
	// A zero duration still plays the pre-fill; negative behaves the same
	if duration < 0 {
		duration = 0
	}
	volume, err := parseFloatParam(req, "volume", defaultVolume)
	if err != nil || volume < 0 || volume > 1 {
		return failure(http.StatusOK, "Volume must be a number between 0 and 1")
	}

	play := mailbox.PlayRequest{
		Duration: secondsToDuration(duration),
		Volume:   volume,
	}
	if err := d.mailbox.PostPlay(play); err != nil {
		if errors.Is(err, mailbox.ErrPlaybackBusy) {
			return failure(http.StatusConflict, "Audio already playing, request rejected")
		}
		return failure(http.StatusOK, "Play request failed: %v", err)
	}

	return success("Play request set: duration=%gs, volume=%g", duration, volume)
}

func parseFloatParam(req Request, name string, def float64) (float64, error) {
	raw, ok := req.Params[name]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
