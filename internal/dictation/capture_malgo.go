package dictation

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/gen2brain/malgo"
)

// Capture records raw signed 16-bit mono PCM
type Capture interface {
	Start() error
	// Stop ends capture and returns everything recorded
	Stop() ([]byte, error)
}

var errCaptureStopped = errors.New("capture already stopped")

type malgoCapture struct {
	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	pcm     []byte
	stopped bool
}

func platformBackends() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return nil
	}
}

// newMalgoCapture opens the default capture device
func newMalgoCapture(sampleRate uint32) (Capture, error) {
	ctx, err := malgo.InitContext(platformBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio context init failed: %w", err)
	}

	c := &malgoCapture{ctx: ctx}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = sampleRate
	deviceConfig.Alsa.NoMMap = 1

	onReceiveFrames := func(_, samples []byte, _ uint32) {
		c.mu.Lock()
		if !c.stopped {
			c.pcm = append(c.pcm, samples...)
		}
		c.mu.Unlock()
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onReceiveFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("capture device init failed: %w", err)
	}
	c.device = device

	return c, nil
}

func (c *malgoCapture) Start() error {
	if err := c.device.Start(); err != nil {
		c.release()
		return fmt.Errorf("capture device start failed: %w", err)
	}
	return nil
}

func (c *malgoCapture) Stop() ([]byte, error) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil, errCaptureStopped
	}
	c.stopped = true
	pcm := c.pcm
	c.pcm = nil
	c.mu.Unlock()

	err := c.device.Stop()
	c.release()
	return pcm, err
}

func (c *malgoCapture) release() {
	c.device.Uninit()
	_ = c.ctx.Uninit()
	c.ctx.Free()
}
