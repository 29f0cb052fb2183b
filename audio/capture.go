package audio

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// CaptureSampleRate частота захвата микрофона. Анализ при необходимости
// ресемплирует через Resample.
const CaptureSampleRate = 48000

// AudioDevice устройство захвата
type AudioDevice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsInput bool   `json:"isInput"`
}

// Recorder захватывает моно поток с микрофона через miniaudio
type Recorder struct {
	ctx      *malgo.AllocatedContext
	device   *malgo.Device
	deviceID *malgo.DeviceID

	dataChan chan []float32
	mu       sync.Mutex
	running  bool
}

func NewRecorder() (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		ctx:      ctx,
		dataChan: make(chan []float32, 1000), // большой буфер чтобы не терять данные
	}, nil
}

// ListDevices возвращает доступные устройства захвата
func (r *Recorder) ListDevices() ([]AudioDevice, error) {
	captureDevices, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]AudioDevice, 0, len(captureDevices))
	for _, dev := range captureDevices {
		devices = append(devices, AudioDevice{
			ID:      deviceIDToString(dev.ID),
			Name:    dev.Name(),
			IsInput: true,
		})
	}
	return devices, nil
}

// SetDevice выбирает микрофон по ID; пустой ID означает дефолтный
func (r *Recorder) SetDevice(deviceID string) error {
	if deviceID == "" || deviceID == "default" {
		r.deviceID = nil
		return nil
	}
	id, err := stringToDeviceID(deviceID)
	if err != nil {
		return err
	}
	r.deviceID = id
	return nil
}

// SetDeviceID выбирает устройство напрямую (например из FindDeviceByName)
func (r *Recorder) SetDeviceID(id *malgo.DeviceID) {
	r.deviceID = id
}

// FindDeviceByName ищет устройство по имени (частичное совпадение)
func (r *Recorder) FindDeviceByName(name string) (*malgo.DeviceID, error) {
	devices, err := r.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	nameLower := strings.ToLower(name)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name()), nameLower) {
			id := dev.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", name)
}

// Start запускает захват
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("already running")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = CaptureSampleRate
	deviceConfig.Alsa.NoMMap = 1

	if r.deviceID != nil {
		deviceConfig.Capture.DeviceID = r.deviceID.Pointer()
	}

	onRecvFrames := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		sampleCount := int(framecount)
		if len(pInputSamples) != sampleCount*4 {
			return
		}
		samples := make([]float32, sampleCount)
		for i := 0; i < sampleCount; i++ {
			bits := uint32(pInputSamples[i*4]) | uint32(pInputSamples[i*4+1])<<8 |
				uint32(pInputSamples[i*4+2])<<16 | uint32(pInputSamples[i*4+3])<<24
			samples[i] = math.Float32frombits(bits)
		}
		// Блокируемся если буфер полон, данные не теряем
		r.dataChan <- samples
	}

	var err error
	r.device, err = malgo.InitDevice(r.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onRecvFrames,
	})
	if err != nil {
		return err
	}
	if err := r.device.Start(); err != nil {
		return err
	}

	r.running = true
	log.Println("Microphone capture started")
	return nil
}

// Stop останавливает захват
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.running = false
	log.Println("Microphone capture stopped")
	return nil
}

// Data возвращает канал с блоками сэмплов
func (r *Recorder) Data() <-chan []float32 {
	return r.dataChan
}

// ClearBuffer выбрасывает накопленные данные перед новой записью
func (r *Recorder) ClearBuffer() {
	for {
		select {
		case <-r.dataChan:
		default:
			return
		}
	}
}

// Close освобождает ресурсы
func (r *Recorder) Close() {
	r.Stop()
	if r.ctx != nil {
		r.ctx.Uninit()
		r.ctx.Free()
	}
}

func deviceIDToString(id malgo.DeviceID) string {
	var result strings.Builder
	for _, b := range id[:32] {
		if b == 0 {
			break
		}
		result.WriteByte(b)
	}
	return result.String()
}

func stringToDeviceID(s string) (*malgo.DeviceID, error) {
	if len(s) > 32 {
		return nil, fmt.Errorf("device ID too long")
	}
	var id malgo.DeviceID
	copy(id[:], []byte(s))
	return &id, nil
}
