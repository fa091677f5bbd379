// Package app wires the pointer mapper, the shake classifier, the device
// links and the plugin actions into the running irplan service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/irplan/internal/capture"
	"github.com/ayusman/irplan/internal/config"
	"github.com/ayusman/irplan/internal/geometry"
	"github.com/ayusman/irplan/internal/gesture"
	"github.com/ayusman/irplan/internal/link"
	"github.com/ayusman/irplan/internal/plugin"
	"github.com/ayusman/irplan/internal/pointer"
	"github.com/ayusman/irplan/internal/store"
)

// ShakeCooldown is the minimum time between two handled shakes. Shake
// notifications inside the cooldown are ignored.
const ShakeCooldown = time.Second

// Settings keys persisted in the store.
const (
	SettingDisplayWidth  = "display.width"
	SettingDisplayHeight = "display.height"
)

// ErrNoStore is returned when the store corpus source is selected without a store.
var ErrNoStore = errors.New("gesture source store requires a database")

// Config holds the application dependencies.
type Config struct {
	Settings config.Config
	// Store holds the training corpus, action bindings and persisted
	// settings. It may be nil when the corpus comes from CSV files.
	Store *store.Store
	// Camera overrides the capture device for link mode camera.
	Camera capture.Camera
	// Publishers receive every pointer and gesture event in addition to
	// the configured device link.
	Publishers []link.Publisher
}

// App is the irplan service. It implements link.Sink.
type App struct {
	settings config.Config
	store    *store.Store

	pointerMu sync.Mutex
	mapper    *pointer.Mapper

	accelMu    sync.Mutex
	classifier *gesture.Classifier

	enabled atomic.Bool

	pubMu      sync.RWMutex
	publishers []link.Publisher

	pluginMgr  *plugin.Manager
	dispatcher *plugin.Dispatcher

	shakeMu   sync.Mutex
	lastShake time.Time
	shakes    int

	camera capture.Camera
	blobs  *capture.BlobDetector
	frames frameBuffer

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mqtt    *link.MQTT

	// lifeMu orders wg.Add against the cancel that precedes wg.Wait.
	lifeMu sync.Mutex
	wg     sync.WaitGroup
}

// New creates the App and trains the classifier. A training failure is
// returned when gesture.required is set; otherwise gesture detection is
// disabled and the app runs pointer mapping only.
func New(cfg Config) (*App, error) {
	s := cfg.Settings
	if err := s.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		settings:   s,
		store:      cfg.Store,
		classifier: gesture.New(),
		publishers: append([]link.Publisher(nil), cfg.Publishers...),
		pluginMgr:  plugin.NewManager(s.Plugins.Dir),
		ctx:        ctx,
		cancel:     cancel,
	}
	a.enabled.Store(true)
	a.dispatcher = plugin.NewDispatcher(a.pluginMgr, plugin.NewExecutor(s.Plugins.TimeoutMs))

	width, height := a.displaySize()
	a.mapper = pointer.NewMapper(pointer.Config{
		Width:     width,
		Height:    height,
		InvertY:   s.Display.InvertY,
		Boresight: geometry.Point2D{X: s.Display.BoresightX, Y: s.Display.BoresightY},
	})

	a.classifier.Subscribe(a.onShake)
	if err := a.train(); err != nil {
		if s.Gesture.Required {
			cancel()
			return nil, fmt.Errorf("train classifier: %w", err)
		}
		log.Printf("Gesture detection disabled: %v", err)
	}

	if err := a.pluginMgr.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	if s.Link.Mode == config.LinkCamera {
		a.camera = cfg.Camera
		if a.camera == nil {
			a.camera = capture.NewCamera(s.Camera.DeviceID)
		}
		a.blobs = capture.NewBlobDetector(s.Camera.Threshold, s.Camera.MinArea)
	}

	return a, nil
}

// train fits the classifier from the configured corpus source.
func (a *App) train() error {
	src, err := a.corpusSource()
	if err != nil {
		return err
	}

	corpus, err := gesture.LoadCorpus(src)
	if err != nil {
		return err
	}
	return a.classifier.Train(corpus)
}

func (a *App) corpusSource() (gesture.CorpusSource, error) {
	switch a.settings.Gesture.Source {
	case config.SourceCSV:
		return gesture.CSVSource{Dir: a.settings.Gesture.CSVDir}, nil
	default:
		if a.store == nil {
			return nil, ErrNoStore
		}
		return a.store.Training(), nil
	}
}

// displaySize returns the persisted display size, falling back to the
// configured one.
func (a *App) displaySize() (float64, float64) {
	width, height := a.settings.Display.Width, a.settings.Display.Height
	if a.store == nil {
		return width, height
	}

	settings := a.store.Settings()
	w, errW := settings.Get(SettingDisplayWidth)
	h, errH := settings.Get(SettingDisplayHeight)
	if errW != nil || errH != nil {
		return width, height
	}

	pw, errW := strconv.ParseFloat(w, 64)
	ph, errH := strconv.ParseFloat(h, 64)
	if errW != nil || errH != nil || pw <= 0 || ph <= 0 {
		log.Printf("Ignoring invalid persisted display size %q x %q", w, h)
		return width, height
	}
	return pw, ph
}

// Resize changes the display working area and persists it.
func (a *App) Resize(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("display size must be positive, got %gx%g", width, height)
	}

	a.pointerMu.Lock()
	a.mapper.Resize(width, height)
	a.pointerMu.Unlock()

	if a.store == nil {
		return nil
	}
	settings := a.store.Settings()
	if err := settings.Set(SettingDisplayWidth, strconv.FormatFloat(width, 'g', -1, 64)); err != nil {
		return err
	}
	return settings.Set(SettingDisplayHeight, strconv.FormatFloat(height, 'g', -1, 64))
}

// AddPublisher registers p for every subsequent pointer and gesture event.
func (a *App) AddPublisher(p link.Publisher) {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	a.publishers = append(a.publishers, p)
}

// SetEnabled pauses or resumes processing of device samples.
func (a *App) SetEnabled(enabled bool) {
	a.enabled.Store(enabled)
	if enabled {
		log.Println("Tracking resumed")
	} else {
		log.Println("Tracking paused")
	}
}

// IsEnabled reports whether device samples are processed.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// GestureEnabled reports whether the classifier was trained.
func (a *App) GestureEnabled() bool {
	return a.classifier.Trained()
}

// Classifier returns the shake classifier.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// HandleBlobs maps one IR frame and publishes the new pointer position.
// Frames that do not resolve to a position are dropped.
func (a *App) HandleBlobs(blobs []pointer.Blob) {
	if !a.IsEnabled() {
		return
	}

	a.pointerMu.Lock()
	p, ok := a.mapper.Map(blobs)
	a.pointerMu.Unlock()

	if ok {
		a.publishPointer(link.NewPointerEvent(p))
	}
}

// HandleAccel feeds one acceleration sample to the classifier. Shake
// handling runs synchronously from here through onShake.
func (a *App) HandleAccel(x, y, z float64) {
	if !a.IsEnabled() || !a.classifier.Trained() {
		return
	}

	a.accelMu.Lock()
	defer a.accelMu.Unlock()
	a.classifier.Push(x, y, z)
}

// Position returns the last smoothed pointer position.
func (a *App) Position() (geometry.Point2D, bool) {
	a.pointerMu.Lock()
	defer a.pointerMu.Unlock()
	return a.mapper.Position()
}

// Shakes returns the number of shakes handled since startup.
func (a *App) Shakes() int {
	a.shakeMu.Lock()
	defer a.shakeMu.Unlock()
	return a.shakes
}

func (a *App) onShake() {
	if a.ctx.Err() != nil {
		return
	}
	now := time.Now()

	a.shakeMu.Lock()
	if !a.lastShake.IsZero() && now.Sub(a.lastShake) < ShakeCooldown {
		a.shakeMu.Unlock()
		return
	}
	a.lastShake = now
	a.shakes++
	a.shakeMu.Unlock()

	log.Println("Shake detected")
	a.publishGesture(link.NewGestureEvent(string(gesture.Shake)))

	bindings := a.bindings(string(gesture.Shake))
	if len(bindings) == 0 {
		return
	}

	var pos *geometry.Point2D
	if p, ok := a.Position(); ok {
		pos = &p
	}

	if !a.track(func() {
		a.dispatcher.Run(a.ctx, string(gesture.Shake), pos, bindings)
	}) {
		log.Println("Shake actions skipped, app is stopping")
	}
}

// track runs fn on a new goroutine that Stop waits for. It returns false
// without running fn once Stop has begun.
func (a *App) track(fn func()) bool {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	if a.ctx.Err() != nil {
		return false
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
	return true
}

// bindings returns the enabled plugin actions bound to category.
func (a *App) bindings(category string) []plugin.Binding {
	if a.store == nil {
		return nil
	}

	actions, err := a.store.Actions().ListByCategory(category)
	if err != nil {
		log.Printf("Failed to load actions for %s: %v", category, err)
		return nil
	}

	var out []plugin.Binding
	for _, act := range actions {
		if !act.Enabled {
			continue
		}
		out = append(out, plugin.Binding{
			PluginName: act.PluginName,
			ActionName: act.ActionName,
			Config:     act.Config,
		})
	}
	return out
}

func (a *App) publishPointer(e link.PointerEvent) {
	for _, p := range a.snapshotPublishers() {
		if err := p.PublishPointer(e); err != nil {
			log.Printf("Failed to publish pointer: %v", err)
		}
	}
}

func (a *App) publishGesture(e link.GestureEvent) {
	for _, p := range a.snapshotPublishers() {
		if err := p.PublishGesture(e); err != nil {
			log.Printf("Failed to publish gesture: %v", err)
		}
	}
}

func (a *App) snapshotPublishers() []link.Publisher {
	a.pubMu.RLock()
	defer a.pubMu.RUnlock()
	return append([]link.Publisher(nil), a.publishers...)
}

// Start opens the configured device link and begins processing samples.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}
	if a.ctx.Err() != nil {
		return errors.New("app already stopped")
	}

	switch a.settings.Link.Mode {
	case config.LinkMQTT:
		m := link.NewMQTT(link.MQTTConfig{
			Broker:      a.settings.MQTT.Broker,
			ClientID:    a.settings.MQTT.ClientID,
			TopicPrefix: a.settings.MQTT.TopicPrefix,
			QoS:         a.settings.MQTT.QoS,
			Username:    a.settings.MQTT.Username,
			Password:    a.settings.MQTT.Password,
		})
		if err := a.startMQTT(m); err != nil {
			return err
		}

	case config.LinkSerial:
		s := link.NewSerial(link.SerialConfig{
			Port:     a.settings.Serial.Port,
			BaudRate: a.settings.Serial.BaudRate,
		})
		a.AddPublisher(s)
		a.track(func() {
			if err := s.Run(a.ctx, a); err != nil && a.ctx.Err() == nil {
				log.Printf("Serial link stopped: %v", err)
			}
		})

	case config.LinkCamera:
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("open camera: %w", err)
		}
		a.camera.SetFPS(a.settings.Camera.FPS)
		a.track(a.runCamera)
	}

	a.running = true
	log.Printf("Started with link mode %s", a.settings.Link.Mode)
	return nil
}

// startMQTT connects m and subscribes the app to its sample topics.
func (a *App) startMQTT(m *link.MQTT) error {
	if err := m.Connect(); err != nil {
		return err
	}
	if err := m.Subscribe(a); err != nil {
		m.Close()
		return err
	}
	a.mqtt = m
	a.AddPublisher(m)
	return nil
}

// Stop halts the device link and waits for running plugin actions. An
// App cannot be restarted after Stop.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lifeMu.Lock()
	a.cancel()
	a.lifeMu.Unlock()
	a.wg.Wait()

	if a.mqtt != nil {
		a.mqtt.Close()
		a.mqtt = nil
	}
	if a.camera != nil && a.camera.IsOpen() {
		if err := a.camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}
	a.frames.close()

	if a.running {
		a.running = false
		log.Println("Stopped")
	}
}
