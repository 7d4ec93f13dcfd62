package main

import (
	"flag"
	"runtime"
	"strings"
	"time"

	"github.com/devblok/torero/core"
	"github.com/devblok/torero/device"
	"github.com/devblok/torero/environment"
	"github.com/devblok/torero/gpu"
	"github.com/devblok/torero/gui"
	"github.com/devblok/torero/model"
	"github.com/devblok/torero/pointcloud"
	"github.com/devblok/torero/resource"
	"github.com/devblok/torero/text"
	"github.com/devblok/torero/utility/kar"
	"github.com/gobuffalo/packr"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

func init() {
	runtime.LockOSThread()
}

var (
	configFile = flag.String("config", "", "YAML or TOML configuration file")
	models     = flag.String("models", "", "Comma separated model folders to load")
	clouds     = flag.String("clouds", "", "Comma separated KITTI velodyne frames to load")
	font       = flag.String("font", "", "BMFont description of the font to load")
	instrument = flag.String("speedometer", "", "Folder of the speedometer instrument")
	compass    = flag.String("compass", "", "Folder of the compass instrument")
	sequence   = flag.String("sequence", "", "KITTI drive sequence folder to load frames of")
	frames     = flag.Int("frames", 1, "Number of frames loaded from the sequence")
	skybox     = flag.String("skybox", "", "Folder of the six skybox faces")
	icon       = flag.String("icon", "icon.png", "Window icon")
	watch      = flag.Bool("watch", false, "Reload models whose folder changes in the asset directory")
)

func main() {
	flag.Parse()

	if err := core.LoadEnvFiles(".env"); err != nil {
		logrus.Fatal(err)
	}
	configuration, err := core.LoadConfiguration(*configFile)
	if err != nil {
		logrus.Fatal(err)
	}
	log, err := core.NewLogger(configuration.Log, nil)
	if err != nil {
		logrus.Fatal(err)
	}

	dir := resource.NewDir(configuration.Assets.Directory)
	src, closeSource, err := newSource(dir, configuration.Assets, log)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSource()

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatal(err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(configuration.Window.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(configuration.Window.Width),
		int32(configuration.Window.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		log.Fatal(err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		log.Fatal(err)
	}
	defer renderer.Destroy()

	wakeEvent := sdl.RegisterEvents(1)
	notify := func() {
		sdl.PushEvent(&sdl.UserEvent{Type: wakeEvent, Timestamp: sdl.GetTicks()})
	}

	dev := device.NewSDL(renderer, device.DefaultCamera(), log)
	engine := core.NewEngine(configuration, dev, log, notify)
	defer engine.Close()

	if *icon != "" {
		setIcon := resource.LoadImage(*icon, false, src, dev, log, func(img *gpu.Image) {
			surface, err := device.Surface(img)
			if err != nil {
				log.WithError(err).Warn("window icon")
				return
			}
			window.SetIcon(surface)
			surface.Free()
		})
		if err := engine.Load(setIcon); err != nil {
			log.Fatal(err)
		}
	}

	for _, r := range scene(src, dev, log) {
		if err := engine.Load(r); err != nil {
			log.Fatal(err)
		}
	}

	var reload func()
	if *watch {
		watcher, err := resource.Watch(dir, split(*models), log, notify)
		if err != nil {
			log.Fatal(err)
		}
		defer watcher.Close()

		reload = func() {
			for _, folder := range watcher.Changed() {
				if err := engine.Reload(model.NewLoader(folder, src, dev, log)); err != nil {
					log.WithError(err).WithField("folder", folder).Error("reload failed")
				}
			}
		}
	}

	log.WithField("workers", engine.Scheduler().Capacity()).Info("visualizer started")
	eventLoop(engine, dev, reload)
	log.Info("event loop exited")
}

// newSource chains the asset directory, the optional archive and the
// assets embedded in the binary.
func newSource(dir *resource.Dir, cfg core.AssetsConfiguration, log logrus.FieldLogger) (resource.Source, func(), error) {
	chain := resource.Chain{dir}
	closer := func() {}

	if cfg.Archive != "" {
		archive, err := kar.OpenFile(cfg.Archive)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("archive", cfg.Archive).Info("archive opened")
		chain = append(chain, resource.ArchiveSource{Archive: archive.Archive})
		closer = func() { archive.Close() }
	}

	box := packr.NewBox("./assets")
	chain = append(chain, resource.BoxSource{Box: &box})
	return chain, closer, nil
}

// scene lists the resources in paint order, the skybox first.
func scene(src resource.Source, dev *device.SDL, log logrus.FieldLogger) []core.Resource {
	var resources []core.Resource
	if *skybox != "" {
		resources = append(resources, environment.NewLoader(*skybox, src, dev, log))
	}
	resources = append(resources, model.NewLoader("axis", src, dev, log))

	for _, folder := range split(*models) {
		resources = append(resources, model.NewLoader(folder, src, dev, log))
	}
	for _, file := range split(*clouds) {
		resources = append(resources, pointcloud.NewLoader(file, src, dev, log))
	}
	if *sequence != "" {
		for n := 0; n < *frames; n++ {
			resources = append(resources, pointcloud.NewLoader(pointcloud.FrameName(*sequence, n), src, dev, log))
		}
	}
	if *font != "" {
		resources = append(resources, text.NewLoader(*font, "", src, dev, log))
	}
	if *instrument != "" {
		resources = append(resources, gui.NewLoader(*instrument, gui.SpeedometerParts, src, dev, log))
	}
	if *compass != "" {
		resources = append(resources, gui.NewLoader(*compass, gui.CompassParts, src, dev, log))
	}
	return resources
}

func split(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// eventLoop waits for events with a timeout while resources load,
// and blocks for the next event once everything is loaded. reload,
// when not nil, schedules changed assets before each update.
func eventLoop(engine *core.Engine, dev *device.SDL, reload func()) {
	for {
		var event sdl.Event
		if timeout, wait := engine.EventTimeout(); wait {
			event = sdl.WaitEventTimeout(int(timeout / time.Millisecond))
		} else {
			event = sdl.WaitEvent()
		}

		for ; event != nil; event = sdl.PollEvent() {
			switch et := event.(type) {
			case *sdl.QuitEvent:
				return
			case *sdl.KeyboardEvent:
				if et.Type != sdl.KEYDOWN {
					continue
				}
				switch et.Keysym.Sym {
				case sdl.K_ESCAPE:
					return
				case sdl.K_LEFT:
					dev.Camera().Orbit(-0.1)
				case sdl.K_RIGHT:
					dev.Camera().Orbit(0.1)
				case sdl.K_UP:
					dev.Camera().Zoom(0.9)
				case sdl.K_DOWN:
					dev.Camera().Zoom(1.1)
				}
			}
		}

		if reload != nil {
			reload()
		}
		engine.Update()

		dev.Clear()
		engine.Paint()
		dev.Present()

		<-engine.Time().FpsTicker().C
	}
}
