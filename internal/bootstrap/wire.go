package bootstrap

import (
	"io"

	"github.com/rs/zerolog"

	"roomscribe/internal/audio"
	"roomscribe/internal/clock"
	"roomscribe/internal/config"
	"roomscribe/internal/livefeed"
	"roomscribe/internal/logging"
	"roomscribe/internal/ports"
	"roomscribe/internal/roomapi"
	"roomscribe/internal/transcript"
	"roomscribe/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
	Logger     zerolog.Logger
}

// Build wires all backend dependencies for the current runtime. Logs go to
// logOut, or stderr when it is nil.
func Build(eventSink ports.EventSink, logOut io.Writer) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, logOut)

	filter, err := transcript.Load(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}
	logger.Debug().Str("path", cfg.Rules.Path).Int("rules", filter.Len()).Msg("substitutions loaded")

	controller := usecase.NewSessionController(
		roomapi.NewClient(roomapi.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, logger),
		audio.NewFFMPEGRecorder(cfg.Audio.RecorderCommand),
		livefeed.NewClient(livefeed.Config{BaseURL: cfg.API.WSBaseURL, HandshakeTimeout: cfg.API.Timeout}, logger),
		clock.System{},
		filter,
		eventSink,
		logger,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
				Container:   cfg.Audio.Container,
			},
			HeartbeatInterval: cfg.Session.HeartbeatInterval,
			HistoryLimit:      cfg.Session.HistoryLimit,
			ChunkSize:         cfg.Session.ChunkSize,
		},
	)

	logger.Info().
		Str("api", cfg.API.BaseURL).
		Str("ws", cfg.API.WSBaseURL).
		Msg("services ready")
	return Services{Controller: controller, Config: cfg, Logger: logger}, nil
}
