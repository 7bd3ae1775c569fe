package logging

import (
	"fmt"
	"io"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/config"
)

// logdyWriter forwards each JSON log line to the embedded Logdy UI
type logdyWriter struct {
	ld logdy.Logdy
}

func (w *logdyWriter) Write(p []byte) (int, error) {
	w.ld.LogString(string(p))
	return len(p), nil
}

// Output returns the writer the global logger should use. With Logdy enabled the
// console stream is teed to the embedded web viewer; otherwise console is returned as-is.
func Output(cfg *config.Config, console io.Writer) io.Writer {
	if !cfg.LogdyEnabled {
		return console
	}

	port := strconv.Itoa(cfg.LogdyPort)
	ld := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: port,
	}, nil)

	log.Info().
		Str("url", fmt.Sprintf("http://%s:%s", cfg.LogdyHost, port)).
		Msg("Logdy UI available")

	return zerolog.MultiLevelWriter(console, &logdyWriter{ld: ld})
}
