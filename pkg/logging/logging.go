// Пакет logging создаёт zerolog-логгер приложения
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New создаёт логгер с уровнем level. В окружении development вывод человекочитаемый,
// в остальных - JSON-строки. Неизвестный уровень заменяется на info
func New(out io.Writer, level, env string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
