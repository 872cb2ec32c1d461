package thermo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"endobit.io/app/log"
)

// printer adapts a slog.Logger to the paho mqtt.Logger interface at a fixed
// level. Paho prefixes messages with a bracketed component name, which is
// split out into an attribute.
type printer struct {
	logger *slog.Logger
	level  slog.Level
}

func (p printer) Printf(format string, v ...any) {
	p.log("", strings.Trim(fmt.Sprintf(format, v...), "[]"))
}

func (p printer) Println(v ...any) {
	var comp string

	if len(v) > 1 {
		comp = strings.Trim(strings.TrimSpace(fmt.Sprint(v[0])), "[]")
		v = v[1:]
	}

	p.log(comp, strings.Trim(fmt.Sprint(v...), "[]"))
}

func (p printer) log(component, msg string) {
	if component != "" {
		p.logger.LogAttrs(context.TODO(), p.level, msg, slog.String("component", component))
	} else {
		p.logger.LogAttrs(context.TODO(), p.level, msg)
	}
}

// SetLogger routes the paho package loggers to logger. Paho debug output is
// logged at the trace level.
func SetLogger(logger *slog.Logger) {
	mqtt.ERROR = printer{logger, slog.LevelError}
	mqtt.CRITICAL = printer{logger, slog.LevelError}
	mqtt.WARN = printer{logger, slog.LevelWarn}
	mqtt.DEBUG = printer{logger, log.LevelTrace}
}
