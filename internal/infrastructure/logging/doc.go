// Package logging wraps log/slog for the monome daemon: a service and
// version field on every line, JSON or text output, level filtering
// from the logging section of config.yaml.
//
// Because Logger embeds *slog.Logger it plugs straight into the
// optional Logger interfaces the monome service and the MQTT bridge
// accept:
//
//	log := logging.New(cfg.Logging, version)
//	svc := monome.NewService(monome.ServiceOptions{Logger: log, ...})
package logging
