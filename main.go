package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/alecthomas/kingpin.v2"
)

const version = "0.1.0"

var (
	cliApp = kingpin.New(
		"whereabouts",
		"Location resolution service for user supplied addresses and visitor IPs")

	debug = cliApp.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("WHEREABOUTS_DEBUG").
		Bool()
	configPath = cliApp.Arg("config-path", "Path to the config (hjson or toml).").
			Required().
			ExistingFile()
)

func main() {
	cliApp.Version(version)
	kingpin.MustParse(cliApp.Parse(os.Args[1:]))

	conf, err := parseConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot parse config")
	}

	ctx, cancel := makeRootContext()
	defer cancel()

	application, err := makeApp(conf, newLogger(*debug))
	if err != nil {
		log.Fatal().Err(err).Msg("cannot initialize application")
	}

	defer application.Close()

	srv := &http.Server{
		Addr:    conf.GetListen(),
		Handler: application.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer shutdownCancel()

		srv.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	log.Info().Str("listen", conf.GetListen()).Msg("start http server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("http server was closed")
	}
}
