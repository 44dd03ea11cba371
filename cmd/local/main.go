package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wsdottie/dottie-go/internal/observability"
	"github.com/wsdottie/dottie-go/pkg/dottie"
)

func main() {
	var (
		accessCode = flag.String("access-code", "", "WSDOT/WSF access code")
		api        = flag.String("api", "", "API to query (e.g. wsdot-travel-times)")
		function   = flag.String("function", "", "Endpoint function to query")
		logLevel   = flag.String("log-level", "warn", "Log level")
	)
	flag.Parse()

	logger := observability.InitLogger("dottie-local", *logLevel)

	// Fallback to environment variable if access code not provided via flag
	if *accessCode == "" {
		*accessCode = os.Getenv(dottie.AccessTokenEnv)
	}
	if *accessCode == "" {
		logger.Fatal().Msg("access code required (use -access-code flag or " + dottie.AccessTokenEnv + " env var)")
	}

	config := dottie.DefaultConfig()
	config.AccessCode = *accessCode
	config.Logger = &logger

	client, err := dottie.NewLocal(config)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Single endpoint mode prints the decoded payload
	if *api != "" {
		resp, err := client.Fetch(ctx, *api, *function, queryParams(flag.Args()))
		if err != nil {
			logger.Fatal().Err(err).Str("api", *api).Str("function", *function).Msg("fetch failed")
		}
		fmt.Println(resp.Value.String())
		return
	}

	// Default mode shows ferries and border waits
	vessels, err := dottie.GetVesselLocations(ctx, client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get vessel locations")
	}
	fmt.Println("\nFerries in service:")
	for _, v := range vessels {
		if !v.InService {
			continue
		}
		status := "underway"
		if v.AtDock {
			status = "at dock"
		}
		fmt.Printf("- %s (%s) %s, %.1f kn\n", v.VesselName, v.DepartingTerminalName, status, v.Speed)
		if !v.Eta.IsZero() {
			fmt.Printf("    ETA %s\n", v.Eta.Local().Format("3:04 PM"))
		}
	}

	crossings, err := dottie.GetBorderCrossings(ctx, client)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to get border crossings")
	}
	fmt.Println("\nBorder crossing waits:")
	for _, c := range crossings {
		fmt.Printf("- %s: %d min\n", c.CrossingName, c.WaitTime)
	}

	if flushed, err := dottie.GetCacheFlushDate(ctx, client, "wsf-vessels"); err == nil {
		fmt.Printf("\nVessel data last flushed: %s\n", flushed.Local().Format("3:04 PM"))
	}
	fmt.Printf("Last update: %s\n", client.GetLastUpdate().Local().Format("3:04 PM"))
}

// queryParams turns Name=value arguments into endpoint params
func queryParams(args []string) map[string]string {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		if name, value, ok := strings.Cut(arg, "="); ok {
			params[name] = value
		}
	}
	return params
}
