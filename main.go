// @title PlacePrep API
// @version 1.0
// @description Backend for the PlacePrep placement preparation platform: timed test series, free practice and leaderboards.

// @contact.name PlacePrep Support
// @contact.email support@placeprep.dev

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"os"

	"placeprep_backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
