package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shandysiswandi/stepup/internal/app"
)

// @title           Step-up API
// @version         1.0
// @description     Step-up authorization: sensitive operations are confirmed with a one-time code.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	application, err := app.New()
	if err != nil {
		slog.Error("failed to start application", "error", err)
		os.Exit(1)
	}

	<-application.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx)
}
