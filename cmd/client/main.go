package main

import (
	"context"
	"log"
	"os"

	"github.com/learnkeeper/learnkeeper/internal/buildinfo"
	"github.com/learnkeeper/learnkeeper/internal/client/app"
	"github.com/learnkeeper/learnkeeper/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	a.Run(ctx)

}
