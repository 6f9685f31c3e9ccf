// Package main provides the entry point for the Recipe Simplifier API server
package main

import (
	"flag"
	"time"

	"go.uber.org/fx"

	"github.com/recipesimplifier/api/internal/infrastructure/container"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	fx.New(
		fx.Supply(container.ConfigPath(*configPath)),
		container.Module,
		fx.StopTimeout(45*time.Second),
	).Run()
}
