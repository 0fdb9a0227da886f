package main

import (
	"github.com/SakuraBurst/bored/internal/bored"
	"github.com/SakuraBurst/bored/internal/bored/config"
)

func main() {
	cfg := config.MustLoad()
	a := bored.NewApp(cfg)
	if err := a.Run(); err != nil {
		panic(err)
	}
}
