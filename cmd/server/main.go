package main

import (
	"github.com/eleven-am/menu-capture/internal/bootstrap"
)

// @title Menu Capture API
// @version 1.0.0
// @description Transcribes camera menu screenshots into structured JSON and manages the menu workspace

// @BasePath /api/v1

func main() {
	bootstrap.Run()
}
