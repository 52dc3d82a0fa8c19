// Command todoapi runs the multi-tenant todo list HTTP service.
package main

import (
	"github.com/patric-chuzhbe/todoapi/internal/app"
	"github.com/patric-chuzhbe/todoapi/internal/logger"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := theApp.Close(); err != nil {
			panic(err)
		}
	}()

	if err := theApp.Run(); err != nil {
		logger.Log.Errorln("todoapi stopped:", err)
	}
}
