package handlers

import (
	"sync"

	"github.com/d4l-data4life/go-mcp-registry/pkg/config"
	"github.com/d4l-data4life/go-svc/pkg/instrumented"
)

var once sync.Once

var instance *instrumented.HandlerFactory

// GetHandlerFactory returns a global singleton InstrumentedHandlerFactory object
func GetHandlerFactory() *instrumented.HandlerFactory {
	once.Do(func() {
		instance = instrumented.NewHandlerFactory("d4l", config.DefaultInstrumentInitOptions, config.DefaultInstrumentOptions)
	})
	return instance
}
