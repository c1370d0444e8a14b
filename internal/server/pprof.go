package server

import (
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
)

// runtimeProfiles are served by name under /debug/pprof/.
var runtimeProfiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// NewPprofHandler builds the gin engine for the optional debug listener.
// It is served by HTTPServer like the scrape handler, so it shares bind and shutdown.
// Params: none.
// Returns: HTTP handler with the /debug/pprof/ routes.
func NewPprofHandler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	debug := engine.Group("/debug/pprof")
	debug.GET("/", gin.WrapF(pprof.Index))
	debug.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	debug.GET("/profile", gin.WrapF(pprof.Profile))
	debug.GET("/symbol", gin.WrapF(pprof.Symbol))
	debug.POST("/symbol", gin.WrapF(pprof.Symbol))
	debug.GET("/trace", gin.WrapF(pprof.Trace))
	for _, name := range runtimeProfiles {
		debug.GET("/"+name, gin.WrapH(pprof.Handler(name)))
	}

	return engine
}
