package routes

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// SetupGatewayRoutes sets up the public gateway: /api/users/* forwards to
// the user service and /api/stocks/* to the stock service, with the route
// prefix stripped before proxying.
func SetupGatewayRoutes(router *gin.Engine, userServiceURL, stockServiceURL string) error {
	userProxy, err := newStripPrefixProxy("/api/users", userServiceURL)
	if err != nil {
		return fmt.Errorf("invalid user service URL: %w", err)
	}
	stockProxy, err := newStripPrefixProxy("/api/stocks", stockServiceURL)
	if err != nil {
		return fmt.Errorf("invalid stock service URL: %w", err)
	}

	router.Any("/api/users/*path", gin.WrapH(userProxy))
	router.Any("/api/stocks/*path", gin.WrapH(stockProxy))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "api-gateway"})
	})

	return nil
}

// newStripPrefixProxy builds a reverse proxy that removes the route prefix
// and forwards the rest of the path to the target service
func newStripPrefixProxy(prefix, target string) (*httputil.ReverseProxy, error) {
	targetURL, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.URL.Path = strings.TrimPrefix(req.URL.Path, prefix)
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
		req.Host = targetURL.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Proxy error for %s %s: %v", r.Method, r.URL.Path, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, `{"error": "Upstream service unavailable"}`)
	}

	return proxy, nil
}
