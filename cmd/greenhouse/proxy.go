package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// ProxyPrefix is the path under which requests are forwarded to the
// controller.
const ProxyPrefix = "/device"

// newDeviceProxy forwards requests below ProxyPrefix to target with CORS
// headers for any origin. The Host header is rewritten to the controller.
func newDeviceProxy(target string, logger *slog.Logger) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q: scheme and host required", target)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			if logger != nil {
				logger.Debug("proxy request", "method", pr.In.Method, "path", pr.In.URL.Path)
			}
		},
		ModifyResponse: func(resp *http.Response) error {
			setCORSHeaders(resp.Header)
			if logger != nil {
				logger.Debug("proxy response", "status", resp.StatusCode, "path", resp.Request.URL.Path)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if logger != nil {
				logger.Warn("proxy error", "path", r.URL.Path, "error", err)
			}
			setCORSHeaders(w.Header())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "Proxy error",
				"message": err.Error(),
			})
		},
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			setCORSHeaders(w.Header())
			w.WriteHeader(http.StatusNoContent)
			return
		}
		proxy.ServeHTTP(w, r)
	})
	return http.StripPrefix(ProxyPrefix, h), nil
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
}
