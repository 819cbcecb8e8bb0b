package ratelimit

import "strings"

// unlimited marks routes that never consume tokens.
var unlimited = &EndpointConfig{}

// exempt lists probe and scrape routes, keyed by "METHOD path".
var exempt = map[string]bool{
	"GET /health":  true,
	"GET /metrics": true,
}

// MatchEndpoint returns the config for a request, or nil to use the default
// limit. An exact path wins over a prefix; among prefixes the longest wins.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if exempt[method+" "+path] {
		return unlimited
	}

	var best *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			if best == nil || len(c.Path) > len(best.Path) {
				best = c
			}
		}
	}
	return best
}
