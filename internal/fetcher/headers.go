package fetcher

import "net/http"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// the storefront serves an interstitial page to clients that look like bots
// or have not passed the age check, these make every request look like a
// returning desktop browser.
var browserHeaders = map[string]string{
	"User-Agent":                userAgent,
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

func ageGateCookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "birthtime", Value: "568022401", Path: "/"},
		{Name: "lastagecheckage", Value: "1-January-1988", Path: "/"},
		{Name: "mature_content", Value: "1", Path: "/"},
		{Name: "wants_mature_content", Value: "1", Path: "/"},
	}
}
