// Package restyutil holds debugging helpers for resty clients.
package restyutil

import (
	"fmt"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

// DumpExchanges writes every completed request/response pair made by client
// to output. Exchanges are named by a per client sequence number and the
// request method, ex. "0001-GET.txt". A nil output leaves client untouched.
func DumpExchanges(client *resty.Client, output Output) {
	if output == nil {
		return
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&counter, 1)
		output.Write(
			fmt.Sprintf("%04d-%s.txt", id, res.Request.Method),
			FormatExchange(res),
		)
		return nil
	})
}
