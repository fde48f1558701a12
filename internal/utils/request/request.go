package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Request is the shared client for node, faucet and balance calls.
var Request = New()

// Once never retries. Transaction submission uses it: a resent transaction
// is rejected once the first attempt reached the mempool.
var Once = New().SetRetryCount(0)

// New builds a resty client that honours proxy env vars and retries
// transient failures (network errors, 429 and 5xx).
func New() *resty.Client {
	return resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json")
}
