package fetcher

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// maxRedirects bounds redirect chains on requests that do follow redirects.
const maxRedirects = 10

type captureRedirectKey struct{}

// withRedirectCapture marks requests made with ctx so that a redirect
// response is returned to the caller instead of being followed.
func withRedirectCapture(ctx context.Context) context.Context {
	return context.WithValue(ctx, captureRedirectKey{}, true)
}

func capturesRedirect(ctx context.Context) bool {
	captured, _ := ctx.Value(captureRedirectKey{}).(bool)
	return captured
}

// redirectPolicy follows up to maxRedirects redirects, except on requests
// marked by withRedirectCapture, where the redirect response itself is returned.
func redirectPolicy() resty.RedirectPolicy {
	follow := resty.FlexibleRedirectPolicy(maxRedirects)
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if capturesRedirect(req.Context()) {
			return http.ErrUseLastResponse
		}
		return follow.Apply(req, via)
	})
}
