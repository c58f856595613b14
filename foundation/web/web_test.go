package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/skuchain/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_App(t *testing.T) {
	shutdown := make(chan os.Signal, 1)

	var order []string
	mark := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(shutdown, mark("app"))

	var traceID string
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		v, err := web.GetValues(ctx)
		if err != nil {
			return web.NewShutdownError("web value missing from context")
		}
		traceID = v.TraceID

		resp := struct {
			Height string `json:"height"`
		}{
			Height: web.Param(r, "height"),
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
	app.Handle(http.MethodGet, "v1", "/chain/difficulty/:height", h, mark("route"))

	fail := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	}
	app.Handle(http.MethodGet, "v1", "/fail", fail)

	t.Log("Given the need to route requests through middleware.")
	{
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/chain/difficulty/42", nil))

		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"height":"42"`) {
			t.Fatalf("\t%s\tShould respond with the route parameter: %d %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould respond with the route parameter.", success)

		if len(order) != 2 || order[0] != "app" || order[1] != "route" {
			t.Fatalf("\t%s\tShould run app middleware before route middleware: %v", failed, order)
		}
		t.Logf("\t%s\tShould run app middleware before route middleware.", success)

		if traceID == "" {
			t.Fatalf("\t%s\tShould assign a trace id.", failed)
		}
		t.Logf("\t%s\tShould assign a trace id.", success)

		app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/fail", nil))
		select {
		case <-shutdown:
			t.Logf("\t%s\tShould signal shutdown on an unhandled error.", success)
		default:
			t.Fatalf("\t%s\tShould signal shutdown on an unhandled error.", failed)
		}

		if !web.IsShutdown(web.NewShutdownError("x")) {
			t.Fatalf("\t%s\tShould detect a shutdown error.", failed)
		}
		t.Logf("\t%s\tShould detect a shutdown error.", success)
	}
}
