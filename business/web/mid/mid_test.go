package mid_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/skuchain/business/sys/validate"
	"github.com/ardanlabs/skuchain/business/web/errs"
	"github.com/ardanlabs/skuchain/business/web/mid"
	"github.com/ardanlabs/skuchain/foundation/blockchain/database"
	"github.com/ardanlabs/skuchain/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Errors(t *testing.T) {
	log := zap.NewNop().Sugar()
	shutdown := make(chan os.Signal, 1)

	app := web.NewApp(shutdown, mid.Logger(log), mid.Errors(log), mid.Cors("*"), mid.Panics())

	type table struct {
		name   string
		err    error
		panics bool
		status int
	}

	tt := []table{
		{name: "ok", status: http.StatusOK},
		{name: "trusted", err: errs.NewTrusted(errors.New("block not found"), http.StatusNotFound), status: http.StatusNotFound},
		{name: "rejected", err: database.RejectTx(nil, errors.New("wrong fee")), status: http.StatusBadRequest},
		{name: "fields", err: validate.FieldErrors{{Field: "action", Error: "action is required"}}, status: http.StatusBadRequest},
		{name: "unexpected", err: errors.New("disk full"), status: http.StatusInternalServerError},
		{name: "panic", panics: true, status: http.StatusInternalServerError},
	}

	for _, tst := range tt {
		tst := tst
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if tst.panics {
				panic("boom")
			}
			if tst.err != nil {
				return tst.err
			}
			return web.Respond(ctx, w, nil, http.StatusOK)
		}
		app.Handle(http.MethodGet, "v1", "/"+tst.name, h)
	}

	t.Log("Given the need to map handler errors to responses.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the handler returns %s.", testID, tst.name)
			{
				w := httptest.NewRecorder()
				app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/"+tst.name, nil))

				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould respond with %d, got %d.", failed, testID, tst.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould respond with %d.", success, testID, tst.status)

				if w.Header().Get("Access-Control-Allow-Origin") != "*" {
					t.Fatalf("\t%s\tTest %d:\tShould set the CORS headers.", failed, testID)
				}
			}
		}

		select {
		case <-shutdown:
			t.Fatalf("\t%s\tShould not signal shutdown for handled errors.", failed)
		default:
			t.Logf("\t%s\tShould not signal shutdown for handled errors.", success)
		}
	}
}
