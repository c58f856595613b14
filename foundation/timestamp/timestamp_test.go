package timestamp_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/skuchain/foundation/timestamp"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_FromTime(t *testing.T) {
	type table struct {
		name string
		time time.Time
		exp  int64
	}

	tt := []table{
		{name: "epoch", time: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), exp: 0},
		{name: "year-one", time: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), exp: -62135596800},
		{name: "sub-second", time: time.Date(1970, 1, 1, 0, 0, 1, 999_999_999, time.UTC), exp: 1},
		{name: "offset", time: time.Date(1970, 1, 1, 2, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60)), exp: 0},
	}

	t.Log("Given the need to convert times into unix timestamps.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
				{
					got := timestamp.FromTime(tst.time)
					if got != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right timestamp.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right timestamp.", success, testID)

					back := timestamp.ToTime(got)
					if !back.Equal(tst.time.Truncate(time.Second)) {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, back)
						t.Fatalf("\t%s\tTest %d:\tShould round trip back to the same second.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould round trip back to the same second.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Now(t *testing.T) {
	before := time.Now().Unix()
	now := timestamp.Now()
	after := time.Now().Unix()

	if now < before || now > after {
		t.Fatalf("\t%s\tShould get back the current time: %d not in [%d,%d]", failed, now, before, after)
	}
	t.Logf("\t%s\tShould get back the current time.", success)

	if timestamp.ToTime(now).Location() != time.UTC {
		t.Fatalf("\t%s\tShould get back a UTC time.", failed)
	}
	t.Logf("\t%s\tShould get back a UTC time.", success)
}
